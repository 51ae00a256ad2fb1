package queue

import (
	"context"

	"github.com/babylonlabs-io/simple-staking/internal/types"
	"github.com/rs/zerolog/log"
)

const StakingEventsQueueName = "simple_staking_events"

// EventPublisher delivers committed staking events to downstream consumers
//
//go:generate mockery --name=EventPublisher --output=../../tests/mocks --outpkg=mocks --filename=mock_event_publisher.go
type EventPublisher interface {
	PublishStakingEvent(ctx context.Context, event *types.StakingEvent) error
	Shutdown()
}

// LogPublisher writes events to the context logger. It is used when no queue
// is configured.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) PublishStakingEvent(ctx context.Context, event *types.StakingEvent) error {
	log.Ctx(ctx).Info().
		Str("event_type", event.EventType.String()).
		Str("account", event.Account).
		Str("counterparty", event.Counterparty).
		Str("amount", event.Amount).
		Uint64("timestamp", event.Timestamp).
		Msg("staking event")
	return nil
}

func (p *LogPublisher) Shutdown() {}
