package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/babylonlabs-io/simple-staking/internal/observability/metrics"
	"github.com/babylonlabs-io/simple-staking/internal/types"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	queueConfig "github.com/babylonlabs-io/staking-queue-client/config"
)

const (
	defaultRetryInterval = 200 * time.Millisecond
	defaultMaxRetryTimes = 3
)

var ErrQueueManagerClosed = errors.New("queue manager is closed")

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type connection interface {
	IsClosed() bool
	Close() error
}

type dialFunc func() (connection, channel, error)

// QueueManager publishes staking events to a RabbitMQ queue, reconnecting when
// the channel has been closed by the broker.
type QueueManager struct {
	mu      sync.Mutex
	cfg     *queueConfig.QueueConfig
	dial    dialFunc
	conn    connection
	ch      channel
	closed  bool
	retries uint
}

func NewQueueManager(cfg *queueConfig.QueueConfig) (*QueueManager, error) {
	qm := newQueueManager(cfg, func() (connection, channel, error) {
		return dial(cfg)
	})

	if err := qm.connect(); err != nil {
		return nil, err
	}
	return qm, nil
}

func newQueueManager(cfg *queueConfig.QueueConfig, dial dialFunc) *QueueManager {
	retries := uint(defaultMaxRetryTimes)
	if cfg.MsgMaxRetryAttempts > 0 {
		retries = uint(cfg.MsgMaxRetryAttempts)
	}

	return &QueueManager{
		cfg:     cfg,
		dial:    dial,
		retries: retries,
	}
}

func dial(cfg *queueConfig.QueueConfig) (connection, channel, error) {
	conn, err := amqp.Dial(AmqpURL(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to queue server: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open queue channel: %w", err)
	}

	args := amqp.Table{}
	if cfg.QueueType != "" {
		args["x-queue-type"] = cfg.QueueType
	}
	_, err = ch.QueueDeclare(StakingEventsQueueName, true, false, false, false, args)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to declare queue %s: %w", StakingEventsQueueName, err)
	}

	return conn, ch, nil
}

// AmqpURL builds the broker url from the configured host and credentials
func AmqpURL(cfg *queueConfig.QueueConfig) string {
	return fmt.Sprintf("amqp://%s:%s@%s", cfg.QueueUser, cfg.QueuePassword, cfg.Url)
}

func (qm *QueueManager) connect() error {
	qm.release()

	conn, ch, err := qm.dial()
	if err != nil {
		return err
	}
	qm.conn = conn
	qm.ch = ch
	return nil
}

func (qm *QueueManager) PublishStakingEvent(ctx context.Context, event *types.StakingEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.EventType, err)
	}

	err = retry.Do(
		func() error {
			return qm.publish(ctx, body)
		},
		retry.Context(ctx),
		retry.Attempts(qm.retries),
		retry.Delay(defaultRetryInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, ErrQueueManagerClosed)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Uint("attempt", n+1).
				Uint("max_attempts", qm.retries).
				Err(err).
				Msg("failed to publish staking event, retrying")
		}),
	)
	if err != nil {
		metrics.RecordQueueSendError()
		return fmt.Errorf("failed to publish %s event: %w", event.EventType, err)
	}
	return nil
}

func (qm *QueueManager) publish(ctx context.Context, body []byte) error {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	if qm.closed {
		return ErrQueueManagerClosed
	}
	if qm.ch == nil || qm.ch.IsClosed() {
		if err := qm.connect(); err != nil {
			return err
		}
	}

	timeout := qm.cfg.QueueProcessingTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return qm.ch.PublishWithContext(ctx, "", StakingEventsQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// Shutdown gracefully stops the interaction with the queue, ensuring all resources are properly released.
func (qm *QueueManager) Shutdown() {
	log.Info().Msg("Shutting down queue manager")

	qm.mu.Lock()
	defer qm.mu.Unlock()

	qm.closed = true
	qm.release()
}

// release closes the current channel and connection, if any. Callers must hold qm.mu.
func (qm *QueueManager) release() {
	if qm.ch != nil && !qm.ch.IsClosed() {
		if err := qm.ch.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close queue channel")
		}
	}
	if qm.conn != nil && !qm.conn.IsClosed() {
		if err := qm.conn.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close queue connection")
		}
	}
	qm.ch = nil
	qm.conn = nil
}
