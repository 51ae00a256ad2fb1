package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type EventType string

func (e EventType) String() string {
	return string(e)
}

const (
	EventStaked           EventType = "STAKED"
	EventReferralPaid     EventType = "REFERRAL_PAID"
	EventReferrerAssigned EventType = "REFERRER_ASSIGNED"
	EventROIClaimed       EventType = "ROI_CLAIMED"
	EventUnstaked         EventType = "UNSTAKED"
	EventTokensWithdrawn  EventType = "TOKENS_WITHDRAWN"
)

// StakingEvent is emitted after a staking operation has been committed.
// REFERRER_ASSIGNED replaces REFERRAL_PAID when the bonus truncates to zero.
// Counterparty is the referrer for both of them and the token handle
// for TOKENS_WITHDRAWN. Amounts are decimal strings of base units.
type StakingEvent struct {
	EventType    EventType `json:"event_type"`
	Account      string    `json:"account"`
	Counterparty string    `json:"counterparty,omitempty"`
	Amount       string    `json:"amount"`
	Timestamp    uint64    `json:"timestamp"`
}

func NewStakingEvent(
	eventType EventType, account common.Address, amount *uint256.Int, timestamp uint64,
) *StakingEvent {
	return &StakingEvent{
		EventType: eventType,
		Account:   account.Hex(),
		Amount:    amount.Dec(),
		Timestamp: timestamp,
	}
}

// WithCounterparty sets the counterparty of the event
func (e *StakingEvent) WithCounterparty(counterparty common.Address) *StakingEvent {
	e.Counterparty = counterparty.Hex()
	return e
}
