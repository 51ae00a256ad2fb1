package staking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/babylonlabs-io/simple-staking/internal/ledger"
	"github.com/babylonlabs-io/simple-staking/internal/observability/metrics"
	"github.com/babylonlabs-io/simple-staking/internal/queue"
	"github.com/babylonlabs-io/simple-staking/internal/token"
	"github.com/babylonlabs-io/simple-staking/internal/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"
)

const (
	opStake          = "stake"
	opClaimROI       = "claim_roi"
	opUnstake        = "unstake"
	opWithdrawTokens = "withdraw_tokens"
)

// Config is fixed for the lifetime of an engine. Contract is the account the
// engine holds tokens under.
type Config struct {
	Owner        common.Address
	Contract     common.Address
	StakingToken token.Token
}

func (cfg *Config) Validate() error {
	if ledger.IsNullAccount(cfg.Owner) {
		return errors.New("owner cannot be the zero address")
	}
	if ledger.IsNullAccount(cfg.Contract) {
		return errors.New("contract cannot be the zero address")
	}
	if cfg.StakingToken == nil {
		return errors.New("staking token is required")
	}
	return nil
}

// Engine owns the ledger and executes every state changing operation one at a
// time. Reads only ever observe committed state.
type Engine struct {
	mu        sync.RWMutex
	cfg       Config
	store     ledger.Store
	tokens    *token.Registry
	clock     Clock
	publisher queue.EventPublisher
}

func NewEngine(
	cfg Config,
	store ledger.Store,
	tokens *token.Registry,
	clock Clock,
	publisher queue.EventPublisher,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid staking config: %w", err)
	}
	if store == nil {
		return nil, errors.New("ledger store is required")
	}
	if tokens == nil {
		tokens = token.NewRegistry()
	}
	tokens.Register(cfg.StakingToken)
	if clock == nil {
		clock = SystemClock{}
	}
	if publisher == nil {
		publisher = queue.NewLogPublisher()
	}

	return &Engine{
		cfg:       cfg,
		store:     store,
		tokens:    tokens,
		clock:     clock,
		publisher: publisher,
	}, nil
}

func (e *Engine) Owner() common.Address {
	return e.cfg.Owner
}

func (e *Engine) Contract() common.Address {
	return e.cfg.Contract
}

func (e *Engine) StakingToken() token.Token {
	return e.cfg.StakingToken
}

// Stake pulls amount from caller and adds it to the caller's stake. The first
// stake naming a non-null referrer assigns it and pays the referral bonus.
func (e *Engine) Stake(ctx context.Context, caller common.Address, amount *uint256.Int, referrer common.Address) error {
	return e.run(ctx, opStake, func(op *operation) error {
		if amount == nil || amount.IsZero() {
			return ErrInvalidAmount
		}

		rec, err := op.view.Stake(ctx, caller)
		if err != nil {
			return fmt.Errorf("failed to get stake of %s: %w", caller.Hex(), err)
		}
		newAmount, overflow := new(uint256.Int).AddOverflow(rec.Amount, amount)
		if overflow {
			return ErrArithmeticOverflow
		}
		current, err := op.view.Referrer(ctx, caller)
		if err != nil {
			return fmt.Errorf("failed to get referrer of %s: %w", caller.Hex(), err)
		}
		assignReferrer := ledger.IsNullAccount(current) && !ledger.IsNullAccount(referrer)

		if err := op.pull(e.cfg.StakingToken, caller, amount); err != nil {
			return err
		}

		now := e.clock.Now()
		op.view.SetStake(caller, ledger.StakeRecord{
			Amount:    newAmount,
			LastClaim: max(now, rec.LastClaim),
		})
		if !rec.IsStaked() {
			op.stakedDelta = 1
		}
		op.emit(types.NewStakingEvent(types.EventStaked, caller, amount, now))

		if !assignReferrer {
			return nil
		}
		if referrer == caller {
			log.Ctx(ctx).Warn().
				Str("account", caller.Hex()).
				Msg("account registered itself as referrer")
		}
		if err := op.view.SetReferrer(ctx, caller, referrer); err != nil {
			return err
		}
		bonus, err := ReferralBonus(amount)
		if err != nil {
			return err
		}
		// stakes below 200 base units assign the referrer without a payout
		if bonus.IsZero() {
			op.emit(types.NewStakingEvent(types.EventReferrerAssigned, caller, bonus, now).WithCounterparty(referrer))
			return nil
		}
		if err := op.push(e.cfg.StakingToken, referrer, bonus); err != nil {
			return err
		}
		op.emit(types.NewStakingEvent(types.EventReferralPaid, caller, bonus, now).WithCounterparty(referrer))
		return nil
	})
}

// ClaimROI pays the caller the whole days of accrual since its last claim and
// returns the amount paid
func (e *Engine) ClaimROI(ctx context.Context, caller common.Address) (*uint256.Int, error) {
	var paid *uint256.Int
	err := e.run(ctx, opClaimROI, func(op *operation) error {
		rec, err := op.view.Stake(ctx, caller)
		if err != nil {
			return fmt.Errorf("failed to get stake of %s: %w", caller.Hex(), err)
		}
		if !rec.IsStaked() {
			return ErrNoStake
		}

		now := e.clock.Now()
		days := ElapsedDays(rec.LastClaim, now)
		if days == 0 {
			return ErrClaimTooSoon
		}
		roi, err := ComputeROI(rec.Amount, days)
		if err != nil {
			return err
		}

		op.view.SetStake(caller, ledger.StakeRecord{Amount: rec.Amount, LastClaim: now})
		if !roi.IsZero() {
			if err := op.push(e.cfg.StakingToken, caller, roi); err != nil {
				return err
			}
		}
		op.emit(types.NewStakingEvent(types.EventROIClaimed, caller, roi, now))
		paid = roi
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// Unstake returns amount of principal to the caller. The accrual clock is not
// touched.
func (e *Engine) Unstake(ctx context.Context, caller common.Address, amount *uint256.Int) error {
	return e.run(ctx, opUnstake, func(op *operation) error {
		if amount == nil || amount.IsZero() {
			return ErrInvalidUnstakeAmount
		}

		rec, err := op.view.Stake(ctx, caller)
		if err != nil {
			return fmt.Errorf("failed to get stake of %s: %w", caller.Hex(), err)
		}
		if rec.Amount.Lt(amount) {
			return ErrInvalidUnstakeAmount
		}
		remaining := new(uint256.Int).Sub(rec.Amount, amount)

		if err := op.push(e.cfg.StakingToken, caller, amount); err != nil {
			return err
		}

		op.view.SetStake(caller, ledger.StakeRecord{Amount: remaining, LastClaim: rec.LastClaim})
		if remaining.IsZero() {
			op.stakedDelta = -1
		}
		op.emit(types.NewStakingEvent(types.EventUnstaked, caller, amount, e.clock.Now()))
		return nil
	})
}

// PendingROI returns what ClaimROI would pay account right now
func (e *Engine) PendingROI(ctx context.Context, account common.Address) (*uint256.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rec, err := e.store.GetStake(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get stake of %s: %w", account.Hex(), err)
	}
	if !rec.IsStaked() {
		return uint256.NewInt(0), nil
	}
	return ComputeROI(rec.Amount, ElapsedDays(rec.LastClaim, e.clock.Now()))
}

func (e *Engine) StakeOf(ctx context.Context, account common.Address) (ledger.StakeRecord, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rec, err := e.store.GetStake(ctx, account)
	if err != nil {
		return ledger.StakeRecord{}, fmt.Errorf("failed to get stake of %s: %w", account.Hex(), err)
	}
	return rec.Clone(), nil
}

// ReferrerOf returns the referrer assigned to account, the zero address when unset
func (e *Engine) ReferrerOf(ctx context.Context, account common.Address) (common.Address, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ref, err := e.store.GetReferrer(ctx, account)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to get referrer of %s: %w", account.Hex(), err)
	}
	return ref, nil
}

// run executes f under the write lock and commits its staged writes. Any
// failure reverts the transfers f made. Events go out once the lock is released.
func (e *Engine) run(ctx context.Context, name string, f func(op *operation) error) error {
	start := time.Now()

	op, err := e.execute(ctx, f)
	e.observe(ctx, name, time.Since(start), err)
	if err != nil {
		return err
	}

	metrics.AddStakedAccounts(op.stakedDelta)
	for _, event := range op.events {
		if err := e.publisher.PublishStakingEvent(ctx, event); err != nil {
			log.Ctx(ctx).Warn().
				Err(err).
				Str("event_type", event.EventType.String()).
				Str("account", event.Account).
				Msg("failed to publish staking event")
		}
	}
	return nil
}

func (e *Engine) execute(ctx context.Context, f func(op *operation) error) (*operation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	op := newOperation(ctx, e.cfg.Contract, e.store)
	err := f(op)
	if err == nil {
		err = op.commit()
	}
	if err != nil {
		op.rollback()
		return nil, err
	}
	return op, nil
}

func (e *Engine) observe(ctx context.Context, name string, d time.Duration, err error) {
	metrics.RecordStakingOperation(d, name, err != nil)
	if err == nil {
		log.Ctx(ctx).Debug().Str("operation", name).Dur("duration", d).Msg("staking operation committed")
		return
	}

	code := Code(err)
	if code == "" {
		metrics.IncStakingOperationErrors(name, "INTERNAL")
		log.Ctx(ctx).Error().Err(err).Str("operation", name).Msg("staking operation failed")
		return
	}
	metrics.IncStakingOperationErrors(name, string(code))
	log.Ctx(ctx).Debug().Err(err).Str("operation", name).Msg("staking operation rejected")
}
