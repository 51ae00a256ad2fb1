package services

import (
	"context"
	"strconv"

	"github.com/babylonlabs-io/simple-staking/internal/observability/metrics"
	"github.com/babylonlabs-io/simple-staking/internal/utils"
	"github.com/babylonlabs-io/simple-staking/internal/utils/poller"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"
)

// StartReservePoller checks the contract reserve once, so the gauges hold
// ledger values from boot, then keeps checking it on every poll interval.
// The returned poller is already running.
func (s *Service) StartReservePoller(ctx context.Context) *poller.Poller {
	if err := s.checkReserve(ctx); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Initial reserve check failed")
	}

	reservePoller := poller.NewPoller(
		s.cfg.Poller.ReservePollingInterval,
		metrics.RecordPollerDuration("reserve", s.checkReserve),
	)
	go reservePoller.Start(ctx)
	return reservePoller
}

// checkReserve reads the part of the contract balance that is not owed back
// as principal, which is what ROI and referral bonuses are paid from, and
// warns when it drops under the configured minimum
func (s *Service) checkReserve(ctx context.Context) error {
	status, err := s.engine.Reserve(ctx)
	if err != nil {
		return err
	}

	tokenHex := s.engine.StakingToken().Address().Hex()
	metrics.SetStakedAccounts(status.Totals.Stakers)
	recordTokenGauge(metrics.RecordContractBalance, tokenHex, status.Balance)
	recordTokenGauge(metrics.RecordContractReserve, tokenHex, status.Reserve)

	reserve := utils.FormatTokenAmount(status.Reserve)
	logger := log.Ctx(ctx).With().
		Str("contract", s.engine.Contract().Hex()).
		Str("balance", utils.FormatTokenAmount(status.Balance)).
		Str("staked", utils.FormatTokenAmount(status.Totals.Principal)).
		Str("reserve", reserve).
		Int("stakers", status.Totals.Stakers).
		Logger()

	if !status.Covered() {
		logger.Error().Msg("Contract balance does not cover staked principal")
		return nil
	}

	minReserve, err := s.cfg.Poller.MinReserveAmount()
	if err != nil {
		return err
	}
	if status.Reserve.Lt(minReserve) {
		logger.Warn().
			Str("min_reserve", utils.FormatTokenAmount(minReserve)).
			Msg("Contract reserve is below the configured minimum")
		return nil
	}

	logger.Debug().Msg("Contract reserve checked")
	return nil
}

func recordTokenGauge(record func(token string, amount float64), token string, amount *uint256.Int) {
	if value, err := strconv.ParseFloat(utils.FormatTokenAmount(amount), 64); err == nil {
		record(token, value)
	}
}
