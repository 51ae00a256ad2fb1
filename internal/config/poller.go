package config

import (
	"fmt"
	"time"

	"github.com/babylonlabs-io/simple-staking/internal/utils"
	"github.com/holiman/uint256"
)

const defaultReservePollingInterval = 1 * time.Minute

type PollerConfig struct {
	ReservePollingInterval time.Duration `mapstructure:"reserve-polling-interval"`
	// MinReserve is the contract balance left after staked principal, in whole
	// tokens, below which a warning is logged on every poll
	MinReserve string `mapstructure:"min-reserve"`
}

func (cfg *PollerConfig) Validate() error {
	if cfg.ReservePollingInterval <= 0 {
		cfg.ReservePollingInterval = defaultReservePollingInterval
	}

	if _, err := cfg.MinReserveAmount(); err != nil {
		return err
	}

	return nil
}

func (cfg *PollerConfig) MinReserveAmount() (*uint256.Int, error) {
	if cfg.MinReserve == "" {
		return uint256.NewInt(0), nil
	}
	amount, err := utils.ParseTokenAmount(cfg.MinReserve)
	if err != nil {
		return nil, fmt.Errorf("invalid min-reserve: %w", err)
	}
	return amount, nil
}
