package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	queue "github.com/babylonlabs-io/staking-queue-client/config"
	"github.com/spf13/viper"
)

type Config struct {
	Staking StakingConfig `mapstructure:"staking"`
	Server  ServerConfig  `mapstructure:"server"`
	// Db is optional, the ledger is kept in memory when it is absent
	Db     *DbConfig    `mapstructure:"db"`
	Poller PollerConfig `mapstructure:"poller"`
	// Queue is optional, events are only logged when it is absent
	Queue   *queue.QueueConfig `mapstructure:"queue"`
	Metrics MetricsConfig      `mapstructure:"metrics"`
}

func (cfg *Config) Validate() error {
	if err := cfg.Staking.Validate(); err != nil {
		return fmt.Errorf("invalid staking config: %w", err)
	}

	if err := cfg.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if cfg.Db != nil {
		if err := cfg.Db.Validate(); err != nil {
			return fmt.Errorf("invalid db config: %w", err)
		}
	}

	if err := cfg.Poller.Validate(); err != nil {
		return fmt.Errorf("invalid poller config: %w", err)
	}

	if cfg.Queue != nil {
		if err := validateQueue(cfg.Queue); err != nil {
			return fmt.Errorf("invalid queue config: %w", err)
		}
	}

	if err := cfg.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	return nil
}

func validateQueue(cfg *queue.QueueConfig) error {
	if cfg.Url == "" {
		return errors.New("queue url is required")
	}
	if cfg.QueueUser == "" {
		return errors.New("queue user is required")
	}
	if cfg.QueueProcessingTimeout < 0 {
		return errors.New("queue processing timeout cannot be negative")
	}
	if cfg.MsgMaxRetryAttempts < 0 {
		return errors.New("msg max retry attempts cannot be negative")
	}
	return nil
}

// New returns a fully parsed Config object from a given file directory
func New(cfgFile string) (*Config, error) {
	if _, err := os.Stat(cfgFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(cfgFile)
	v.AutomaticEnv()
	/*
		Nested fields can be overridden by env variables: `.` maps to `_` and `-` maps to `__`.
		1. `staking.owner` can be overridden by `STAKING_OWNER`
		2. `server.read-timeout` can be overridden by `SERVER_READ__TIMEOUT`
	*/
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "__"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
