package services

import (
	"github.com/babylonlabs-io/simple-staking/internal/config"
	"github.com/babylonlabs-io/simple-staking/internal/staking"
)

// Service runs the background jobs around a staking engine
type Service struct {
	cfg    *config.Config
	engine *staking.Engine
}

func NewService(cfg *config.Config, engine *staking.Engine) *Service {
	return &Service{
		cfg:    cfg,
		engine: engine,
	}
}
