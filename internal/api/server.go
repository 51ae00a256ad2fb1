package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/babylonlabs-io/simple-staking/internal/config"
	"github.com/babylonlabs-io/simple-staking/internal/staking"
	"github.com/rs/zerolog/log"
)

type Server struct {
	httpServer *http.Server
}

// New builds the HTTP surface of the engine. approver may be nil, in which case
// the approve endpoint is not served. health backs the healthcheck endpoint.
func New(
	cfg *config.ServerConfig,
	engine *staking.Engine,
	approver Approver,
	health func(ctx context.Context) error,
) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("staking engine is required")
	}

	h := NewHandler(engine, approver, health)
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      newRouter(h, cfg.MaxRequestBodyBytes),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}, nil
}

// Start blocks serving requests until the server is shut down
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("starting api server")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
