package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/babylonlabs-io/simple-staking/internal/api"
	"github.com/babylonlabs-io/simple-staking/internal/config"
	"github.com/babylonlabs-io/simple-staking/internal/db"
	dbmodel "github.com/babylonlabs-io/simple-staking/internal/db/model"
	"github.com/babylonlabs-io/simple-staking/internal/ledger"
	"github.com/babylonlabs-io/simple-staking/internal/observability/metrics"
	"github.com/babylonlabs-io/simple-staking/internal/observability/tracing"
	"github.com/babylonlabs-io/simple-staking/internal/queue"
	"github.com/babylonlabs-io/simple-staking/internal/services"
	"github.com/babylonlabs-io/simple-staking/internal/staking"
	"github.com/babylonlabs-io/simple-staking/internal/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func StartServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Starts the staking API server",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}

	return cmd
}

func startServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = tracing.InjectTraceID(ctx)
	log := log.Ctx(ctx)

	// load config
	cfgPath := GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg(fmt.Sprintf("error while loading config file: %s", cfgPath))
	}

	if !cfg.Server.IsLoopback() {
		log.Warn().
			Str("host", cfg.Server.Host).
			Str("header", api.CallerHeader).
			Msg("api server is reachable beyond loopback, callers must be authenticated by a proxy that sets the caller header")
	}

	st, err := newStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating stores")
	}
	defer st.close()

	var publisher queue.EventPublisher = queue.NewLogPublisher()
	if cfg.Queue != nil {
		qm, err := queue.NewQueueManager(cfg.Queue)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize event publisher")
		}
		publisher = qm
	}
	defer publisher.Shutdown()

	engine, stakingToken, err := newEngine(ctx, cfg, st, publisher)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating staking engine")
	}

	server, err := api.New(&cfg.Server, engine, stakingToken, st.health)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating api server")
	}

	// initialize metrics with the metrics port from config
	metricsPort := cfg.Metrics.GetMetricsPort()
	metrics.Init(metricsPort)

	service := services.NewService(cfg, engine)
	reservePoller := service.StartReservePoller(ctx)
	defer reservePoller.Stop()

	var wg conc.WaitGroup
	wg.Go(func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("api server stopped")
			stop()
		}
	})

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error while shutting down api server")
	}
	wg.Wait()
	return nil
}

// stores holds the ledger and the token state the engine runs on
type stores struct {
	ledger ledger.Store
	token  token.StateStore
	health func(context.Context) error
	close  func()
}

// newStores returns mongo backed stores when a db section is configured and
// in-memory ones otherwise
func newStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Db == nil {
		log.Ctx(ctx).Warn().Msg("no db configured, the ledger and token balances are kept in memory")
		return &stores{
			ledger: ledger.NewMemoryStore(),
			token:  token.NewMemoryStateStore(),
			close:  func() {},
		}, nil
	}

	if err := dbmodel.Setup(ctx, cfg.Db); err != nil {
		return nil, fmt.Errorf("error while setting up staking db model: %w", err)
	}

	dbClient, err := db.New(ctx, *cfg.Db)
	if err != nil {
		return nil, fmt.Errorf("error while creating db client: %w", err)
	}
	closeFn := func() {
		if err := dbClient.Close(context.WithoutCancel(ctx)); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("error while closing db client")
		}
	}

	// the token lives in the same database as the ledger, so principal held
	// by the contract is still there after a restart
	store := db.NewDbWithMetrics(dbClient)
	return &stores{
		ledger: store,
		token:  store,
		health: store.Ping,
		close:  closeFn,
	}, nil
}

func newEngine(
	ctx context.Context, cfg *config.Config, st *stores, publisher queue.EventPublisher,
) (*staking.Engine, *token.MemoryToken, error) {
	stakingToken, err := deployToken(ctx, &cfg.Staking, st.token)
	if err != nil {
		return nil, nil, fmt.Errorf("error while deploying staking token: %w", err)
	}

	engine, err := staking.NewEngine(staking.Config{
		Owner:        cfg.Staking.OwnerAddress(),
		Contract:     cfg.Staking.ContractAddress(),
		StakingToken: stakingToken,
	}, st.ledger, token.NewRegistry(), staking.SystemClock{}, publisher)
	if err != nil {
		return nil, nil, err
	}
	return engine, stakingToken, nil
}

// deployToken restores the staking token from store. On first start it mints
// the configured supply to the owner and funds the contract reserve ROI and
// referral bonuses are paid from.
func deployToken(ctx context.Context, cfg *config.StakingConfig, store token.StateStore) (*token.MemoryToken, error) {
	supply, err := cfg.Token.InitialSupplyAmount()
	if err != nil {
		return nil, err
	}
	funding, err := cfg.Token.ContractFundingAmount()
	if err != nil {
		return nil, err
	}

	owner := cfg.OwnerAddress()
	deployment := token.Deployment{
		Address:       cfg.Token.TokenAddress(),
		Name:          cfg.Token.Name,
		Symbol:        cfg.Token.Symbol,
		Deployer:      owner,
		InitialSupply: supply,
	}
	if !funding.IsZero() {
		deployment.Allocations = map[common.Address]*uint256.Int{cfg.ContractAddress(): funding}
	}

	tok, created, err := token.Deploy(ctx, store, deployment)
	if err != nil {
		return nil, err
	}

	msg := "staking token restored"
	if created {
		msg = "staking token deployed"
	}
	log.Ctx(ctx).Info().
		Str("token", tok.Address().Hex()).
		Str("symbol", tok.Symbol()).
		Str("owner", owner.Hex()).
		Msg(msg)
	return tok, nil
}
