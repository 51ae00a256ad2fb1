//go:build e2e

package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/babylonlabs-io/simple-staking/e2etest/container"
	"github.com/babylonlabs-io/simple-staking/internal/api"
	"github.com/babylonlabs-io/simple-staking/internal/config"
	"github.com/babylonlabs-io/simple-staking/internal/db"
	"github.com/babylonlabs-io/simple-staking/internal/db/model"
	"github.com/babylonlabs-io/simple-staking/internal/queue"
	"github.com/babylonlabs-io/simple-staking/internal/staking"
	"github.com/babylonlabs-io/simple-staking/internal/token"
	"github.com/babylonlabs-io/simple-staking/internal/types"
	"github.com/babylonlabs-io/simple-staking/testutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

var eventWaitTimeOut = 40 * time.Second

const (
	startTime   = uint64(1_700_000_000)
	ownerSupply = uint64(1_000_000_000_000)
	reserve     = uint64(1_000_000_000)
)

type TestManager struct {
	Config    *config.Config
	Server    *httptest.Server
	Engine    *staking.Engine
	Token     *token.MemoryToken
	Clock     *staking.ManualClock
	DbClient  *db.Database
	Owner     common.Address
	Contract  common.Address
	eventChan <-chan amqp.Delivery
	queueConn *amqp.Connection
	publisher *queue.QueueManager
}

// StartManager runs mongo and rabbitmq and serves a staking engine backed by both
func StartManager(t *testing.T) *TestManager {
	ctx := context.Background()

	manager, err := container.NewManager(t)
	require.NoError(t, err)

	dbCfg, err := manager.RunMongoResource(t)
	require.NoError(t, err)
	queueCfg, err := manager.RunRabbitMQResource(t)
	require.NoError(t, err)

	cfg := DefaultStakingConfig(t)
	cfg.Db = dbCfg
	cfg.Queue = queueCfg

	require.NoError(t, model.Setup(ctx, cfg.Db))
	dbClient, err := db.New(ctx, *cfg.Db)
	require.NoError(t, err)

	publisher, err := queue.NewQueueManager(cfg.Queue)
	require.NoError(t, err)

	owner := cfg.Staking.OwnerAddress()
	contract := cfg.Staking.ContractAddress()
	tok, err := token.NewMemoryToken(cfg.Staking.Token.TokenAddress(), "Test Token", "TTK", owner, uint256.NewInt(ownerSupply))
	require.NoError(t, err)
	require.NoError(t, tok.Transfer(ctx, owner, contract, uint256.NewInt(reserve)))

	clock := staking.NewManualClock(startTime)
	engine, err := staking.NewEngine(staking.Config{
		Owner:        owner,
		Contract:     contract,
		StakingToken: tok,
	}, db.NewDbWithMetrics(dbClient), token.NewRegistry(), clock, publisher)
	require.NoError(t, err)

	srv, err := api.New(&cfg.Server, engine, tok, dbClient.Ping)
	require.NoError(t, err)
	server := httptest.NewServer(srv.Handler())

	queueConn, events := consumeStakingEvents(t, cfg)

	tm := &TestManager{
		Config:    cfg,
		Server:    server,
		Engine:    engine,
		Token:     tok,
		Clock:     clock,
		DbClient:  dbClient,
		Owner:     owner,
		Contract:  contract,
		eventChan: events,
		queueConn: queueConn,
		publisher: publisher,
	}
	t.Cleanup(func() {
		tm.Stop(t)
	})
	return tm
}

func (tm *TestManager) Stop(t *testing.T) {
	tm.Server.Close()
	tm.publisher.Shutdown()
	if err := tm.queueConn.Close(); err != nil {
		t.Logf("failed to close queue consumer: %v", err)
	}
	if err := tm.DbClient.Close(context.Background()); err != nil {
		t.Logf("failed to close db client: %v", err)
	}
}

// consumeStakingEvents declares the events queue the same way the publisher
// does and starts consuming it
func consumeStakingEvents(t *testing.T, cfg *config.Config) (*amqp.Connection, <-chan amqp.Delivery) {
	conn, err := amqp.Dial(queue.AmqpURL(cfg.Queue))
	require.NoError(t, err)
	ch, err := conn.Channel()
	require.NoError(t, err)

	_, err = ch.QueueDeclare(queue.StakingEventsQueueName, true, false, false, false, amqp.Table{
		"x-queue-type": cfg.Queue.QueueType,
	})
	require.NoError(t, err)

	deliveries, err := ch.Consume(queue.StakingEventsQueueName, "", true, false, false, false, nil)
	require.NoError(t, err)
	return conn, deliveries
}

func DefaultStakingConfig(t *testing.T) *config.Config {
	return &config.Config{
		Staking: config.StakingConfig{
			Owner:    testutil.RandomAddress(t).Hex(),
			Contract: testutil.RandomAddress(t).Hex(),
			Token: config.TokenConfig{
				Address: testutil.RandomAddress(t).Hex(),
				Symbol:  "TTK",
			},
		},
		Server: config.ServerConfig{
			Host:                "127.0.0.1",
			ReadTimeout:         5 * time.Second,
			WriteTimeout:        5 * time.Second,
			IdleTimeout:         5 * time.Second,
			MaxRequestBodyBytes: 1 << 20,
		},
		Poller: config.PollerConfig{
			ReservePollingInterval: time.Second,
		},
	}
}

// NewStaker funds a fresh account and approves the contract through the API
func (tm *TestManager) NewStaker(t *testing.T, amount uint64) common.Address {
	account := testutil.RandomAddress(t)
	require.NoError(t, tm.Token.Transfer(context.Background(), tm.Owner, account, uint256.NewInt(amount)))

	resp := tm.Post(t, "/v1/token/approve", account, api.ApproveRequest{Amount: uint256.NewInt(amount).Dec()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return account
}

func (tm *TestManager) Post(t *testing.T, path string, caller common.Address, body any) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(http.MethodPost, tm.Server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set(api.CallerHeader, caller.Hex())
	req.Header.Set("Content-Type", "application/json")

	resp, err := tm.Server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (tm *TestManager) Get(t *testing.T, path string, v any) {
	resp, err := tm.Server.Client().Get(tm.Server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// CheckNextStakingEvent waits for the next event on the queue and checks its type and account
func (tm *TestManager) CheckNextStakingEvent(t *testing.T, eventType types.EventType, account common.Address) *types.StakingEvent {
	select {
	case delivery := <-tm.eventChan:
		var event types.StakingEvent
		require.NoError(t, json.Unmarshal(delivery.Body, &event))
		require.Equal(t, eventType, event.EventType)
		require.Equal(t, account.Hex(), event.Account)
		return &event
	case <-time.After(eventWaitTimeOut):
		t.Fatalf("no %s event received for %s", eventType, account.Hex())
		return nil
	}
}
