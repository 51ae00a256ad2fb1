//go:build e2e

package container

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/babylonlabs-io/simple-staking/internal/config"
	"github.com/babylonlabs-io/simple-staking/internal/db"
	"github.com/babylonlabs-io/simple-staking/internal/queue"
	"github.com/babylonlabs-io/simple-staking/testutil"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	queueConfig "github.com/babylonlabs-io/staking-queue-client/config"
)

const (
	mongoUsername = "user"
	mongoPassword = "password"
	mongoDatabase = "simple-staking-e2e"

	rabbitUsername = "user"
	rabbitPassword = "password"
)

// Manager runs the backing services of the staking server in docker
type Manager struct {
	cfg       ImageConfig
	pool      *dockertest.Pool
	resources []*dockertest.Resource
}

func NewManager(t *testing.T) (*Manager, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, err
	}
	m := &Manager{cfg: NewImageConfig(), pool: pool}
	t.Cleanup(func() {
		m.ClearResources(t)
	})
	return m, nil
}

func (m *Manager) run(t *testing.T, opts *dockertest.RunOptions) (*dockertest.Resource, error) {
	suffix, err := testutil.RandomAlphaNum(4)
	require.NoError(t, err)
	// container names must be unique, stale containers of a previous run may still exist
	opts.Name = opts.Name + "-" + suffix

	resource, err := m.pool.RunWithOptions(opts, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, err
	}
	m.resources = append(m.resources, resource)
	return resource, nil
}

// RunMongoResource starts mongodb and waits until it accepts connections
func (m *Manager) RunMongoResource(t *testing.T) (*config.DbConfig, error) {
	resource, err := m.run(t, &dockertest.RunOptions{
		Name:       "simple-staking-e2e-mongo",
		Repository: m.cfg.MongoRepository,
		Tag:        m.cfg.MongoVersion,
		Env: []string{
			"MONGO_INITDB_ROOT_USERNAME=" + mongoUsername,
			"MONGO_INITDB_ROOT_PASSWORD=" + mongoPassword,
			"MONGO_INITDB_DATABASE=" + mongoDatabase,
		},
	})
	if err != nil {
		return nil, err
	}

	cfg := &config.DbConfig{
		Username: mongoUsername,
		Password: mongoPassword,
		DbName:   mongoDatabase,
		Address:  fmt.Sprintf("mongodb://localhost:%s/", resource.GetPort("27017/tcp")),
	}
	err = m.pool.Retry(func() error {
		client, err := db.New(context.Background(), *cfg)
		if err != nil {
			return err
		}
		defer client.Close(context.Background())
		return client.Ping(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("mongo did not become ready: %w", err)
	}
	return cfg, nil
}

// RunRabbitMQResource starts the broker and waits until it accepts connections
func (m *Manager) RunRabbitMQResource(t *testing.T) (*queueConfig.QueueConfig, error) {
	resource, err := m.run(t, &dockertest.RunOptions{
		Name:       "simple-staking-e2e-rabbitmq",
		Repository: m.cfg.RabbitMQRepository,
		Tag:        m.cfg.RabbitMQVersion,
		Env: []string{
			"RABBITMQ_DEFAULT_USER=" + rabbitUsername,
			"RABBITMQ_DEFAULT_PASS=" + rabbitPassword,
		},
	})
	if err != nil {
		return nil, err
	}

	cfg := &queueConfig.QueueConfig{
		QueueUser:              rabbitUsername,
		QueuePassword:          rabbitPassword,
		Url:                    "localhost:" + resource.GetPort("5672/tcp"),
		QueueProcessingTimeout: 5 * time.Second,
		MsgMaxRetryAttempts:    3,
		QueueType:              "quorum",
	}
	err = m.pool.Retry(func() error {
		conn, err := amqp.Dial(queue.AmqpURL(cfg))
		if err != nil {
			return err
		}
		return conn.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq did not become ready: %w", err)
	}
	return cfg, nil
}

// ClearResources removes all outstanding containers
func (m *Manager) ClearResources(t *testing.T) {
	for _, resource := range m.resources {
		if err := m.pool.Purge(resource); err != nil {
			t.Logf("failed to purge %s: %v", resource.Container.Name, err)
		}
	}
	m.resources = nil
}
