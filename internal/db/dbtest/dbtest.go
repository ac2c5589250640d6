// Package dbtest starts the PostgreSQL and Redis instances the repository
// integration tests run against. DB_HOST_TEST and REDIS_URL_TEST point the
// tests at running servers; otherwise a container is started through Docker.
// Tests are skipped when neither is available and in -short mode.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/config"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/db"
)

const startupTimeout = 90 * time.Second

var (
	pgOnce sync.Once
	pg     *db.Postgres
	pgErr  error

	redisOnce   sync.Once
	redisClient *redis.Client
	redisErr    error

	mu         sync.Mutex
	containers []testcontainers.Container
)

// Postgres returns a migrated database shared by the whole test binary.
func Postgres(tb testing.TB) *db.Postgres {
	tb.Helper()
	if testing.Short() {
		tb.Skip("integration test skipped in -short mode")
	}

	pgOnce.Do(func() { pg, pgErr = startPostgres() })
	if pgErr != nil {
		tb.Skipf("postgres unavailable: %v", pgErr)
	}
	return pg
}

// Redis returns a client shared by the whole test binary.
func Redis(tb testing.TB) *redis.Client {
	tb.Helper()
	if testing.Short() {
		tb.Skip("integration test skipped in -short mode")
	}

	redisOnce.Do(func() { redisClient, redisErr = startRedis() })
	if redisErr != nil {
		tb.Skipf("redis unavailable: %v", redisErr)
	}
	return redisClient
}

// Truncate empties every storefront table.
func Truncate(tb testing.TB, p *db.Postgres) {
	tb.Helper()
	_, err := p.Pool.Exec(context.Background(), `
		TRUNCATE TABLE shipping_addresses, payments, order_items, orders,
			cart_items, carts, products, categories, users
		RESTART IDENTITY CASCADE`)
	require.NoError(tb, err, "failed to truncate tables")
}

// Shutdown closes connections and stops started containers. Call it from
// TestMain after m.Run.
func Shutdown() {
	if pg != nil {
		pg.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	mu.Lock()
	defer mu.Unlock()
	for _, c := range containers {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := c.Terminate(ctx); err != nil {
			log.Warn().Err(err).Msg("TEST SETUP: failed to terminate container")
		}
		cancel()
	}
	containers = nil
}

func migrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func startPostgres() (*db.Postgres, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	cfg := config.PostgresConfig{
		Host:           os.Getenv("DB_HOST_TEST"),
		Port:           getenv("DB_PORT_TEST", "5432"),
		User:           getenv("DB_USER_TEST", "postgres"),
		Password:       getenv("DB_PASSWORD_TEST", "postgres"),
		DBName:         getenv("DB_NAME_TEST", "storefront_test"),
		SSLMode:        getenv("DB_SSLMODE_TEST", "disable"),
		MaxConns:       5,
		MigrationsPath: migrationsPath(),
	}

	if cfg.Host == "" {
		c, err := startContainer(ctx, testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     cfg.User,
				"POSTGRES_PASSWORD": cfg.Password,
				"POSTGRES_DB":       cfg.DBName,
			},
			// Сервер перезапускается после initdb, поэтому ждём второе сообщение.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout),
		})
		if err != nil {
			return nil, err
		}

		host, err := c.Host(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get postgres host: %w", err)
		}
		port, err := c.MappedPort(ctx, "5432/tcp")
		if err != nil {
			return nil, fmt.Errorf("failed to get postgres port: %w", err)
		}
		cfg.Host, cfg.Port = host, port.Port()
	}

	p, err := db.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := p.ApplyMigrations(); err != nil {
		p.Close()
		return nil, err
	}

	log.Info().Str("host", cfg.Host).Str("port", cfg.Port).Msg("TEST SETUP: PostgreSQL is ready")
	return p, nil
}

func startRedis() (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	url := os.Getenv("REDIS_URL_TEST")
	if url == "" {
		c, err := startContainer(ctx, testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(startupTimeout),
		})
		if err != nil {
			return nil, err
		}

		host, err := c.Host(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get redis host: %w", err)
		}
		port, err := c.MappedPort(ctx, "6379/tcp")
		if err != nil {
			return nil, fmt.Errorf("failed to get redis port: %w", err)
		}
		url = fmt.Sprintf("redis://%s:%s/0", host, port.Port())
	}

	return db.NewRedis(ctx, url)
}

// startContainer turns a missing Docker daemon, which testcontainers reports
// by panicking, into an error.
func startContainer(ctx context.Context, req testcontainers.ContainerRequest) (c testcontainers.Container, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker is not available: %v", r)
		}
	}()

	c, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", req.Image, err)
	}

	mu.Lock()
	containers = append(containers, c)
	mu.Unlock()
	return c, nil
}
