//go:build integration

package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "newsradar_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/newsradar_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	// Run migrations
	m, err := migrate.New(fmt.Sprintf("file://%s", getMigrationsPath()), dsn)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
	}
	return testEnv
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// InsertKeyword creates an active keyword row and returns its ID.
func InsertKeyword(t *testing.T, env *TestEnv, userID uuid.UUID, text string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := env.Pool.QueryRow(context.Background(),
		`INSERT INTO keywords (user_id, text) VALUES ($1, $2) RETURNING id`,
		userID, text,
	).Scan(&id)
	if err != nil {
		t.Fatalf("inserting keyword: %v", err)
	}
	return id
}

// CleanTables truncates the mutable tables between tests.
func CleanTables(t *testing.T, env *TestEnv) {
	t.Helper()
	_, err := env.Pool.Exec(context.Background(),
		`TRUNCATE keywords, articles, keyword_articles, fetch_history, search_query_usage, token_usage CASCADE`)
	if err != nil {
		t.Fatalf("truncating tables: %v", err)
	}
	if err := env.RedisClient.FlushAll(context.Background()).Err(); err != nil {
		t.Fatalf("flushing redis: %v", err)
	}
}
