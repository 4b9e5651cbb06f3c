package e2e_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	minioUser     = "minioadmin"
	minioPassword = "minioadmin"
)

var (
	testPool     *pgxpool.Pool
	testPoolOnce sync.Once
	testDSN      string

	minioOnce     sync.Once
	minioEndpoint string

	cleanupMu sync.Mutex
	cleanups  []func()
)

func registerCleanup(fn func()) {
	cleanupMu.Lock()
	defer cleanupMu.Unlock()
	cleanups = append(cleanups, fn)
}

// terminateSharedContainers stops the containers started by the tests.
func terminateSharedContainers() {
	cleanupMu.Lock()
	defer cleanupMu.Unlock()
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

// getSharedPostgresDatabase returns a shared PostgreSQL database for E2E tests.
// The container is reused across all tests for performance.
func getSharedPostgresDatabase(t *testing.T) (dsn string) {
	t.Helper()

	testPoolOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("testdb"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			t.Fatalf("failed to start postgres container: %v", err)
		}

		registerCleanup(func() {
			if testPool != nil {
				testPool.Close()
			}
			_ = testcontainers.TerminateContainer(pgContainer)
		})

		connectionStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			t.Fatalf("failed to get connection string: %v", err)
		}

		pool, err := pgxpool.New(ctx, connectionStr)
		if err != nil {
			t.Fatalf("could not connect to database: %v", err)
		}

		testPool = pool
		testDSN = connectionStr
	})

	if testDSN == "" {
		t.Fatal("postgres container is not available")
	}
	return testDSN
}

// getSharedMinio returns the host:port of a shared MinIO container.
func getSharedMinio(t *testing.T) string {
	t.Helper()

	minioOnce.Do(func() {
		ctx := context.Background()

		container, err := testcontainers.Run(ctx, "minio/minio:latest",
			testcontainers.WithExposedPorts("9000/tcp"),
			testcontainers.WithEnv(map[string]string{
				"MINIO_ROOT_USER":     minioUser,
				"MINIO_ROOT_PASSWORD": minioPassword,
			}),
			testcontainers.WithCmd("server", "/data"),
			testcontainers.WithWaitStrategy(wait.ForHTTP("/minio/health/live").WithPort("9000/tcp")),
		)
		if err != nil {
			t.Fatalf("failed to start minio container: %v", err)
		}

		registerCleanup(func() {
			_ = testcontainers.TerminateContainer(container)
		})

		endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "")
		if err != nil {
			t.Fatalf("failed to get minio endpoint: %v", err)
		}
		minioEndpoint = endpoint
	})

	if minioEndpoint == "" {
		t.Fatal("minio container is not available")
	}
	return minioEndpoint
}
