// Package dbtest starts a throwaway PostgreSQL for integration tests.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/p-n-ai/pai-solutions/internal/platform/config"
	"github.com/p-n-ai/pai-solutions/internal/platform/database"
)

const image = "postgres:16-alpine"

// tables are emptied between tests when an external database is reused.
var tables = []string{"webhook_events", "profiles", "solutions", "questions", "content_nodes", "resources"}

// New returns a migrated database. It uses STUDY_TEST_DATABASE_URL when set and
// otherwise starts a container. The test is skipped in -short mode or when
// Docker is not available.
func New(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	url := os.Getenv("STUDY_TEST_DATABASE_URL")
	external := url != ""
	if !external {
		testcontainers.SkipIfProviderIsNotHealthy(t)

		ctr, err := postgres.Run(ctx, image,
			postgres.WithDatabase("study"),
			postgres.WithUsername("study"),
			postgres.WithPassword("study"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			t.Skipf("postgres container unavailable: %v", err)
		}
		t.Cleanup(func() {
			if err := testcontainers.TerminateContainer(ctr); err != nil {
				t.Logf("terminate postgres container: %v", err)
			}
		})

		url, err = ctr.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			t.Fatalf("container connection string: %v", err)
		}
	}

	db, err := database.Open(ctx, config.DatabaseConfig{URL: url, MaxConns: 4, MinConns: 1})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	if external {
		for _, table := range tables {
			if _, err := db.Pool.Exec(ctx, "TRUNCATE "+table+" CASCADE"); err != nil {
				t.Fatalf("truncate %s: %v", table, err)
			}
		}
	}
	return db
}
