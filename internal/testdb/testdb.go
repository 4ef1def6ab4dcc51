package testdb

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/tasknotify/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// URLEnv names the environment variable holding the test database URL.
const URLEnv = "DATABASE_URL"

// Timeout bounds connection and migration steps.
const Timeout = 30 * time.Second

var (
	migrateOnce sync.Once
	migrateErr  error
)

// Open connects to the test database and brings its schema up to date.
// The test is skipped when URLEnv is unset. The connection is closed when
// the test finishes.
func Open(t *testing.T) *sqlx.DB {
	t.Helper()

	url := os.Getenv(URLEnv)
	if url == "" {
		t.Skipf("%s not set, skipping database test", URLEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "pgx", url)
	require.NoError(t, err, "failed to connect to test database")
	t.Cleanup(func() { _ = db.Close() })

	migrateOnce.Do(func() {
		quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
		migrateErr = postgres.Migrate(ctx, db.DB, "up", quiet)
	})
	require.NoError(t, migrateErr, "failed to migrate test database")

	return db
}

// WithTx runs fn inside a transaction that is always rolled back.
func WithTx(t *testing.T, db *sqlx.DB, fn func(t *testing.T, tx *sqlx.Tx)) {
	t.Helper()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err, "failed to begin transaction")

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("failed to roll back test transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// CreateUser inserts a user with the given username and returns its ID.
// The username is suffixed to stay unique across parallel tests.
func CreateUser(t *testing.T, tx *sqlx.Tx, username string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := tx.ExecContext(context.Background(),
		`INSERT INTO users (id, username) VALUES ($1, $2)`,
		id, username+"-"+id.String()[:8])
	require.NoError(t, err, "failed to create test user")
	return id
}
