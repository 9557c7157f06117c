package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/juhojo/blabbermouth/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs the migrations against a throwaway postgres:16-alpine
// container. The test is skipped in short mode or when Docker is missing.
func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping PostgreSQL integration test in short mode")
	}

	// testcontainers panics when no Docker host can be found
	defer func() {
		if r := recover(); r != nil {
			t.Skipf("Skipping PostgreSQL test: Docker not available (panic: %v)", r)
		}
	}()

	ctx := context.Background()
	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("blabbermouth"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("Skipping PostgreSQL test: Docker not available (%v)", err)
	}
	t.Cleanup(func() {
		if err := pg.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.ConnectPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}

func TestPostgres_Invariants(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	users := NewUserService(db)
	passcodes := NewPasscodeService(db)
	configs := NewConfigService(db)
	fields := NewFieldService(db)
	keys := NewKeyService(db)

	alice, err := users.Create(ctx, "alice@example.com")
	require.NoError(t, err)
	bob, err := users.Create(ctx, "bob@example.com")
	require.NoError(t, err)

	_, err = users.Create(ctx, "alice@example.com")
	assert.ErrorIs(t, err, ErrConflict)

	t.Run("one passcode per user", func(t *testing.T) {
		_, err := passcodes.Issue(ctx, bob.ID)
		require.NoError(t, err)

		_, err = passcodes.Issue(ctx, alice.ID)
		require.NoError(t, err)
		second, err := passcodes.Issue(ctx, alice.ID)
		require.NoError(t, err)

		assert.Equal(t, 1, countRows(t, db, `SELECT count(*) FROM passcodes WHERE user_id = $1`, alice.ID))
		assert.Equal(t, 1, countRows(t, db, `SELECT count(*) FROM passcodes WHERE user_id = $1`, bob.ID))

		current, err := passcodes.Current(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, current.ID)
		assert.Equal(t, second.Value, current.Value)
	})

	t.Run("config delete removes key and fields", func(t *testing.T) {
		cfg, err := configs.Create(ctx, alice.ID, "staging")
		require.NoError(t, err)
		_, err = fields.Create(ctx, cfg.ID, "HOST", "db.internal")
		require.NoError(t, err)
		_, err = fields.Create(ctx, cfg.ID, "PORT", "5432")
		require.NoError(t, err)

		ok, err := keys.IsValidKey(ctx, cfg.Key.Value)
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, configs.Delete(ctx, alice.ID, cfg.ID))

		assert.Zero(t, countRows(t, db, `SELECT count(*) FROM keys WHERE config_id = $1`, cfg.ID))
		assert.Zero(t, countRows(t, db, `SELECT count(*) FROM fields WHERE config_id = $1`, cfg.ID))
		ok, err = keys.IsValidKey(ctx, cfg.Key.Value)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("user delete cascades", func(t *testing.T) {
		cfg, err := configs.Create(ctx, alice.ID, "production")
		require.NoError(t, err)
		_, err = fields.Create(ctx, cfg.ID, "LOG_LEVEL", "info")
		require.NoError(t, err)

		require.NoError(t, users.Delete(ctx, alice.ID))

		assert.Zero(t, countRows(t, db, `SELECT count(*) FROM passcodes WHERE user_id = $1`, alice.ID))
		assert.Zero(t, countRows(t, db, `SELECT count(*) FROM configs WHERE owner_id = $1`, alice.ID))
		assert.Zero(t, countRows(t, db, `SELECT count(*) FROM keys WHERE config_id = $1`, cfg.ID))
		assert.Zero(t, countRows(t, db, `SELECT count(*) FROM fields WHERE config_id = $1`, cfg.ID))

		// other users are untouched
		assert.Equal(t, 1, countRows(t, db, `SELECT count(*) FROM passcodes WHERE user_id = $1`, bob.ID))
	})
}
