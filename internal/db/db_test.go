package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func tableExists(t *testing.T, database *DB, name string) bool {
	t.Helper()
	var n int
	err := database.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestOpen_AppliesMigrations(t *testing.T) {
	database := openTestDB(t)

	for _, table := range []string{"questions", "review_cards", "answer_logs", "attempts", "quiz_sessions"} {
		assert.True(t, tableExists(t, database, table), table)
	}

	// a second run is a no-op
	require.NoError(t, database.Migrate(context.Background()))
}

func TestApplyMigration_FailureRollsBack(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	err := database.applyMigration(ctx, "9999_broken.sql",
		`CREATE TABLE half_done (id INTEGER PRIMARY KEY); CREATE TABLE broken (`)
	require.Error(t, err)

	assert.False(t, tableExists(t, database, "half_done"))
	applied, err := database.isMigrationApplied(ctx, "9999_broken.sql")
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestApplyMigration_RecordsVersion(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, database.applyMigration(ctx, "9999_extra.sql", `CREATE TABLE extra (id INTEGER PRIMARY KEY)`))

	assert.True(t, tableExists(t, database, "extra"))
	applied, err := database.isMigrationApplied(ctx, "9999_extra.sql")
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)
	assert.Equal(t, "SELECT $1", d.Rebind("SELECT ?"))

	_, err = ParseDialect("mysql")
	assert.Error(t, err)
}
