package migrate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSQLMigrationSequencesAfterEmbedded(t *testing.T) {
	dir := t.TempDir()
	// A clock behind the embedded set must still sort after it.
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "Add Order Notes!", past)
	require.NoError(t, err)
	assert.Equal(t, "20250601120201_add_order_notes.sql", filepath.Base(path))

	next, err := CreateSQLMigration(dir, "add_order_tags", past)
	require.NoError(t, err)
	assert.Equal(t, "20250601120202_add_order_tags.sql", filepath.Base(next))

	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationUsesClockWhenAhead(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 2, 3, 4, 5, 6, 700, time.FixedZone("x", 3600))

	path, err := CreateSQLMigration(dir, "add_gift_wrap", now)
	require.NoError(t, err)
	assert.Equal(t, "20260203030506_add_gift_wrap.sql", filepath.Base(path))
}

func TestCreateSQLMigrationTableSkeleton(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "create_return_labels", time.Now())
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(b)
	assert.Contains(t, body, "CREATE TABLE IF NOT EXISTS return_labels")
	assert.Contains(t, body, "ix_return_labels_created_at ON return_labels (created_at DESC, id DESC)")
	assert.Contains(t, body, "DROP TABLE IF EXISTS return_labels;")
}

func TestCreateSQLMigrationRejectsBadInput(t *testing.T) {
	_, err := CreateSQLMigration("", "x", time.Now())
	assert.Error(t, err)

	_, err = CreateSQLMigration(t.TempDir(), " !!! ", time.Now())
	assert.Error(t, err)
}
