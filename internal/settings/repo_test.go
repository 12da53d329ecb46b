package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSettingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS app_settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestRepositoryGetMissingKey(t *testing.T) {
	repo := NewRepository(setupSettingsTestDB(t))

	value, found, err := repo.Get(context.Background(), KeyWeeklyCutoffDay)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, value)
}

func TestRepositorySetThenGet(t *testing.T) {
	repo := NewRepository(setupSettingsTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, KeyWeeklyCutoffDay, "Wednesday"))

	value, found, err := repo.Get(ctx, KeyWeeklyCutoffDay)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Wednesday", value)
}

func TestRepositorySetUpsertsExistingKey(t *testing.T) {
	repo := NewRepository(setupSettingsTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, KeyWeeklyCutoffTime, "17:00"))
	require.NoError(t, repo.Set(ctx, KeyWeeklyCutoffTime, "12:30"))

	value, found, err := repo.Get(ctx, KeyWeeklyCutoffTime)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "12:30", value)
}
