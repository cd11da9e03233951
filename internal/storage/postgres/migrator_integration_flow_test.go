package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrator_PostgresLifecycle(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	require.NoError(t, store.MigrateDown(ctx, 100))
	state, err := store.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.Version)
	assert.Equal(t, []string{"0001_audit_events", "0002_outbox_messages", "0003_outbox_retention"}, state.Pending)

	require.NoError(t, store.MigrateUp(ctx, 1))
	state, err = store.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.Version)
	assert.Equal(t, []string{"0002_outbox_messages", "0003_outbox_retention"}, state.Pending)

	require.NoError(t, store.MigrateUp(ctx, 0))
	require.NoError(t, store.MigrateUp(ctx, 0))
	state, err = store.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), state.Version)
	assert.Equal(t, 3, state.Applied)
	assert.Empty(t, state.Pending)

	require.NoError(t, store.MigrateDown(ctx, 0))
	state, err = store.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), state.Version)

	require.NoError(t, store.MigrateUp(ctx, 0))
}

func TestMigrator_NilStoreGuards(t *testing.T) {
	var nilStore *Store
	ctx := context.Background()

	assert.ErrorIs(t, nilStore.MigrateUp(ctx, 0), errStoreNotInitialized)
	assert.ErrorIs(t, nilStore.MigrateDown(ctx, 1), errStoreNotInitialized)
	_, err := nilStore.MigrationStatus(ctx)
	assert.ErrorIs(t, err, errStoreNotInitialized)
	assert.ErrorIs(t, nilStore.Ping(ctx), errStoreNotInitialized)
	assert.NoError(t, nilStore.Close())
}
