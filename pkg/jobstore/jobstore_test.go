package jobstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nellia/prospectord/pkg/jobstore"
	"github.com/nellia/prospectord/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestStore(t *testing.T) *jobstore.Store {
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := jobstore.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	return store
}

func TestPutThenGetRoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "job-1", []byte(`{"confidence":0.85}`)))
	blob, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, `{"confidence":0.85}`, string(blob))
}

func TestGetUnknownKeyReturnsErrNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, persistence.ErrNotFound))
}

func TestPutUpsertsOnRepeatedKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "job-1", []byte("first")))
	require.NoError(t, store.Put(ctx, "job-1", []byte("second")))

	blob, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "second", string(blob))
}

func TestDeleteOlderThanOnlyRemovesExpiredRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "old", []byte("stale")))
	time.Sleep(50 * time.Millisecond)
	cutoff := time.Now()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, store.Put(ctx, "fresh", []byte("kept")))

	count, err := store.DeleteOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	_, err = store.Get(ctx, "old")
	assert.True(t, errors.Is(err, persistence.ErrNotFound))

	blob, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "kept", string(blob))
}
