package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nellia/prospectord/pkg/persistence"
	"github.com/nellia/prospectord/pkg/persistence/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutThenGetRoundTrips(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "job-1", []byte(`{"a":1}`)))
	blob, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(blob))
}

func TestGetUnknownKeyReturnsErrNotFound(t *testing.T) {
	s := memstore.New()
	_, err := s.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, persistence.ErrNotFound))
}

func TestPutOverwritesPriorValue(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "job-1", []byte("first")))
	require.NoError(t, s.Put(ctx, "job-1", []byte("second")))

	blob, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "second", string(blob))
}

func TestGetReturnsACopyNotTheInternalSlice(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "job-1", []byte("original")))

	blob, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	blob[0] = 'X'

	again, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "original", string(again))
}
