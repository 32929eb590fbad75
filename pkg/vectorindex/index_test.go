package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithEmptyAddrReturnsNilIndex(t *testing.T) {
	idx, err := New("")
	require.NoError(t, err)
	assert.Nil(t, idx)
}

func TestNewWithInvalidAddrReturnsUnavailable(t *testing.T) {
	_, err := New("not-a-valid-addr")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSplitHostPort(t *testing.T) {
	host, port, err := splitHostPort("localhost:6334")
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 6334, port)
}
