package snapshot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ipfs-force-community/sectorbuilder/pkg/kvstore"
)

func TestStoreLoadMissingKeyIsNotAnError(t *testing.T) {
	s := NewStore(kvstore.NewMemory())

	v, found, err := s.Load(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, v)
}

func TestStorePutThenLoad(t *testing.T) {
	s := NewStore(kvstore.NewMemory())

	require.NoError(t, s.Put(context.Background(), "k", []byte("v")))

	v, found, err := s.Load(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("v"), v)
}
