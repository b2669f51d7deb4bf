package snapshot

import (
	"context"
	"errors"

	"github.com/ipfs-force-community/sectorbuilder/core"
	"github.com/ipfs-force-community/sectorbuilder/pkg/kvstore"
)

// Store adapts a pkg/kvstore.KVStore into the core.SnapshotStore interface
// the metadata manager checkpoints against.
type Store struct {
	kv kvstore.KVStore
}

var _ core.SnapshotStore = (*Store)(nil)

func NewStore(kv kvstore.KVStore) *Store {
	return &Store{kv: kv}
}

func (s *Store) Load(_ context.Context, key string) ([]byte, bool, error) {
	v, err := s.kv.Get([]byte(key))
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	return s.kv.Put([]byte(key), value)
}
