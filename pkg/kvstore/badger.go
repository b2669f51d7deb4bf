package kvstore

import (
	"errors"

	"github.com/dgraph-io/badger/v2"

	"github.com/ipfs-force-community/sectorbuilder/pkg/logging"
)

var log = logging.New("kvstore")

// Badger is a KVStore backed by a BadgerDB instance on local disk.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (creating if necessary) a BadgerDB at dir.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Badger{db: db}, nil
}

func (b *Badger) Get(key []byte) ([]byte, error) {
	var out []byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})

	return out, err
}

func (b *Badger) Put(key, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		log.Errorw("put", "key", string(key), "err", err)
	}
	return err
}

func (b *Badger) Close() error {
	return b.db.Close()
}
