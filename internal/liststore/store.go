// Package liststore persists the hub's administrative record lists: bans,
// nickname bans, allows, registrations, operator permissions, linked hubs
// and the message of the day.
//
// The lists live in a BadgerDB database under the hub's config directory,
// with msgpack-encoded records. Badger's transactions replace the advisory
// file locks the flat-file layout needed; multiple workers share a single
// Store handle. Mutating operations report an integer result code because
// scripts observe the code, not the rendered confirmation text.
package liststore

import (
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/NareshPS/FBOpenDCHub/internal/logger"
)

// Result codes for mutating operations. Scripts depend on the numeric
// values; they mirror what the protocol has always reported.
const (
	ResultError     = -1 // storage failure
	ResultNone      = 0  // already present on add, absent on remove
	ResultOK        = 1
	ResultBadFormat = 2 // malformed input
	ResultExists    = 3 // entry already present (registration, permission)
	ResultNotOp     = 4 // permission target is not an operator
)

// Key namespaces. A record's key is its namespace plus the lower-cased
// identifying field, so lookups are case-insensitive point reads.
const (
	prefixBan     = "ban:"
	prefixNickBan = "nickban:"
	prefixAllow   = "allow:"
	prefixReg     = "reg:"
	prefixPerm    = "perm:"
	prefixLink    = "link:"
	keyMotd       = "motd"
)

// Store is the handle to the persisted lists. Safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the list database in dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open list store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store with no backing files. Used by tests and by
// hubs running without a config directory.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory list store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(prefix, name string) []byte {
	return []byte(prefix + strings.ToLower(name))
}

// get unmarshals the record at key into out. Returns false when absent.
func (s *Store) get(key []byte, out any) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, out)
		})
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) put(key []byte, record any) error {
	val, err := msgpack.Marshal(record)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

// delete removes key. Returns false when the key was absent.
func (s *Store) delete(key []byte) (bool, error) {
	found := false
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		found = true
		return txn.Delete(key)
	})
	return found, err
}

// scan visits every record under prefix. fn receives the raw value; a
// decode failure is logged and the record skipped rather than aborting
// the scan.
func (s *Store) scan(prefix string, fn func(key string, val []byte)) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if err := item.Value(func(val []byte) error {
				fn(key, val)
				return nil
			}); err != nil {
				logger.Warn("list store: unreadable record %s: %v", key, err)
			}
		}
		return nil
	})
}
