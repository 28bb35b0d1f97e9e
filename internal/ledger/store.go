package ledger

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/database/memdb"
)

// Store is the typed key-value substrate every component reads and writes
// through. It wraps a github.com/luxfi/database.Database the same way
// luxfi-adx's pkg/storage.Storage does, adding gob encode/decode around the
// raw []byte Put/Get pair so callers exchange Go values, not bytes.
//
// There is no in-memory cache (spec §9: "no in-memory cache, because every
// transaction is a fresh invocation") — every Get is a fresh read from db.
type Store struct {
	db database.Database
}

// NewMemStore opens an in-memory backend, suitable for tests and short-lived
// embeddings.
func NewMemStore() *Store {
	return &Store{db: memdb.New()}
}

// NewBadgerStore opens an on-disk badger-backed store at path.
func NewBadgerStore(path string) (*Store, error) {
	db, err := badgerdb.New(path, nil, "", nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: open badger store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("ledger: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("ledger: decode: %w", err)
	}
	return nil
}

// Put gob-encodes v and stores it under key, outside of any Txn.
func (s *Store) Put(key []byte, v any) error {
	raw, err := encode(v)
	if err != nil {
		return err
	}
	return s.db.Put(key, raw)
}

// Get decodes the value stored under key into v. Returns (false, nil) if the
// key is absent.
func (s *Store) Get(key []byte, v any) (bool, error) {
	ok, err := s.db.Has(key)
	if err != nil {
		return false, fmt.Errorf("ledger: has: %w", err)
	}
	if !ok {
		return false, nil
	}
	raw, err := s.db.Get(key)
	if err != nil {
		return false, fmt.Errorf("ledger: get: %w", err)
	}
	return true, decode(raw, v)
}

// Has reports whether key is present.
func (s *Store) Has(key []byte) (bool, error) { return s.db.Has(key) }

// Delete removes key unconditionally.
func (s *Store) Delete(key []byte) error { return s.db.Delete(key) }

// Iterate invokes fn for every key with the given prefix, in key order,
// until fn returns false or the iterator is exhausted.
func (s *Store) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	it := s.db.NewIteratorWithPrefix(prefix)
	defer it.Release()
	for it.Next() {
		if !fn(it.Key(), it.Value()) {
			break
		}
	}
	return it.Error()
}

// Txn batches a set of writes so they commit atomically, implementing spec
// §5's "all storage mutations within it commit together" requirement. A Txn
// is single-use: call Commit exactly once.
type Txn struct {
	store *Store
	batch database.Batch
}

// Begin starts a new write batch.
func (s *Store) Begin() *Txn {
	return &Txn{store: s, batch: s.db.NewBatch()}
}

// Put stages a write; it is not visible to readers until Commit.
func (t *Txn) Put(key []byte, v any) error {
	raw, err := encode(v)
	if err != nil {
		return err
	}
	return t.batch.Put(key, raw)
}

// Delete stages a deletion.
func (t *Txn) Delete(key []byte) error { return t.batch.Delete(key) }

// Get reads through to the underlying store (the batch itself is
// write-only); callers needing read-your-writes within one operation must
// track staged values themselves, which every component in this module
// does by operating on in-memory structs and writing them once at the end.
func (t *Txn) Get(key []byte, v any) (bool, error) { return t.store.Get(key, v) }

// Commit writes every staged mutation atomically.
func (t *Txn) Commit() error {
	if err := t.batch.Write(); err != nil {
		return fmt.Errorf("ledger: commit: %w", err)
	}
	return nil
}

// Discard abandons the batch without writing anything. Safe to call after a
// validation failure that occurred before any Put/Delete was staged, or as
// a defensive no-op alongside an early return — the batch only takes effect
// on Commit.
func (t *Txn) Discard() { t.batch.Reset() }
