package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
)

const keyPrefix = "world:"

var (
	ErrNotFound = errors.New("snapshot not found")
	ErrClosed   = errors.New("snapshot store closed")
)

// Store keeps named snapshots in a badger database.
type Store struct {
	mu     sync.RWMutex
	db     *badger.DB
	closed bool
}

// Open opens or creates a store in dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	return open(opts)
}

// OpenInMemory opens a store that is discarded on Close.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	return &Store{db: db}, nil
}

func key(name string) []byte { return []byte(keyPrefix + name) }

// Save stores s under name, replacing any previous snapshot.
func (st *Store) Save(name string, s *Snapshot) error {
	if name == "" {
		return fmt.Errorf("save snapshot: empty name")
	}
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return fmt.Errorf("save snapshot %q: %w", name, err)
	}

	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.closed {
		return ErrClosed
	}
	err := st.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(name), buf.Bytes())
	})
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", name, err)
	}
	return nil
}

// Load returns the snapshot stored under name.
func (st *Store) Load(name string) (*Snapshot, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.closed {
		return nil, ErrClosed
	}

	var data []byte
	err := st.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("load snapshot %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %q: %w", name, err)
	}

	s, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("load snapshot %q: %w", name, err)
	}
	return s, nil
}

// List returns the stored snapshot names, sorted.
func (st *Store) List() ([]string, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.closed {
		return nil, ErrClosed
	}

	var names []string
	err := st.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), keyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (st *Store) Delete(name string) error {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.closed {
		return ErrClosed
	}
	err := st.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(name))
	})
	if err != nil {
		return fmt.Errorf("delete snapshot %q: %w", name, err)
	}
	return nil
}

// Close is idempotent.
func (st *Store) Close() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return nil
	}
	st.closed = true
	return st.db.Close()
}
