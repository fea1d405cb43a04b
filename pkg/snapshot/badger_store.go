package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key layout for BadgerDB storage.
const (
	metaKey           = "snapshot:meta"
	everyoneKey       = "snapshot:everyone"
	resourceKeyPrefix = "snapshot:resource:"
	roleKeyPrefix     = "snapshot:role:"
)

// storeMeta records save time and registration order. Badger iterates in
// key order, so order is carried explicitly to keep restore deterministic.
type storeMeta struct {
	SavedAt   time.Time `json:"saved_at"`
	Resources []string  `json:"resources"`
	Roles     []string  `json:"roles"`
}

// BadgerStore persists snapshots in a BadgerDB document store: one record
// per resource and role plus the everyone rule map. The wholesale replace
// runs inside a single transaction, so a failed save leaves the prior
// snapshot readable.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore creates a store backed by an open BadgerDB handle. The
// caller owns the handle and closes it after the final save.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Load implements Store.
func (s *BadgerStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := &Snapshot{Everyone: make(map[string][]RightRecord)}
	err := s.db.View(func(txn *badger.Txn) error {
		var meta storeMeta
		if err := getJSON(txn, metaKey, &meta); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNoSnapshot
			}
			return err
		}
		snap.SavedAt = meta.SavedAt

		if err := getJSON(txn, everyoneKey, &snap.Everyone); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		for _, name := range meta.Resources {
			var record ResourceRecord
			if err := getJSON(txn, resourceKeyPrefix+name, &record); err != nil {
				return fmt.Errorf("resource %q: %w", name, err)
			}
			snap.Resources = append(snap.Resources, record)
		}
		for _, name := range meta.Roles {
			var record RoleRecord
			if err := getJSON(txn, roleKeyPrefix+name, &record); err != nil {
				return fmt.Errorf("role %q: %w", name, err)
			}
			snap.Roles = append(snap.Roles, record)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNoSnapshot) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("loading snapshot from badger: %w", err)
	}
	return snap, nil
}

// Save implements Store.
func (s *BadgerStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := deletePrefix(txn, resourceKeyPrefix); err != nil {
			return err
		}
		if err := deletePrefix(txn, roleKeyPrefix); err != nil {
			return err
		}

		meta := storeMeta{SavedAt: snap.SavedAt}
		for _, record := range snap.Resources {
			meta.Resources = append(meta.Resources, record.Name)
			if err := setJSON(txn, resourceKeyPrefix+record.Name, record); err != nil {
				return fmt.Errorf("resource %q: %w", record.Name, err)
			}
		}
		for _, record := range snap.Roles {
			meta.Roles = append(meta.Roles, record.Name)
			if err := setJSON(txn, roleKeyPrefix+record.Name, record); err != nil {
				return fmt.Errorf("role %q: %w", record.Name, err)
			}
		}
		if err := setJSON(txn, everyoneKey, snap.Everyone); err != nil {
			return err
		}
		return setJSON(txn, metaKey, meta)
	})
	if err != nil {
		return fmt.Errorf("saving snapshot to badger: %w", err)
	}
	return nil
}

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

func deletePrefix(txn *badger.Txn, prefix string) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
