// internal/reflog/storage/store.go
package storage

import (
	"fmt"
	"time"

	"wit/internal/reflog"
	"wit/internal/storage"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const prefix = "reflog"

// Store keeps reflog entries in badger. Ids are UUIDv7, so key order is
// creation order.
type Store struct {
	store *storage.BadgerStore
	now   func() time.Time
}

var _ reflog.Box = (*Store)(nil)

func NewStore(db *badger.DB) *Store {
	return &Store{
		store: storage.NewBadgerStore(db, prefix),
		now:   time.Now,
	}
}

// entryEntity wraps reflog.Entry to implement storage.Entity
type entryEntity struct {
	*reflog.Entry
}

func (e *entryEntity) GetID() string {
	return e.ID
}

func (s *Store) Append(e *reflog.Entry) error {
	if err := reflog.ValidateEntry(e); err != nil {
		return fmt.Errorf("invalid reflog entry: %w", err)
	}

	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generating entry id: %w", err)
		}
		e.ID = id.String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}

	return s.store.Create(&entryEntity{Entry: e})
}

func (s *Store) Get(id string) (*reflog.Entry, error) {
	entity := entryEntity{Entry: &reflog.Entry{}}
	if err := s.store.Get(id, &entity); err != nil {
		return nil, fmt.Errorf("getting reflog entry: %w", err)
	}
	return entity.Entry, nil
}

func (s *Store) List(ref string, limit int) ([]*reflog.Entry, error) {
	all, err := storage.ListAs[reflog.Entry](s.store)
	if err != nil {
		return nil, fmt.Errorf("listing reflog: %w", err)
	}

	// Newest first.
	var entries []*reflog.Entry
	for i := len(all) - 1; i >= 0; i-- {
		if ref != "" && all[i].Ref != ref {
			continue
		}
		entries = append(entries, &all[i])
		if limit > 0 && len(entries) == limit {
			break
		}
	}
	return entries, nil
}
