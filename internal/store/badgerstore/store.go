// Package badgerstore persists plants and the session user in an embedded Badger database.
package badgerstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/plantcare/internal/domain"
	"github.com/listenupapp/plantcare/internal/store"
)

var (
	plantsKey   = []byte(store.KeyPlants)
	revisionKey = []byte(store.KeyPlants + ":rev")
	sessionKey  = []byte(store.KeySession)
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Pinger = (*Store)(nil)
)

// Open opens (or creates) the database in dir.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Every mutation is durable before the call returns
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", dir)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Ping reports whether the database is still open.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return store.ErrClosed
	}
	return nil
}

// LoadPlants implements store.Store.
func (s *Store) LoadPlants(_ context.Context) (*store.PlantSnapshot, error) {
	snap := &store.PlantSnapshot{Plants: []domain.Plant{}}
	err := s.db.View(func(txn *badger.Txn) error {
		rev, err := readRevision(txn)
		if err != nil {
			return err
		}
		snap.Revision = rev

		raw, err := get(txn, plantsKey)
		if err != nil {
			return err
		}
		snap.Plants, err = store.DecodePlants(raw)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load plants: %w", err)
	}
	return snap, nil
}

// SavePlants implements store.Store. The revision check and both writes run in
// one transaction; a concurrent writer surfaces as badger.ErrConflict.
func (s *Store) SavePlants(_ context.Context, plants []domain.Plant, expected uint64) (uint64, error) {
	data, err := store.EncodePlants(plants)
	if err != nil {
		return 0, fmt.Errorf("encode plants: %w", err)
	}

	var next uint64
	err = s.db.Update(func(txn *badger.Txn) error {
		current, err := readRevision(txn)
		if err != nil {
			return err
		}
		if current != expected {
			return store.ErrRevisionConflict
		}
		next = current + 1
		if err := txn.Set(plantsKey, data); err != nil {
			return err
		}
		return txn.Set(revisionKey, binary.BigEndian.AppendUint64(nil, next))
	})
	if errors.Is(err, badger.ErrConflict) {
		return 0, store.ErrRevisionConflict.WithCause(err)
	}
	if err != nil {
		return 0, fmt.Errorf("save plants: %w", err)
	}
	return next, nil
}

// LoadSession implements store.Store.
func (s *Store) LoadSession(_ context.Context) (*domain.User, error) {
	var user *domain.User
	err := s.db.View(func(txn *badger.Txn) error {
		raw, err := get(txn, sessionKey)
		if err != nil {
			return err
		}
		user, err = store.DecodeSession(raw)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return user, nil
}

// SaveSession implements store.Store.
func (s *Store) SaveSession(ctx context.Context, user *domain.User) error {
	if user == nil {
		return s.ClearSession(ctx)
	}
	data, err := store.EncodeSession(user)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey, data)
	})
}

// ClearSession implements store.Store.
func (s *Store) ClearSession(_ context.Context) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey)
	})
}

// get returns a copy of the value at key, or nil when the key is absent.
func get(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func readRevision(txn *badger.Txn) (uint64, error) {
	raw, err := get(txn, revisionKey)
	if err != nil || raw == nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, store.ErrCorrupt.WithCause(fmt.Errorf("revision has %d bytes", len(raw)))
	}
	return binary.BigEndian.Uint64(raw), nil
}
