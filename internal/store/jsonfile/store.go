// Package jsonfile persists plants and the session user as JSON documents in a directory.
//
// plants_storage.json holds {"revision": n, "plants": [...]}; a bare array
// (an export of the browser key) is accepted and read as revision 0.
// plants_user.json holds the session user. Writes go through a temp file and
// rename, so readers never observe a partial document.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/listenupapp/plantcare/internal/domain"
	"github.com/listenupapp/plantcare/internal/store"
)

const (
	plantsFile  = store.KeyPlants + ".json"
	sessionFile = store.KeySession + ".json"
)

type document struct {
	Revision uint64          `json:"revision"`
	Plants   json.RawMessage `json:"plants"`
}

// Store keeps the persisted keys as files under dir.
type Store struct {
	dir    string
	logger *slog.Logger

	mu sync.Mutex
	// lastWritten is the revision this process wrote most recently, so the
	// watcher can tell its own writes from foreign ones.
	lastWritten uint64
}

var (
	_ store.Store   = (*Store)(nil)
	_ store.Watcher = (*Store)(nil)
	_ store.Pinger  = (*Store)(nil)
)

// Open prepares dir for use, creating it if needed.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// Ping checks that the data directory is still reachable.
func (s *Store) Ping(_ context.Context) error {
	_, err := os.Stat(s.dir)
	return err
}

// LoadPlants implements store.Store.
func (s *Store) LoadPlants(_ context.Context) (*store.PlantSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readPlants()
}

func (s *Store) readPlants() (*store.PlantSnapshot, error) {
	raw, err := s.read(plantsFile)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return &store.PlantSnapshot{Plants: []domain.Plant{}}, nil
	}

	if raw[0] == '[' {
		plants, err := store.DecodePlants(raw)
		if err != nil {
			return nil, err
		}
		return &store.PlantSnapshot{Plants: plants}, nil
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, store.ErrCorrupt.WithCause(err)
	}
	plants, err := store.DecodePlants(doc.Plants)
	if err != nil {
		return nil, err
	}
	return &store.PlantSnapshot{Plants: plants, Revision: doc.Revision}, nil
}

// SavePlants implements store.Store. The revision check guards writers in
// this process; another process writing between the read and the rename
// can still win.
func (s *Store) SavePlants(_ context.Context, plants []domain.Plant, expected uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.readPlants()
	if err != nil {
		return 0, err
	}
	if current.Revision != expected {
		return 0, store.ErrRevisionConflict
	}

	encoded, err := store.EncodePlants(plants)
	if err != nil {
		return 0, fmt.Errorf("encode plants: %w", err)
	}
	next := expected + 1
	data, err := json.Marshal(document{Revision: next, Plants: encoded})
	if err != nil {
		return 0, fmt.Errorf("encode document: %w", err)
	}
	if err := s.write(plantsFile, data); err != nil {
		return 0, err
	}
	s.lastWritten = next
	return next, nil
}

// LoadSession implements store.Store.
func (s *Store) LoadSession(_ context.Context) (*domain.User, error) {
	raw, err := s.read(sessionFile)
	if err != nil {
		return nil, err
	}
	return store.DecodeSession(bytes.TrimSpace(raw))
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
	return s.write(sessionFile, data)
}

// ClearSession implements store.Store.
func (s *Store) ClearSession(_ context.Context) error {
	err := os.Remove(filepath.Join(s.dir, sessionFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Watch implements store.Watcher. onChange runs on the watcher goroutine for
// every rewrite of the plant file by another process.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: atomic renames replace the file's inode.
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != plantsFile {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if s.isOwnWrite() {
					continue
				}
				s.logger.Debug("plant file changed on disk", "path", event.Name, "op", event.Op.String())
				onChange()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("plant file watcher error", "error", err)
			}
		}
	}()
	return nil
}

func (s *Store) isOwnWrite() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.readPlants()
	if err != nil {
		return false
	}
	return snap.Revision == s.lastWritten
}

func (s *Store) read(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

func (s *Store) write(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
