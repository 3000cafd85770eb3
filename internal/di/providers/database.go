package providers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/listenupapp/plantcare/internal/config"
	"github.com/listenupapp/plantcare/internal/logger"
	"github.com/listenupapp/plantcare/internal/sse"
	"github.com/listenupapp/plantcare/internal/store"
	"github.com/listenupapp/plantcare/internal/store/badgerstore"
	"github.com/listenupapp/plantcare/internal/store/jsonfile"
	"github.com/listenupapp/plantcare/internal/store/postgres"
	"github.com/listenupapp/plantcare/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Component("sse"))

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured plant storage backend.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	st, err := OpenStore(ctx, cfg, log.Component("store"))
	if err != nil {
		return nil, err
	}

	log.Info("Storage initialized", "driver", cfg.Storage.Driver)

	return &StoreHandle{Store: st}, nil
}

// OpenStore opens the backend named by cfg.Storage.Driver. Local backends
// keep their files under cfg.Data.Path.
func OpenStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, error) {
	if cfg.Storage.Driver != config.StorageMemory && cfg.Storage.Driver != config.StoragePostgres {
		if err := os.MkdirAll(cfg.Data.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	switch cfg.Storage.Driver {
	case config.StorageBadger:
		s, err := badgerstore.Open(filepath.Join(cfg.Data.Path, "badger"), log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageSQLite:
		s, err := sqlite.Open(filepath.Join(cfg.Data.Path, "plantcare.db"), log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoragePostgres:
		s, err := postgres.Open(ctx, cfg.Storage.PostgresDSN, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageFile:
		s, err := jsonfile.Open(filepath.Join(cfg.Data.Path, "json"), log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageMemory:
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
