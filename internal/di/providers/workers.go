package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/plantcare/internal/auth"
	"github.com/listenupapp/plantcare/internal/domain"
	"github.com/listenupapp/plantcare/internal/logger"
	"github.com/listenupapp/plantcare/internal/service"
	"github.com/listenupapp/plantcare/internal/sse"
	"github.com/listenupapp/plantcare/internal/store"
)

// SessionBindingHandle keeps the plant list following the signed-in user.
type SessionBindingHandle struct {
	unsubscribe func()
}

// Shutdown implements do.Shutdownable.
func (h *SessionBindingHandle) Shutdown() error {
	h.unsubscribe()
	return nil
}

// ProvideSessionBinding subscribes the plant service to session changes and
// broadcasts each change to event stream clients.
func ProvideSessionBinding(i do.Injector) (*SessionBindingHandle, error) {
	session := do.MustInvoke[*auth.SessionService](i)
	plants := do.MustInvoke[*service.PlantService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	unsubscribe := session.Subscribe(func(user *domain.User) {
		state := plants.SetActiveUser(context.Background(), user)

		// Tokens of the previous user stop working, so their streams end too.
		changed := sse.NewSessionChangedEvent(user)
		activeID := ""
		if user != nil {
			activeID = user.ID
		}
		sseHandle.EndSessions(activeID, changed)
		sseHandle.Emit(changed)
		if user != nil {
			log.Info("Active user changed", "user_id", user.ID, "plants", len(state.Plants))
		}
	})

	return &SessionBindingHandle{unsubscribe: unsubscribe}, nil
}

// StoreWatcherHandle reloads plants written by other processes.
type StoreWatcherHandle struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *StoreWatcherHandle) Shutdown() error {
	h.cancel()
	return nil
}

// ProvideStoreWatcher watches backends that support it (the json file
// driver) and reloads the active user's plants after external writes.
func ProvideStoreWatcher(i do.Injector) (*StoreWatcherHandle, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	plants := do.MustInvoke[*service.PlantService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	handle := &StoreWatcherHandle{cancel: cancel}

	watcher, ok := storeHandle.Store.(store.Watcher)
	if !ok {
		return handle, nil
	}

	if err := watcher.Watch(ctx, func() {
		state := plants.Reload(ctx)
		log.Info("Plants reloaded after external change", "plants", len(state.Plants), "revision", state.Revision)
	}); err != nil {
		// Non-fatal: the server still works, external edits just need a restart.
		log.Warn("Store watcher unavailable", "error", err)
		return handle, nil
	}

	log.Info("Store watcher started")
	return handle, nil
}
