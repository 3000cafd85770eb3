// Package store defines the persistence port for plant records and the session user.
//
// Every backend keeps two independent keys: KeyPlants holds the plants of all
// users as one collection, KeySession holds the signed-in user. The plant
// collection carries a revision so writers can detect stale snapshots.
package store

import (
	"context"

	"github.com/listenupapp/plantcare/internal/domain"
)

// Persisted keys shared by every backend.
const (
	KeyPlants  = "plants_storage"
	KeySession = "plants_user"
)

// PlantSnapshot is the full plant collection of all users at one revision.
type PlantSnapshot struct {
	Plants   []domain.Plant
	Revision uint64
}

// ForUser returns copies of the plants owned by userID, in stored order.
func (s *PlantSnapshot) ForUser(userID string) []domain.Plant {
	out := make([]domain.Plant, 0)
	for _, p := range s.Plants {
		if p.UserID == userID {
			out = append(out, p.Clone())
		}
	}
	return out
}

// ReplaceUser returns the collection with userID's plants swapped for plants.
// Other users' plants keep their order; the new list is appended after them.
func (s *PlantSnapshot) ReplaceUser(userID string, plants []domain.Plant) []domain.Plant {
	out := make([]domain.Plant, 0, len(s.Plants)+len(plants))
	for _, p := range s.Plants {
		if p.UserID != userID {
			out = append(out, p)
		}
	}
	for _, p := range plants {
		p.UserID = userID
		out = append(out, p)
	}
	return out
}

// Store persists the plant collection and the session user.
type Store interface {
	// LoadPlants returns every user's plants with the current revision.
	// An empty backend yields an empty snapshot at revision 0.
	LoadPlants(ctx context.Context) (*PlantSnapshot, error)

	// SavePlants replaces the whole collection if the stored revision still
	// equals expected, and returns the new revision. Otherwise it returns
	// ErrRevisionConflict and writes nothing.
	SavePlants(ctx context.Context, plants []domain.Plant, expected uint64) (uint64, error)

	// LoadSession returns the persisted session user, or nil when signed out.
	LoadSession(ctx context.Context) (*domain.User, error)
	SaveSession(ctx context.Context, user *domain.User) error
	ClearSession(ctx context.Context) error

	Close() error
}

// Watcher is implemented by backends that can report writes made by other processes.
type Watcher interface {
	// Watch calls onChange after an external write to the plant collection
	// until ctx is canceled.
	Watch(ctx context.Context, onChange func()) error
}

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}
