package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/listenupapp/plantcare/internal/domain"
	"github.com/listenupapp/plantcare/internal/errors"
	"github.com/listenupapp/plantcare/internal/id"
	"github.com/listenupapp/plantcare/internal/metrics"
	"github.com/listenupapp/plantcare/internal/sse"
	"github.com/listenupapp/plantcare/internal/store"
)

// PlantState is an immutable snapshot of the record store.
type PlantState struct {
	Plants   []domain.Plant
	User     *domain.User
	Err      error
	Loading  bool
	Revision uint64
}

// Indexer keeps a search index in step with the plant list.
type Indexer interface {
	Rebuild(plants []domain.Plant) error
	IndexPlant(p domain.Plant) error
	DeletePlant(id string) error
}

// PlantService holds the active user's plants and persists every change.
//
// Mutations are serialized by mu and compute their result from the current
// list, so concurrent care updates never lose one another. Readers use
// State, which returns the last published snapshot without waiting on I/O.
type PlantService struct {
	store   store.Store
	emitter store.EventEmitter
	index   Indexer
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
	newID   func() (string, error)

	mu       sync.Mutex
	user     *domain.User
	plants   []domain.Plant
	revision uint64
	err      error

	state atomic.Pointer[PlantState]
}

// PlantServiceOption customizes a PlantService.
type PlantServiceOption func(*PlantService)

// WithIndexer keeps idx in sync with the plant list.
func WithIndexer(idx Indexer) PlantServiceOption {
	return func(s *PlantService) { s.index = idx }
}

// WithMetrics records store latency and plant counts.
func WithMetrics(m metrics.Recorder) PlantServiceOption {
	return func(s *PlantService) { s.metrics = m }
}

// WithEmitter publishes plant events.
func WithEmitter(e store.EventEmitter) PlantServiceOption {
	return func(s *PlantService) { s.emitter = e }
}

// NewPlantService creates a record store with no active user.
func NewPlantService(st store.Store, logger *slog.Logger, opts ...PlantServiceOption) *PlantService {
	s := &PlantService{
		store:   st,
		emitter: store.NewNoopEmitter(),
		metrics: metrics.Noop{},
		logger:  logger,
		now:     time.Now,
		newID:   func() (string, error) { return id.Generate(id.PrefixPlant) },
		plants:  []domain.Plant{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.publishLocked(false)
	return s
}

// State returns the latest snapshot.
func (s *PlantService) State() PlantState {
	st := s.state.Load()
	return PlantState{
		Plants:   store.ClonePlants(st.Plants),
		User:     copyUser(st.User),
		Err:      st.Err,
		Loading:  st.Loading,
		Revision: st.Revision,
	}
}

// Get returns a copy of the active user's plant with the given id.
func (s *PlantService) Get(plantID string) (domain.Plant, bool) {
	for _, p := range s.state.Load().Plants {
		if p.ID == plantID {
			return p.Clone(), true
		}
	}
	return domain.Plant{}, false
}

// SetActiveUser switches the store to user. Passing the current user again
// is a no-op; a different user clears the list and loads that user's plants.
func (s *PlantService) SetActiveUser(ctx context.Context, user *domain.User) PlantState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if domain.SameUser(s.user, user) {
		return s.State()
	}

	s.user = copyUser(user)
	s.plants = []domain.Plant{}
	s.err = nil

	if user == nil {
		s.logger.Info("active user cleared")
		s.syncIndex()
		s.publishLocked(false)
		return s.State()
	}

	s.logger.Info("active user changed", "user_id", user.ID)
	s.loadLocked(ctx, user.ID)
	return s.State()
}

// Load replaces the list with the plants owned by userID. An empty userID,
// or any user other than the active one, does nothing: the list only ever
// holds the active user's plants. Read failures are recorded in the state's
// Err field.
func (s *PlantService) Load(ctx context.Context, userID string) PlantState {
	if userID == "" {
		return s.State()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil || s.user.ID != userID {
		s.logger.Warn("load for inactive user ignored", "user_id", userID)
		return s.State()
	}

	s.loadLocked(ctx, userID)
	return s.State()
}

// Reload reloads the active user's plants, for example after another
// process rewrote the collection.
func (s *PlantService) Reload(ctx context.Context) PlantState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return s.State()
	}
	s.loadLocked(ctx, s.user.ID)
	return s.State()
}

// Add creates a plant for the active user, most recent first.
func (s *PlantService) Add(ctx context.Context, draft domain.PlantDraft) (domain.Plant, PlantState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return domain.Plant{}, s.State(), errors.ErrAuthenticationRequired
	}
	if err := s.checkActorLocked(ctx); err != nil {
		return domain.Plant{}, s.State(), err
	}

	plantID, err := s.newID()
	if err != nil {
		return domain.Plant{}, s.State(), errors.Wrap(err, errors.CodeInternal, "generate plant id")
	}

	plant := domain.NewPlant(plantID, s.user.ID, draft, s.now())
	next := append([]domain.Plant{plant}, s.plants...)

	if err := s.persistLocked(ctx, next); err != nil {
		return domain.Plant{}, s.State(), err
	}

	s.indexPlant(plant)
	s.emitter.Emit(sse.NewPlantCreatedEvent(plant))
	s.logger.Info("plant added", "plant_id", plant.ID, "user_id", plant.UserID)
	return plant.Clone(), s.State(), nil
}

// Update merges patch into the plant. Unknown ids and empty patches
// change nothing.
func (s *PlantService) Update(ctx context.Context, plantID string, patch domain.PlantPatch) (PlantState, error) {
	if patch.Empty() {
		return s.State(), nil
	}
	return s.Modify(ctx, plantID, patch.Apply)
}

// Remove deletes the plant. Unknown ids change nothing.
func (s *PlantService) Remove(ctx context.Context, plantID string) (PlantState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActorLocked(ctx); err != nil {
		return s.State(), err
	}

	i := s.indexOf(plantID)
	if i < 0 {
		return s.State(), nil
	}

	removed := s.plants[i]
	next := slices.Delete(slices.Clone(s.plants), i, i+1)
	if err := s.persistLocked(ctx, next); err != nil {
		return s.State(), err
	}

	if s.index != nil {
		if err := s.index.DeletePlant(plantID); err != nil {
			s.logger.Warn("failed to remove plant from search index", "plant_id", plantID, "error", err)
		}
	}
	s.emitter.Emit(sse.NewPlantDeletedEvent(removed.UserID, plantID))
	s.logger.Info("plant removed", "plant_id", plantID)
	return s.State(), nil
}

// AddCareDate appends date to the plant's set for kind. Duplicates are kept.
func (s *PlantService) AddCareDate(ctx context.Context, plantID, date string, kind domain.CareKind) (PlantState, error) {
	if !kind.Valid() {
		return s.State(), errors.Validationf("unknown care kind %q", kind)
	}
	return s.Modify(ctx, plantID, func(p domain.Plant) domain.Plant {
		return p.AddDate(kind, date)
	})
}

// RemoveCareDate removes every occurrence of date from the plant's set for kind.
func (s *PlantService) RemoveCareDate(ctx context.Context, plantID, date string, kind domain.CareKind) (PlantState, error) {
	if !kind.Valid() {
		return s.State(), errors.Validationf("unknown care kind %q", kind)
	}
	return s.Modify(ctx, plantID, func(p domain.Plant) domain.Plant {
		return p.RemoveDate(kind, date)
	})
}

// CareToday records kind for today's date. Today is the UTC calendar date.
func (s *PlantService) CareToday(ctx context.Context, plantID string, kind domain.CareKind) (PlantState, error) {
	return s.AddCareDate(ctx, plantID, domain.FormatDate(s.now().UTC()), kind)
}

// Modify replaces the plant with fn applied to it and persists the list
// once. fn runs under the store lock and must not call back into s.
// Unknown ids change nothing.
func (s *PlantService) Modify(ctx context.Context, plantID string, fn func(domain.Plant) domain.Plant) (PlantState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActorLocked(ctx); err != nil {
		return s.State(), err
	}

	i := s.indexOf(plantID)
	if i < 0 {
		s.logger.Debug("update of unknown plant ignored", "plant_id", plantID)
		return s.State(), nil
	}

	updated := fn(s.plants[i].Clone())
	updated.ID = s.plants[i].ID
	updated.UserID = s.plants[i].UserID
	updated.Normalize()

	next := slices.Clone(s.plants)
	next[i] = updated
	if err := s.persistLocked(ctx, next); err != nil {
		return s.State(), err
	}

	s.indexPlant(updated)
	s.emitter.Emit(sse.NewPlantUpdatedEvent(updated))
	return s.State(), nil
}

// checkActorLocked rejects a ctx whose acting user is no longer the active
// user. Contexts without an acting user pass. Callers hold mu.
func (s *PlantService) checkActorLocked(ctx context.Context) error {
	actor, ok := ActingUser(ctx)
	if !ok {
		return nil
	}
	if s.user == nil || actor != s.user.ID {
		s.logger.Warn("mutation for inactive user rejected", "acting_user_id", actor)
		return errors.ErrAuthenticationRequired
	}
	return nil
}

func (s *PlantService) indexOf(plantID string) int {
	return slices.IndexFunc(s.plants, func(p domain.Plant) bool { return p.ID == plantID })
}

// loadLocked reads the backend and replaces the list. Callers hold mu.
func (s *PlantService) loadLocked(ctx context.Context, userID string) {
	s.publishLocked(true)

	start := time.Now()
	snap, err := s.store.LoadPlants(ctx)
	s.metrics.Observe(ctx, "load", err == nil, time.Since(start))
	if err != nil {
		s.err = errors.StorageRead(err)
		s.logger.Error("failed to load plants", "user_id", userID, "error", err)
		s.publishLocked(false)
		s.emitter.Emit(sse.NewPlantsLoadedEvent(userID, len(s.plants), s.revision, s.err))
		return
	}

	s.plants = snap.ForUser(userID)
	s.revision = snap.Revision
	s.err = nil
	s.syncIndex()
	s.publishLocked(false)

	s.logger.Debug("plants loaded", "user_id", userID, "count", len(s.plants), "revision", snap.Revision)
	s.emitter.Emit(sse.NewPlantsLoadedEvent(userID, len(s.plants), s.revision, nil))
}

// persistLocked writes next as the active user's plants and, on success,
// makes it the current list. The write is a compare-and-swap on the
// revision this store last saw; a conflict reloads the active user.
func (s *PlantService) persistLocked(ctx context.Context, next []domain.Plant) error {
	if s.user == nil {
		return errors.ErrAuthenticationRequired
	}
	userID := s.user.ID

	start := time.Now()
	err := s.writeLocked(ctx, userID, next)
	s.metrics.Observe(ctx, "save", err == nil, time.Since(start))

	if err != nil {
		s.logger.Error("failed to save plants", "user_id", userID, "revision", s.revision, "error", err)
		if errors.Is(err, store.ErrRevisionConflict) {
			s.loadLocked(ctx, userID)
		}
		s.err = errors.StorageWrite(err)
		s.publishLocked(false)
		return s.err
	}

	s.plants = next
	s.err = nil
	s.publishLocked(false)
	return nil
}

func (s *PlantService) writeLocked(ctx context.Context, userID string, next []domain.Plant) error {
	snap, err := s.store.LoadPlants(ctx)
	if err != nil {
		return err
	}
	if snap.Revision != s.revision {
		return store.ErrRevisionConflict
	}

	rev, err := s.store.SavePlants(ctx, snap.ReplaceUser(userID, next), s.revision)
	if err != nil {
		return err
	}
	s.revision = rev
	return nil
}

// publishLocked stores a snapshot of the current fields for State.
func (s *PlantService) publishLocked(loading bool) {
	s.state.Store(&PlantState{
		Plants:   store.ClonePlants(s.plants),
		User:     copyUser(s.user),
		Err:      s.err,
		Loading:  loading,
		Revision: s.revision,
	})
	s.metrics.SetPlants(len(s.plants))
}

func (s *PlantService) syncIndex() {
	if s.index == nil {
		return
	}
	if err := s.index.Rebuild(s.plants); err != nil {
		s.logger.Warn("failed to rebuild search index", "error", err)
	}
}

func (s *PlantService) indexPlant(p domain.Plant) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexPlant(p); err != nil {
		s.logger.Warn("failed to index plant", "plant_id", p.ID, "error", err)
	}
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
