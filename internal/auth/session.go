package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/listenupapp/plantcare/internal/domain"
	"github.com/listenupapp/plantcare/internal/errors"
	"github.com/listenupapp/plantcare/internal/id"
)

// SessionStore persists the signed-in user.
type SessionStore interface {
	LoadSession(ctx context.Context) (*domain.User, error)
	SaveSession(ctx context.Context, user *domain.User) error
	ClearSession(ctx context.Context) error
}

// Listener is notified with the current user (nil when signed out).
type Listener func(user *domain.User)

// SessionService is the mocked identity provider. It owns the one active
// session of the process and notifies subscribers whenever it changes.
type SessionService struct {
	store  SessionStore
	logger *slog.Logger
	now    func() time.Time

	// dispatch serializes session changes with their notification, so
	// listeners observe changes in the order they were made.
	dispatch sync.Mutex

	mu        sync.Mutex
	current   *domain.User
	listeners map[uint64]Listener
	order     []uint64
	nextID    uint64
}

// NewSessionService creates a signed-out session service. Call Restore to
// pick up a persisted session.
func NewSessionService(store SessionStore, logger *slog.Logger) *SessionService {
	return &SessionService{
		store:     store,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[uint64]Listener),
	}
}

// Restore loads the persisted session user, if any, and notifies subscribers.
func (s *SessionService) Restore(ctx context.Context) (*domain.User, error) {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	user, err := s.store.LoadSession(ctx)
	if err != nil {
		s.logger.Error("failed to restore session", "error", err)
		return nil, errors.StorageRead(err)
	}
	if user != nil {
		s.logger.Info("session restored", "user_id", user.ID, "provider", user.Provider)
	}
	s.set(user)
	return copyUser(user), nil
}

// SignInWithGoogle signs in a fixed demo account. No OAuth exchange happens.
func (s *SessionService) SignInWithGoogle(ctx context.Context) (*domain.User, error) {
	userID, err := id.NewUserID()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate user id")
	}
	return s.signIn(ctx, &domain.User{
		ID:       userID,
		Email:    "user@example.com",
		Name:     "Demo User",
		Provider: domain.ProviderGoogle,
	})
}

// SignInAnonymously signs in a throwaway anonymous user.
func (s *SessionService) SignInAnonymously(ctx context.Context) (*domain.User, error) {
	userID, err := id.NewUserID()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate user id")
	}
	return s.signIn(ctx, &domain.User{
		ID:          userID,
		Email:       fmt.Sprintf("anon_%d@temp.com", s.now().UnixMilli()),
		Name:        "Anonymous User",
		Provider:    domain.ProviderAnonymous,
		IsAnonymous: true,
	})
}

func (s *SessionService) signIn(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	if err := s.store.SaveSession(ctx, user); err != nil {
		s.logger.Error("failed to persist session", "provider", user.Provider, "error", err)
		return nil, errors.StorageWrite(err)
	}
	s.logger.Info("user signed in", "user_id", user.ID, "provider", user.Provider)
	s.set(user)
	return copyUser(user), nil
}

// SignOut clears the session and notifies subscribers with nil.
func (s *SessionService) SignOut(ctx context.Context) error {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	if err := s.store.ClearSession(ctx); err != nil {
		s.logger.Error("failed to clear session", "error", err)
		return errors.StorageWrite(err)
	}
	s.logger.Info("user signed out")
	s.set(nil)
	return nil
}

// Current returns a copy of the signed-in user, or nil.
func (s *SessionService) Current() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyUser(s.current)
}

// Subscribe registers fn and immediately calls it with the current user.
// The returned function unsubscribes; calling it more than once is harmless.
// Listeners must not sign in or out from inside the callback.
func (s *SessionService) Subscribe(fn Listener) (unsubscribe func()) {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	s.mu.Lock()
	s.nextID++
	key := s.nextID
	s.listeners[key] = fn
	s.order = append(s.order, key)
	current := copyUser(s.current)
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, key)
		for i, k := range s.order {
			if k == key {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// set swaps the current user and notifies listeners in subscription order.
// Callers hold dispatch. Listeners run without mu held so they may call Current.
func (s *SessionService) set(user *domain.User) {
	s.mu.Lock()
	s.current = copyUser(user)
	listeners := make([]Listener, 0, len(s.order))
	for _, k := range s.order {
		listeners = append(listeners, s.listeners[k])
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(copyUser(user))
	}
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
