package auth

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/plantcare/internal/domain"
	"github.com/listenupapp/plantcare/internal/errors"
	"github.com/listenupapp/plantcare/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testKey() []byte {
	key, _ := hex.DecodeString(strings.Repeat("ab", 32))
	return key
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc, err := NewTokenService(testKey(), 15*time.Minute)
	require.NoError(t, err)

	user := &domain.User{ID: "user-1", Email: "anon_1@temp.com", Provider: domain.ProviderAnonymous, IsAnonymous: true}
	token, expiresAt, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, domain.ProviderAnonymous, claims.Provider)
	assert.True(t, claims.IsAnonymous)
	assert.True(t, strings.HasPrefix(claims.TokenID, "token-"))
}

func TestTokenService_RejectsExpiredAndForeignTokens(t *testing.T) {
	expired, err := NewTokenService(testKey(), -time.Minute)
	require.NoError(t, err)
	token, _, err := expired.GenerateAccessToken(&domain.User{ID: "u"})
	require.NoError(t, err)

	_, err = expired.VerifyAccessToken(token)
	assert.Error(t, err)

	other := make([]byte, 32)
	foreign, err := NewTokenService(other, time.Minute)
	require.NoError(t, err)
	valid, err := NewTokenService(testKey(), time.Minute)
	require.NoError(t, err)
	token, _, err = valid.GenerateAccessToken(&domain.User{ID: "u"})
	require.NoError(t, err)

	_, err = foreign.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestNewTokenService_KeyLength(t *testing.T) {
	_, err := NewTokenService([]byte("short"), time.Minute)
	assert.Error(t, err)
}

func TestLoadOrGenerateKey(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	first, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Len(t, first, keyLength)

	second, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second, "key is reused across restarts")

	info, err := os.Stat(filepath.Join(dir, keyFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadOrGenerateKey_RejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, keyFileName), []byte("nothex"), 0o600))

	_, err := LoadOrGenerateKey(dir)
	assert.Error(t, err)
}

func TestSessionService_SubscribeCallsImmediately(t *testing.T) {
	svc := NewSessionService(store.NewMemory(), testLogger())

	var seen []*domain.User
	unsubscribe := svc.Subscribe(func(u *domain.User) { seen = append(seen, u) })
	defer unsubscribe()

	require.Len(t, seen, 1)
	assert.Nil(t, seen[0])
}

func TestSessionService_NotifiesOnChange(t *testing.T) {
	ctx := context.Background()
	svc := NewSessionService(store.NewMemory(), testLogger())

	var seen []*domain.User
	unsubscribe := svc.Subscribe(func(u *domain.User) { seen = append(seen, u) })

	user, err := svc.SignInWithGoogle(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderGoogle, user.Provider)
	assert.False(t, user.IsAnonymous)
	assert.Equal(t, "Demo User", user.Name)

	require.NoError(t, svc.SignOut(ctx))
	assert.Nil(t, svc.Current())

	unsubscribe()
	unsubscribe()
	_, err = svc.SignInAnonymously(ctx)
	require.NoError(t, err)

	require.Len(t, seen, 3, "initial, sign-in, sign-out; nothing after unsubscribe")
	assert.Equal(t, user.ID, seen[1].ID)
	assert.Nil(t, seen[2])
}

func TestSessionService_AnonymousUser(t *testing.T) {
	svc := NewSessionService(store.NewMemory(), testLogger())
	svc.now = func() time.Time { return time.UnixMilli(1714550400000) }

	user, err := svc.SignInAnonymously(context.Background())
	require.NoError(t, err)

	assert.True(t, user.IsAnonymous)
	assert.Equal(t, domain.ProviderAnonymous, user.Provider)
	assert.Equal(t, "anon_1714550400000@temp.com", user.Email)
	assert.Equal(t, user.ID, svc.Current().ID)
}

func TestSessionService_RestorePersistedSession(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemory()

	first := NewSessionService(backend, testLogger())
	user, err := first.SignInAnonymously(ctx)
	require.NoError(t, err)

	second := NewSessionService(backend, testLogger())
	restored, err := second.Restore(ctx)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, user.ID, restored.ID)
	assert.Equal(t, user.ID, second.Current().ID)
}

func TestSessionService_StorageFailures(t *testing.T) {
	backend := store.NewMemory()
	require.NoError(t, backend.Close())
	svc := NewSessionService(backend, testLogger())

	var calls int
	svc.Subscribe(func(*domain.User) { calls++ })

	_, err := svc.SignInWithGoogle(context.Background())
	assert.True(t, errors.Is(err, errors.ErrStorageWrite))
	assert.Nil(t, svc.Current(), "failed sign-in changes nothing")

	_, err = svc.Restore(context.Background())
	assert.True(t, errors.Is(err, errors.ErrStorageRead))
	assert.Equal(t, 1, calls)
}

func TestSessionService_ListenerMayCallBack(t *testing.T) {
	svc := NewSessionService(store.NewMemory(), testLogger())

	var inside *domain.User
	svc.Subscribe(func(*domain.User) { inside = svc.Current() })

	user, err := svc.SignInAnonymously(context.Background())
	require.NoError(t, err)
	require.NotNil(t, inside)
	assert.Equal(t, user.ID, inside.ID)
}

func TestSessionService_ConcurrentSignInsNotifyInOrder(t *testing.T) {
	ctx := context.Background()
	svc := NewSessionService(store.NewMemory(), testLogger())

	var (
		mu   sync.Mutex
		last *domain.User
	)
	svc.Subscribe(func(u *domain.User) {
		mu.Lock()
		defer mu.Unlock()
		last = u
	})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = svc.SignInAnonymously(ctx)
			} else {
				_, err = svc.SignInWithGoogle(ctx)
			}
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	current := svc.Current()
	require.NotNil(t, current)
	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, last)
	assert.Equal(t, current.ID, last.ID, "listeners end on the session that won")
}
