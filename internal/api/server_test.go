package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/plantcare/internal/auth"
	"github.com/listenupapp/plantcare/internal/domain"
	domainerrors "github.com/listenupapp/plantcare/internal/errors"
	"github.com/listenupapp/plantcare/internal/media/photos"
	"github.com/listenupapp/plantcare/internal/ratelimit"
	"github.com/listenupapp/plantcare/internal/search"
	"github.com/listenupapp/plantcare/internal/service"
	"github.com/listenupapp/plantcare/internal/sse"
	"github.com/listenupapp/plantcare/internal/store"
)

type testEnv struct {
	api     humatest.TestAPI
	server  *Server
	session *auth.SessionService
	plants  *service.PlantService
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestServer wires the full service stack over an in-memory store.
func setupTestServer(t *testing.T, configure ...func(*Options)) *testEnv {
	t.Helper()
	logger := testLogger()

	backend := store.NewMemory()
	t.Cleanup(func() { _ = backend.Close() })

	index, err := search.NewPlantIndex(search.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	tokens, err := auth.NewTokenService(make([]byte, 32), 15*time.Minute)
	require.NoError(t, err)

	photoBackend, err := photos.NewFS(t.TempDir())
	require.NoError(t, err)

	session := auth.NewSessionService(backend, logger)
	plants := service.NewPlantService(backend, logger, service.WithIndexer(index))
	unsubscribe := session.Subscribe(func(u *domain.User) {
		plants.SetActiveUser(context.Background(), u)
	})
	t.Cleanup(unsubscribe)

	services := &Services{
		Session:     session,
		Tokens:      tokens,
		Plants:      plants,
		Calendar:    service.NewCalendarService(plants),
		Search:      service.NewSearchService(index, plants, logger),
		Photos:      photos.NewService(photoBackend, 1<<20, logger),
		Store:       backend,
		SearchIndex: index,
		SSE:         sse.NewManager(logger),
	}

	opts := Options{Version: "test"}
	for _, fn := range configure {
		fn(&opts)
	}

	srv := NewServer(services, opts, logger)
	t.Cleanup(srv.Close)

	return &testEnv{
		api:     humatest.Wrap(t, srv.API()),
		server:  srv,
		session: session,
		plants:  plants,
	}
}

// envelope is the decoded response body with typed data.
type envelope[T any] struct {
	Version int        `json:"v"`
	Success bool       `json:"success"`
	Data    T          `json:"data"`
	Error   *ErrorBody `json:"error"`
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	assert.Equal(t, EnvelopeVersion, env.Version)
	return env
}

func requireError(t *testing.T, resp *httptest.ResponseRecorder, status int, code domainerrors.Code) {
	t.Helper()
	require.Equal(t, status, resp.Code, resp.Body.String())
	env := decode[json.RawMessage](t, resp)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(code), env.Error.Code)
}

func bearer(token string) string {
	return "Authorization: Bearer " + token
}

// signIn signs in anonymously and returns the access token.
func (e *testEnv) signIn(t *testing.T) (string, UserResponse) {
	t.Helper()
	resp := e.api.Post("/api/v1/auth/anonymous")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	env := decode[AuthResponse](t, resp)
	require.True(t, env.Success)
	return env.Data.AccessToken, env.Data.User
}

func TestEnvelopeTransformer(t *testing.T) {
	t.Run("success wraps data", func(t *testing.T) {
		out, err := EnvelopeTransformer(nil, "200", map[string]string{"id": "plant-1"})
		require.NoError(t, err)

		env, ok := out.(Envelope)
		require.True(t, ok)
		assert.Equal(t, 1, env.Version)
		assert.True(t, env.Success)
		assert.Equal(t, map[string]string{"id": "plant-1"}, env.Data)
		assert.Nil(t, env.Error)
	})

	t.Run("api error keeps code and details", func(t *testing.T) {
		out, err := EnvelopeTransformer(nil, "400", &APIError{
			status:  http.StatusBadRequest,
			Code:    "VALIDATION",
			Message: "validation failed",
			Details: map[string]string{"name": "name is required"},
		})
		require.NoError(t, err)

		raw, err := json.Marshal(out)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"v": 1,
			"success": false,
			"error": {"code": "VALIDATION", "message": "validation failed", "details": {"name": "name is required"}}
		}`, string(raw))
	})

	t.Run("plain error uses status code", func(t *testing.T) {
		out, err := EnvelopeTransformer(nil, "404", errors.New("gone"))
		require.NoError(t, err)

		env := out.(Envelope)
		assert.False(t, env.Success)
		assert.Equal(t, "NOT_FOUND", env.Error.Code)
		assert.Equal(t, "gone", env.Error.Message)
	})

	t.Run("already wrapped passes through", func(t *testing.T) {
		in := Envelope{Version: 1, Success: true}
		out, err := EnvelopeTransformer(nil, "200", in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})
}

func TestHealthCheck(t *testing.T) {
	env := setupTestServer(t)

	resp := env.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	body := decode[HealthResponse](t, resp)
	assert.True(t, body.Success)
	assert.Equal(t, statusHealthy, body.Data.Status)
	assert.Contains(t, body.Data.Components, "store")
	assert.Contains(t, body.Data.Components, "search")
	assert.Contains(t, body.Data.Components, "sse")
	assert.Equal(t, "0 documents indexed", body.Data.Components["search"].Message)
}

func TestHealthCheck_StoreDown(t *testing.T) {
	env := setupTestServer(t)
	require.NoError(t, env.server.services.Store.Close())

	resp := env.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[HealthResponse](t, resp)
	assert.Equal(t, statusUnhealthy, body.Data.Status)
	assert.Equal(t, statusUnhealthy, body.Data.Components["store"].Status)
}

func TestAuth_SignInMeSignOut(t *testing.T) {
	env := setupTestServer(t)

	token, user := env.signIn(t)
	assert.True(t, user.IsAnonymous)
	assert.Equal(t, "anonymous", user.Provider)

	resp := env.api.Get("/api/v1/auth/me", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)
	me := decode[UserResponse](t, resp)
	assert.Equal(t, user.ID, me.Data.ID)

	resp = env.api.Post("/api/v1/auth/signout", bearer(token))
	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Nil(t, env.session.Current())

	resp = env.api.Get("/api/v1/auth/me", bearer(token))
	requireError(t, resp, http.StatusUnauthorized, domainerrors.CodeUnauthorized)
}

func TestAuth_GoogleSignIn(t *testing.T) {
	env := setupTestServer(t)

	resp := env.api.Post("/api/v1/auth/google")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[AuthResponse](t, resp)
	assert.Equal(t, "Bearer", body.Data.TokenType)
	assert.Equal(t, "google", body.Data.User.Provider)
	assert.Equal(t, "Demo User", body.Data.User.Name)
	assert.False(t, body.Data.User.IsAnonymous)
}

func TestAuth_RequiresToken(t *testing.T) {
	env := setupTestServer(t)

	requireError(t, env.api.Get("/api/v1/plants"), http.StatusUnauthorized, domainerrors.CodeUnauthorized)
	requireError(t, env.api.Get("/api/v1/plants", bearer("v4.local.garbage")), http.StatusUnauthorized, domainerrors.CodeUnauthorized)
}

func TestAuth_TokenOfReplacedSessionRejected(t *testing.T) {
	env := setupTestServer(t)

	first, _ := env.signIn(t)
	second, _ := env.signIn(t)

	requireError(t, env.api.Get("/api/v1/plants", bearer(first)), http.StatusUnauthorized, domainerrors.CodeUnauthorized)

	resp := env.api.Get("/api/v1/plants", bearer(second))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestSignInRateLimit(t *testing.T) {
	env := setupTestServer(t, func(o *Options) {
		o.SignInLimiter = ratelimit.PerMinute(1, 2)
	})

	for range 2 {
		resp := env.api.Post("/api/v1/auth/anonymous")
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp := env.api.Post("/api/v1/auth/google")
	requireError(t, resp, http.StatusTooManyRequests, domainerrors.CodeRateLimited)
	assert.Equal(t, "60", resp.Header().Get("Retry-After"))

	// Other endpoints are not throttled.
	resp = env.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAuthenticateStream(t *testing.T) {
	env := setupTestServer(t)
	token, user := env.signIn(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?token="+token, nil)
	userID, err := env.server.authenticateStream(req)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	_, err = env.server.authenticateStream(req)
	assert.Error(t, err)

	require.NoError(t, env.session.SignOut(context.Background()))
	req = httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	_, err = env.server.authenticateStream(req)
	assert.Error(t, err, "signed-out session may not stream")
}
