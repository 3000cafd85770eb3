package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/plantcare/internal/domain"
	"github.com/listenupapp/plantcare/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// userIDKey is the context key for the authenticated user ID.
const userIDKey ctxKey = "userID"

// GetUserID returns the authenticated user ID from context.
// Returns 401 error if user is not authenticated.
func GetUserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", huma.Error401Unauthorized("Authentication required")
	}
	return userID, nil
}

// setUserID stores the user ID in context.
func setUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// authMiddleware validates Bearer tokens and stores the token subject in context.
// Requests without a valid token continue anonymously; handlers use requireUser to reject them.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := s.services.Tokens.VerifyAccessToken(token)
		if err != nil {
			s.logger.Debug("rejected access token", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		// Plant mutations check the subject again under the store lock.
		ctx := service.WithActingUser(setUserID(r.Context(), claims.Subject), claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireUser returns the signed-in user when the request's token belongs to them.
// A token for any other user (signed out, or replaced by a newer sign-in) is rejected.
func (s *Server) requireUser(ctx context.Context) (*domain.User, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	current := s.services.Session.Current()
	if current == nil || current.ID != userID {
		return nil, huma.Error401Unauthorized("Session is no longer active")
	}
	return current, nil
}

// authenticateStream resolves the user of an SSE request. EventSource cannot
// set headers, so the token may also come from the "token" query parameter.
func (s *Server) authenticateStream(r *http.Request) (string, error) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return "", huma.Error401Unauthorized("Missing token")
	}

	claims, err := s.services.Tokens.VerifyAccessToken(token)
	if err != nil {
		return "", huma.Error401Unauthorized("Invalid or expired token")
	}

	if _, err := s.requireUser(setUserID(r.Context(), claims.Subject)); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
