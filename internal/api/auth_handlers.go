package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/plantcare/internal/domain"
	domainerrors "github.com/listenupapp/plantcare/internal/errors"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "signInAnonymously",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/anonymous",
		Summary:     "Sign in anonymously",
		Description: "Starts a session for a new throwaway user and returns an access token",
		Tags:        []string{"Auth"},
	}, s.handleSignInAnonymously)

	huma.Register(s.api, huma.Operation{
		OperationID: "signInWithGoogle",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/google",
		Summary:     "Sign in with Google",
		Description: "Starts a session for the demo Google account and returns an access token",
		Tags:        []string{"Auth"},
	}, s.handleSignInWithGoogle)

	huma.Register(s.api, huma.Operation{
		OperationID:   "signOut",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/signout",
		Summary:       "Sign out",
		Description:   "Ends the active session",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleSignOut)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/me",
		Summary:     "Get current user",
		Description: "Returns the signed-in user",
		Tags:        []string{"Auth"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCurrentUser)
}

// === DTOs ===

// UserResponse contains user data in API responses.
type UserResponse struct {
	ID          string `json:"id" doc:"User ID"`
	Email       string `json:"email" doc:"Email address"`
	Name        string `json:"name" doc:"Display name"`
	Provider    string `json:"provider" doc:"Identity provider: google or anonymous"`
	IsAnonymous bool   `json:"isAnonymous" doc:"Whether this is a throwaway anonymous user"`
}

// AuthResponse is returned by the sign-in endpoints.
type AuthResponse struct {
	AccessToken string       `json:"accessToken" doc:"PASETO access token"`
	TokenType   string       `json:"tokenType" doc:"Always Bearer"`
	ExpiresAt   time.Time    `json:"expiresAt" doc:"Token expiry"`
	User        UserResponse `json:"user" doc:"Signed-in user"`
}

// AuthOutput wraps the sign-in response for Huma.
type AuthOutput struct {
	Body AuthResponse
}

// UserOutput wraps a user response for Huma.
type UserOutput struct {
	Body UserResponse
}

// === Handlers ===

func (s *Server) handleSignInAnonymously(ctx context.Context, _ *struct{}) (*AuthOutput, error) {
	user, err := s.services.Session.SignInAnonymously(ctx)
	if err != nil {
		return nil, err
	}
	return s.issueToken(user)
}

func (s *Server) handleSignInWithGoogle(ctx context.Context, _ *struct{}) (*AuthOutput, error) {
	user, err := s.services.Session.SignInWithGoogle(ctx)
	if err != nil {
		return nil, err
	}
	return s.issueToken(user)
}

func (s *Server) handleSignOut(ctx context.Context, _ *struct{}) (*struct{}, error) {
	if _, err := s.requireUser(ctx); err != nil {
		return nil, err
	}
	if err := s.services.Session.SignOut(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleGetCurrentUser(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: toUserResponse(user)}, nil
}

func (s *Server) issueToken(user *domain.User) (*AuthOutput, error) {
	token, expiresAt, err := s.services.Tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to issue access token")
	}

	return &AuthOutput{Body: AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        toUserResponse(user),
	}}, nil
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.DisplayName(),
		Provider:    string(u.Provider),
		IsAnonymous: u.IsAnonymous,
	}
}
