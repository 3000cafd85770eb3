package service

import "context"

type actingUserKey struct{}

// WithActingUser marks ctx as carrying a request made on behalf of userID.
// Mutations under such a context fail with ErrAuthenticationRequired once the
// active user is someone else, even if the session changed mid-request.
func WithActingUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actingUserKey{}, userID)
}

// ActingUser returns the user ID set by WithActingUser.
func ActingUser(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(actingUserKey{}).(string)
	return userID, ok && userID != ""
}
