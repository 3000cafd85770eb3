package domain

// Provider identifies how a session user signed in.
type Provider string

const (
	// ProviderGoogle marks users created by the (mocked) Google sign-in.
	ProviderGoogle Provider = "google"
	// ProviderAnonymous marks throwaway anonymous sessions.
	ProviderAnonymous Provider = "anonymous"
)

// User is the identity whose plants are loaded into the store.
// Users are ephemeral: created at sign-in and kept for the lifetime of the session.
type User struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Provider    Provider `json:"provider"`
	IsAnonymous bool     `json:"isAnonymous"`
}

// DisplayName returns the name to show for the user, falling back to the email.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// SameUser reports whether two possibly-nil users carry the same identifier.
// Two nil users are the same; a nil and a non-nil user are not.
func SameUser(a, b *User) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}
