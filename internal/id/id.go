// Package id generates identifiers for plants, users and transient server objects.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for generated IDs.
const (
	PrefixPlant = "plant"
	PrefixSSE   = "sse"
	PrefixToken = "token"
)

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "plant-V1StGXR8_Z5jdHi6B-myT").
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// NewUserID returns a time-ordered UUIDv7 for a freshly signed-in user.
// Ordering by creation time keeps anonymous sessions sortable like timestamp ids.
func NewUserID() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate user id: %w", err)
	}
	return u.String(), nil
}
