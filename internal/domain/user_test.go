package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_DisplayName(t *testing.T) {
	tests := []struct {
		name     string
		user     User
		expected string
	}{
		{
			name:     "name wins",
			user:     User{Name: "Demo User", Email: "demo@example.com"},
			expected: "Demo User",
		},
		{
			name:     "falls back to email",
			user:     User{Email: "demo@example.com"},
			expected: "demo@example.com",
		},
		{
			name:     "anonymous without either",
			user:     User{Provider: ProviderAnonymous, IsAnonymous: true},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.user.DisplayName())
		})
	}
}
