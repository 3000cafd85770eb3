package store

import (
	"encoding/json"

	"github.com/listenupapp/plantcare/internal/domain"
)

// EncodePlants serializes the collection as the JSON array stored under KeyPlants.
func EncodePlants(plants []domain.Plant) ([]byte, error) {
	if plants == nil {
		plants = []domain.Plant{}
	}
	normalized := make([]domain.Plant, len(plants))
	for i, p := range plants {
		p.Normalize()
		normalized[i] = p
	}
	return json.Marshal(normalized)
}

// DecodePlants parses a KeyPlants array. Empty input is an empty collection and
// absent date sets come back empty.
func DecodePlants(data []byte) ([]domain.Plant, error) {
	if len(data) == 0 {
		return []domain.Plant{}, nil
	}
	var plants []domain.Plant
	if err := json.Unmarshal(data, &plants); err != nil {
		return nil, ErrCorrupt.WithCause(err)
	}
	if plants == nil {
		plants = []domain.Plant{}
	}
	for i := range plants {
		plants[i].Normalize()
	}
	return plants, nil
}

// EncodeSession serializes the session user stored under KeySession.
func EncodeSession(user *domain.User) ([]byte, error) {
	return json.Marshal(user)
}

// DecodeSession parses a KeySession value. Empty input or JSON null mean no session.
func DecodeSession(data []byte) (*domain.User, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var user *domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, ErrCorrupt.WithCause(err)
	}
	return user, nil
}

// ClonePlants deep-copies a collection so callers never share date slices with a backend.
func ClonePlants(plants []domain.Plant) []domain.Plant {
	out := make([]domain.Plant, len(plants))
	for i, p := range plants {
		out[i] = p.Clone()
	}
	return out
}
