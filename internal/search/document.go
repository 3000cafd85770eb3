// Package search keeps a full-text index of plant names using Bleve.
// Names are folded (accents stripped, case folded) so "Monstéra" and
// "monstera" find each other.
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/listenupapp/plantcare/internal/domain"
)

// PlantDocument is the indexed form of a plant.
type PlantDocument struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Folded string `json:"folded"`
}

// NewPlantDocument builds the index document for p.
func NewPlantDocument(p domain.Plant) *PlantDocument {
	return &PlantDocument{
		ID:     p.ID,
		UserID: p.UserID,
		Name:   p.Name,
		Folded: Fold(p.Name),
	}
}

// ToMap converts the document to a map so field names match the mapping.
func (d *PlantDocument) ToMap() map[string]any {
	return map[string]any{
		"id":      d.ID,
		"user_id": d.UserID,
		"name":    d.Name,
		"folded":  d.Folded,
	}
}

// Fold decomposes s, drops combining marks and lowercases the result.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
