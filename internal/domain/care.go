package domain

import (
	"fmt"
	"slices"
	"time"
)

// CareKind is a category of plant-care action recorded per day.
type CareKind string

const (
	// CareWater records a watering.
	CareWater CareKind = "water"
	// CareFertilize records a fertilizing.
	CareFertilize CareKind = "fertilize"
	// CareTreatment records a treatment (pest control, medicine, ...).
	CareTreatment CareKind = "treatment"
)

// CareKinds lists every care kind in calendar order.
var CareKinds = []CareKind{CareWater, CareFertilize, CareTreatment}

// ParseCareKind converts a string to a CareKind.
func ParseCareKind(s string) (CareKind, error) {
	k := CareKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown care kind %q", s)
	}
	return k, nil
}

// Valid reports whether k is one of the known care kinds.
func (k CareKind) Valid() bool {
	return slices.Contains(CareKinds, k)
}

// DateLayout is the calendar-day format used in every date set.
const DateLayout = "2006-01-02"

// FormatDate formats t as a calendar day in t's location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// LastCared returns the most recent day in dates.
// Calendar days sort lexically, so the maximum string is the latest day.
// Returns false when no care was ever recorded.
func LastCared(dates []string) (string, bool) {
	if len(dates) == 0 {
		return "", false
	}
	return slices.Max(dates), true
}

// CareSummary holds the last recorded day for each care kind.
// Empty strings mean "never".
type CareSummary struct {
	LastWatered    string `json:"lastWatered,omitempty"`
	LastFertilized string `json:"lastFertilized,omitempty"`
	LastTreated    string `json:"lastTreated,omitempty"`
}
