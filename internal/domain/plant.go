package domain

import (
	"slices"
	"time"
)

// Plant is a tracked plant with its three care-date sets.
// Plants are values: every mutation produces an updated copy.
type Plant struct {
	UserID          string    `json:"userId"`
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Photo           string    `json:"photo"`
	PhotoBlurHash   string    `json:"photoBlurHash,omitempty"`
	WateredDates    []string  `json:"wateredDates"`
	FertilizedDates []string  `json:"fertilizedDates"`
	TreatmentDates  []string  `json:"treatmentDates"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Normalize replaces absent date sets with empty ones.
func (p *Plant) Normalize() {
	if p.WateredDates == nil {
		p.WateredDates = []string{}
	}
	if p.FertilizedDates == nil {
		p.FertilizedDates = []string{}
	}
	if p.TreatmentDates == nil {
		p.TreatmentDates = []string{}
	}
}

// Clone returns a deep copy so callers never share date slices.
func (p Plant) Clone() Plant {
	p.WateredDates = cloneDates(p.WateredDates)
	p.FertilizedDates = cloneDates(p.FertilizedDates)
	p.TreatmentDates = cloneDates(p.TreatmentDates)
	return p
}

// Dates returns the date set for kind. Unknown kinds have no dates.
func (p Plant) Dates(kind CareKind) []string {
	switch kind {
	case CareWater:
		return p.WateredDates
	case CareFertilize:
		return p.FertilizedDates
	case CareTreatment:
		return p.TreatmentDates
	default:
		return nil
	}
}

// Has reports whether date is present in the set for kind.
func (p Plant) Has(kind CareKind, date string) bool {
	return slices.Contains(p.Dates(kind), date)
}

// WithDates returns a copy of p whose set for kind is replaced by dates.
func (p Plant) WithDates(kind CareKind, dates []string) Plant {
	out := p.Clone()
	switch kind {
	case CareWater:
		out.WateredDates = cloneDates(dates)
	case CareFertilize:
		out.FertilizedDates = cloneDates(dates)
	case CareTreatment:
		out.TreatmentDates = cloneDates(dates)
	}
	return out
}

// AddDate returns a copy of p with date appended to the set for kind.
// Duplicates are kept.
func (p Plant) AddDate(kind CareKind, date string) Plant {
	return p.WithDates(kind, append(cloneDates(p.Dates(kind)), date))
}

// RemoveDate returns a copy of p with every occurrence of date removed from the set for kind.
func (p Plant) RemoveDate(kind CareKind, date string) Plant {
	kept := slices.DeleteFunc(cloneDates(p.Dates(kind)), func(d string) bool { return d == date })
	return p.WithDates(kind, kept)
}

// Summary reports the most recent care day of each kind.
func (p Plant) Summary() CareSummary {
	var s CareSummary
	s.LastWatered, _ = LastCared(p.WateredDates)
	s.LastFertilized, _ = LastCared(p.FertilizedDates)
	s.LastTreated, _ = LastCared(p.TreatmentDates)
	return s
}

func cloneDates(dates []string) []string {
	if dates == nil {
		return []string{}
	}
	return slices.Clone(dates)
}

// PlantDraft holds the caller-supplied fields of a new plant.
// Nil date sets are initialized to empty.
type PlantDraft struct {
	Name            string
	Photo           string
	PhotoBlurHash   string
	WateredDates    []string
	FertilizedDates []string
	TreatmentDates  []string
}

// NewPlant builds a plant owned by userID from the draft.
func NewPlant(id, userID string, draft PlantDraft, now time.Time) Plant {
	p := Plant{
		UserID:          userID,
		ID:              id,
		Name:            draft.Name,
		Photo:           draft.Photo,
		PhotoBlurHash:   draft.PhotoBlurHash,
		WateredDates:    cloneDates(draft.WateredDates),
		FertilizedDates: cloneDates(draft.FertilizedDates),
		TreatmentDates:  cloneDates(draft.TreatmentDates),
		CreatedAt:       now,
	}
	return p
}

// PlantPatch is a partial update. Nil pointers leave fields unchanged and
// only kinds present in Dates have their set replaced.
type PlantPatch struct {
	Name          *string
	Photo         *string
	PhotoBlurHash *string
	Dates         map[CareKind][]string
}

// Empty reports whether the patch changes nothing.
func (pp PlantPatch) Empty() bool {
	return pp.Name == nil && pp.Photo == nil && pp.PhotoBlurHash == nil && len(pp.Dates) == 0
}

// Apply merges the patch into a copy of p.
func (pp PlantPatch) Apply(p Plant) Plant {
	out := p.Clone()
	if pp.Name != nil {
		out.Name = *pp.Name
	}
	if pp.Photo != nil {
		out.Photo = *pp.Photo
	}
	if pp.PhotoBlurHash != nil {
		out.PhotoBlurHash = *pp.PhotoBlurHash
	}
	for kind, dates := range pp.Dates {
		out = out.WithDates(kind, dates)
	}
	return out
}
