package domain

import (
	"slices"
	"time"
)

// CellState is the single display state of one plant on one calendar day.
// The eight values are the power set of {water, fertilize, treatment}.
type CellState string

// Calendar cell states.
const (
	StateEmpty              CellState = "empty"
	StateWater              CellState = "water"
	StateFertilize          CellState = "fertilize"
	StateTreatment          CellState = "treatment"
	StateWaterFertilize     CellState = "water-fertilize"
	StateWaterTreatment     CellState = "water-treatment"
	StateFertilizeTreatment CellState = "fertilize-treatment"
	StateAll                CellState = "all"
)

// CellStates lists every named state.
var CellStates = []CellState{
	StateEmpty,
	StateWater,
	StateFertilize,
	StateTreatment,
	StateWaterFertilize,
	StateWaterTreatment,
	StateFertilizeTreatment,
	StateAll,
}

var stateKinds = map[CellState][]CareKind{
	StateEmpty:              nil,
	StateWater:              {CareWater},
	StateFertilize:          {CareFertilize},
	StateTreatment:          {CareTreatment},
	StateWaterFertilize:     {CareWater, CareFertilize},
	StateWaterTreatment:     {CareWater, CareTreatment},
	StateFertilizeTreatment: {CareFertilize, CareTreatment},
	StateAll:                {CareWater, CareFertilize, CareTreatment},
}

// Valid reports whether s is one of the eight named states.
func (s CellState) Valid() bool {
	_, ok := stateKinds[s]
	return ok
}

// Kinds returns the care kinds implied by s.
// Unrecognized states imply no kinds, exactly like StateEmpty.
func (s CellState) Kinds() []CareKind {
	return slices.Clone(stateKinds[s])
}

// StateFor maps a membership triple to its named state.
func StateFor(watered, fertilized, treated bool) CellState {
	switch {
	case watered && fertilized && treated:
		return StateAll
	case watered && fertilized:
		return StateWaterFertilize
	case watered && treated:
		return StateWaterTreatment
	case fertilized && treated:
		return StateFertilizeTreatment
	case watered:
		return StateWater
	case fertilized:
		return StateFertilize
	case treated:
		return StateTreatment
	default:
		return StateEmpty
	}
}

// DeriveState returns the named state of plant on date.
func DeriveState(p Plant, date string) CellState {
	return StateFor(
		p.Has(CareWater, date),
		p.Has(CareFertilize, date),
		p.Has(CareTreatment, date),
	)
}

// ApplyState returns a copy of p whose membership of date matches state exactly.
// date is cleared from all three sets, then re-added to the sets implied by state.
func ApplyState(p Plant, date string, state CellState) Plant {
	out := p.Clone()
	for _, kind := range CareKinds {
		out = out.RemoveDate(kind, date)
	}
	for _, kind := range state.Kinds() {
		out = out.AddDate(kind, date)
	}
	return out
}

// MonthDays lists every calendar day of the given month.
func MonthDays(year int, month time.Month) []string {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := make([]string, 0, 31)
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		days = append(days, FormatDate(d))
	}
	return days
}

// ParseMonth parses a YYYY-MM month.
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Year(), t.Month(), nil
}
