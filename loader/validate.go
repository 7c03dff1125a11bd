package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/apexrivals/engine/state"
	"github.com/nathoo/apexrivals/types"
)

// ValidationError collects all validation errors.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// validate checks compiled defs for referential integrity: unique rival
// ids, traits in range, a grid that is a permutation of the actor set,
// and sane pacing numbers.
func validate(defs *state.Defs) error {
	ve := &ValidationError{}

	if len(defs.Rivals) == 0 {
		ve.Errors = append(ve.Errors, "at least one Rival is required")
	}

	seen := map[string]bool{}
	for _, r := range defs.Rivals {
		if r.ID == types.PlayerID {
			ve.Errors = append(ve.Errors, fmt.Sprintf("rival id %q is reserved", types.PlayerID))
		}
		if seen[r.ID] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate rival id %q", r.ID))
		}
		seen[r.ID] = true
		if r.Name == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("rival %q: name is required", r.ID))
		}
		for trait, v := range map[string]float64{
			"aggression":     r.Aggression,
			"loyalty":        r.Loyalty,
			"fear":           r.Fear,
			"heat_tolerance": r.HeatTolerance,
		} {
			if v < 0 || v > 1 {
				ve.Errors = append(ve.Errors, fmt.Sprintf("rival %q: %s must be in [0,1], got %g", r.ID, trait, v))
			}
		}
	}

	// Grid must cover player + every rival, exactly once each.
	want := map[string]bool{types.PlayerID: true}
	for _, r := range defs.Rivals {
		want[r.ID] = true
	}
	got := map[string]bool{}
	for _, id := range defs.Positions {
		if !want[id] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("grid references unknown id %q", id))
		}
		if got[id] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("grid repeats id %q", id))
		}
		got[id] = true
	}
	for id := range want {
		if !got[id] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("grid is missing id %q", id))
		}
	}

	if defs.Race.Laps < 1 {
		ve.Errors = append(ve.Errors, "race laps must be at least 1")
	}
	if defs.Race.TicksPerLap < 1 {
		ve.Errors = append(ve.Errors, "ticks_per_lap must be at least 1")
	}
	if defs.Race.TickSeconds < 1 {
		ve.Errors = append(ve.Errors, "tick_seconds must be at least 1")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}
