// Package core holds the attendance-to-fine rules.
//
// Attendance rows are tallied per piece into Counts, Counts are turned into
// a number of audio recordings owed, the shortfall against uploaded
// recordings is computed and finally a fine is derived from absences and
// missing recordings. Everything in this package is pure.
package core

import (
	"errors"
	"fmt"
)

// Business constants. Rules built by DefaultRules use these values.
const (
	FixedExcuseWeight   = 1
	GeneralExcuseWeight = 2
	AbsenceWeight       = 2
	// LatePairWeight is applied to the number of lates rounded down to an
	// even count, so every two lates owe two recordings.
	LatePairWeight = 1

	AbsenceFineRate = 3000
	AudioFineRate   = 3000
)

// RequirementScope selects where the requirement formula is applied.
type RequirementScope string

const (
	// ScopePerPiece applies the formula to each piece and sums the results.
	// An odd late in one piece never pairs with a late in another.
	ScopePerPiece RequirementScope = "per_piece"
	// ScopeTotal applies the formula once to Counts summed over all pieces.
	ScopeTotal RequirementScope = "total"
)

var ErrInvalidRules = errors.New("invalid rules")

// Rules carries the tunable weights and rates.
type Rules struct {
	FixedExcuseWeight   int
	GeneralExcuseWeight int
	AbsenceWeight       int
	LatePairWeight      int

	AbsenceFineRate int
	AudioFineRate   int

	Scope RequirementScope
}

// DefaultRules returns the rules with the package constants.
func DefaultRules() Rules {
	return Rules{
		FixedExcuseWeight:   FixedExcuseWeight,
		GeneralExcuseWeight: GeneralExcuseWeight,
		AbsenceWeight:       AbsenceWeight,
		LatePairWeight:      LatePairWeight,
		AbsenceFineRate:     AbsenceFineRate,
		AudioFineRate:       AudioFineRate,
		Scope:               ScopePerPiece,
	}
}

func (r Rules) Validate() error {
	for name, v := range map[string]int{
		"fixed_excuse weight":   r.FixedExcuseWeight,
		"general_excuse weight": r.GeneralExcuseWeight,
		"absence weight":        r.AbsenceWeight,
		"late_pair weight":      r.LatePairWeight,
		"absence fine":          r.AbsenceFineRate,
		"audio fine":            r.AudioFineRate,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalidRules, name, v)
		}
	}
	switch r.Scope {
	case ScopePerPiece, ScopeTotal:
	default:
		return fmt.Errorf("%w: unknown requirement scope %q", ErrInvalidRules, r.Scope)
	}
	return nil
}

// LatePairs rounds n down to an even number: 1 -> 0, 2 -> 2, 3 -> 2.
func LatePairs(n int) int {
	if n <= 0 {
		return 0
	}
	return (n / 2) * 2
}

// Required returns the number of recordings owed for c.
func (r Rules) Required(c Counts) int {
	return c.FixedExcuse*r.FixedExcuseWeight +
		c.GeneralExcuse*r.GeneralExcuseWeight +
		c.Absence*r.AbsenceWeight +
		LatePairs(c.Late)*r.LatePairWeight
}

// RequiredAcross applies the formula to a person's per-piece Counts
// according to the rule scope.
func (r Rules) RequiredAcross(perPiece []Counts) int {
	if r.Scope == ScopeTotal {
		var sum Counts
		for _, c := range perPiece {
			sum = sum.Add(c)
		}
		return r.Required(sum)
	}
	total := 0
	for _, c := range perPiece {
		total += r.Required(c)
	}
	return total
}

// Missing returns max(required - submitted, 0). Extra submissions are not
// carried forward.
func Missing(required, submitted int) int {
	if required < 0 {
		required = 0
	}
	if submitted < 0 {
		submitted = 0
	}
	if submitted >= required {
		return 0
	}
	return required - submitted
}

// Fine charges every absence and every missing recording. Lates and
// excused absences are only paid through the recording requirement.
func (r Rules) Fine(absences, missing int) int {
	return absences*r.AbsenceFineRate + missing*r.AudioFineRate
}
