package core

import (
	"errors"
	"testing"
)

func TestLatePairs(t *testing.T) {
	cases := []struct {
		in, out int
	}{
		{0, 0},
		{1, 0},
		{2, 2},
		{3, 2},
		{4, 4},
		{7, 6},
		{-1, 0},
	}
	for _, tc := range cases {
		if got := LatePairs(tc.in); got != tc.out {
			t.Fatalf("LatePairs(%d) = %d, want %d", tc.in, got, tc.out)
		}
	}
}

func TestRequired(t *testing.T) {
	r := DefaultRules()
	cases := []struct {
		name string
		c    Counts
		want int
	}{
		{"zero", Counts{}, 0},
		{"fixed excuse", Counts{FixedExcuse: 1}, 1},
		{"general excuse", Counts{GeneralExcuse: 1}, 2},
		{"absence", Counts{Absence: 1}, 2},
		{"single late", Counts{Late: 1}, 0},
		{"two lates", Counts{Late: 2}, 2},
		{"kim", Counts{FixedExcuse: 1, Absence: 1, Late: 3}, 5},
		{"everything", Counts{FixedExcuse: 2, GeneralExcuse: 3, Absence: 1, Late: 5}, 2 + 6 + 2 + 4},
	}
	for _, tc := range cases {
		if got := r.Required(tc.c); got != tc.want {
			t.Fatalf("%s: Required(%+v) = %d, want %d", tc.name, tc.c, got, tc.want)
		}
	}
}

func TestRequiredIsMonotonic(t *testing.T) {
	r := DefaultRules()
	base := Counts{FixedExcuse: 1, GeneralExcuse: 1, Absence: 1, Late: 1}
	for _, cat := range Categories {
		prev := r.Required(base)
		c := base
		for i := 0; i < 6; i++ {
			c.Inc(cat)
			got := r.Required(c)
			if got < prev {
				t.Fatalf("Required decreased for %s: %d -> %d", cat, prev, got)
			}
			prev = got
		}
	}
}

func TestRequiredAcrossScopes(t *testing.T) {
	perPiece := []Counts{{Late: 1}, {Late: 1}, {Absence: 1}}

	r := DefaultRules()
	if got := r.RequiredAcross(perPiece); got != 2 {
		t.Fatalf("per piece: got %d, want 2", got)
	}

	r.Scope = ScopeTotal
	if got := r.RequiredAcross(perPiece); got != 4 {
		t.Fatalf("total: got %d, want 4", got)
	}
}

func TestMissing(t *testing.T) {
	cases := []struct {
		required, submitted, want int
	}{
		{5, 2, 3},
		{3, 5, 0},
		{0, 0, 0},
		{4, 4, 0},
		{2, -1, 2},
		{-3, 0, 0},
	}
	for _, tc := range cases {
		if got := Missing(tc.required, tc.submitted); got != tc.want {
			t.Fatalf("Missing(%d, %d) = %d, want %d", tc.required, tc.submitted, got, tc.want)
		}
	}
}

func TestFine(t *testing.T) {
	r := DefaultRules()
	if got := r.Fine(1, 3); got != 12000 {
		t.Fatalf("Fine(1, 3) = %d, want 12000", got)
	}
	if got := r.Fine(0, 0); got != 0 {
		t.Fatalf("Fine(0, 0) = %d, want 0", got)
	}
	// Doubling absences only doubles the absence term.
	if got := r.Fine(2, 3) - r.Fine(1, 3); got != AbsenceFineRate {
		t.Fatalf("absence term not separable: diff=%d", got)
	}

	r.AbsenceFineRate = 1000
	r.AudioFineRate = 500
	if got := r.Fine(2, 4); got != 4000 {
		t.Fatalf("custom rates: got %d, want 4000", got)
	}
}

func TestRulesValidate(t *testing.T) {
	if err := DefaultRules().Validate(); err != nil {
		t.Fatalf("default rules invalid: %v", err)
	}
	bad := DefaultRules()
	bad.AudioFineRate = -1
	if err := bad.Validate(); !errors.Is(err, ErrInvalidRules) {
		t.Fatalf("expected ErrInvalidRules, got %v", err)
	}
	bad = DefaultRules()
	bad.Scope = "weekly"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidRules) {
		t.Fatalf("expected ErrInvalidRules for scope, got %v", err)
	}
}
