package core

import "strings"

// PieceTally is the result of tallying the rows of one piece.
type PieceTally struct {
	// Names in order of first appearance.
	Names  []string
	Counts map[string]Counts
}

// Tally counts category occurrences per person. Every row with a non-empty
// name seeds a zeroed entry, so a member who only has unrecognised labels
// still shows up with zero counts. Rows with an empty name or an unknown
// label are skipped without error.
func Tally(rows []Row) PieceTally {
	t := PieceTally{Counts: make(map[string]Counts)}
	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			continue
		}
		c, seen := t.Counts[name]
		if !seen {
			t.Names = append(t.Names, name)
		}
		if cat, ok := ParseCategory(row.Label); ok {
			c.Inc(cat)
		}
		t.Counts[name] = c
	}
	return t
}

// TallyFor counts the rows that belong to a single person.
func TallyFor(rows []Row, name string) Counts {
	name = strings.TrimSpace(name)
	var c Counts
	for _, row := range rows {
		if strings.TrimSpace(row.Name) != name {
			continue
		}
		if cat, ok := ParseCategory(row.Label); ok {
			c.Inc(cat)
		}
	}
	return c
}
