package core

import "sort"

// ReportHeader is the first row of the materialized report.
var ReportHeader = []any{
	"name",
	"FixedExcuseAbsence",
	"GeneralExcuseAbsence",
	"Absence",
	"Late",
	"RequiredAudio",
	"SubmittedAudio",
	"MissingAudio",
	"Fine",
}

type (
	// ReportRow is the computed line for one person.
	ReportRow struct {
		Name      string `json:"name"`
		Counts    Counts `json:"counts"`
		Required  int    `json:"required"`
		Submitted int    `json:"submitted"`
		Missing   int    `json:"missing"`
		Fine      int    `json:"fine"`
	}

	// Roster is the merge of several piece tallies.
	Roster struct {
		// Names in order of first appearance across the merged pieces.
		Names []string
		// PerPiece holds one Counts per piece the person has rows in.
		PerPiece map[string][]Counts
	}
)

// Merge combines piece tallies. Merging is order independent apart from the
// resulting Names order, which follows the order of tallies.
func Merge(tallies ...PieceTally) Roster {
	r := Roster{PerPiece: make(map[string][]Counts)}
	for _, t := range tallies {
		for _, name := range t.Names {
			if _, ok := r.PerPiece[name]; !ok {
				r.Names = append(r.Names, name)
			}
			r.PerPiece[name] = append(r.PerPiece[name], t.Counts[name])
		}
	}
	return r
}

// Total returns a person's Counts summed over all pieces.
func (r Roster) Total(name string) Counts {
	var sum Counts
	for _, c := range r.PerPiece[name] {
		sum = sum.Add(c)
	}
	return sum
}

// BuildRows computes one ReportRow per roster entry. submitted maps a
// person to the number of recordings on file; absent names count as 0.
func BuildRows(rules Rules, roster Roster, submitted map[string]int, sortByName bool) []ReportRow {
	names := append([]string(nil), roster.Names...)
	if sortByName {
		sort.Strings(names)
	}
	rows := make([]ReportRow, 0, len(names))
	for _, name := range names {
		counts := roster.Total(name)
		required := rules.RequiredAcross(roster.PerPiece[name])
		sub := submitted[name]
		missing := Missing(required, sub)
		rows = append(rows, ReportRow{
			Name:      name,
			Counts:    counts,
			Required:  required,
			Submitted: sub,
			Missing:   missing,
			Fine:      rules.Fine(counts.Absence, missing),
		})
	}
	return rows
}

// Values returns the row in header column order.
func (r ReportRow) Values() []any {
	out := make([]any, 0, len(ReportHeader))
	out = append(out, r.Name)
	for _, cat := range Categories {
		out = append(out, r.Counts.Get(cat))
	}
	return append(out, r.Required, r.Submitted, r.Missing, r.Fine)
}

// ReportTable renders the header followed by one line per row.
func ReportTable(rows []ReportRow) [][]any {
	out := make([][]any, 0, len(rows)+1)
	out = append(out, append([]any(nil), ReportHeader...))
	for _, r := range rows {
		out = append(out, r.Values())
	}
	return out
}
