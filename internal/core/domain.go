package core

import (
	"strings"
	"time"
)

// Category is one of the recognised attendance infraction labels.
type Category int

const (
	FixedExcuseAbsence Category = iota
	GeneralExcuseAbsence
	Absence
	Late
)

// Sheet labels as typed by the attendance keepers.
const (
	LabelFixedExcuseAbsence   = "고정결석계"
	LabelGeneralExcuseAbsence = "일반결석계"
	LabelAbsence              = "결석"
	LabelLate                 = "지각"
)

// Categories lists every category in report column order.
var Categories = [...]Category{FixedExcuseAbsence, GeneralExcuseAbsence, Absence, Late}

var categoryByLabel = map[string]Category{
	LabelFixedExcuseAbsence:   FixedExcuseAbsence,
	LabelGeneralExcuseAbsence: GeneralExcuseAbsence,
	LabelAbsence:              Absence,
	LabelLate:                 Late,

	"FixedExcuseAbsence":   FixedExcuseAbsence,
	"GeneralExcuseAbsence": GeneralExcuseAbsence,
	"Absence":              Absence,
	"Late":                 Late,
}

// ParseCategory maps a raw cell value to a Category. Only exact matches
// (after trimming surrounding whitespace) are recognised.
func ParseCategory(label string) (Category, bool) {
	c, ok := categoryByLabel[strings.TrimSpace(label)]
	return c, ok
}

// String returns the canonical tag name.
func (c Category) String() string {
	switch c {
	case FixedExcuseAbsence:
		return "FixedExcuseAbsence"
	case GeneralExcuseAbsence:
		return "GeneralExcuseAbsence"
	case Absence:
		return "Absence"
	case Late:
		return "Late"
	default:
		return "Unknown"
	}
}

type (
	// Row is one decoded attendance record. Other columns of the source
	// record are dropped at the decoding boundary.
	Row struct {
		Name  string
		Label string
	}

	// Counts holds the number of occurrences of each category. The zero
	// value has all four categories present at 0.
	Counts struct {
		FixedExcuse   int `json:"FixedExcuseAbsence"`
		GeneralExcuse int `json:"GeneralExcuseAbsence"`
		Absence       int `json:"Absence"`
		Late          int `json:"Late"`
	}

	// UploadedFile describes a stored submission.
	UploadedFile struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		WebViewLink string `json:"webViewLink,omitempty"`
	}

	// ReportRun records one materialization attempt.
	ReportRun struct {
		ID         string    `json:"id"`
		Title      string    `json:"title"`
		Rows       int       `json:"rows"`
		TotalFine  int       `json:"totalFine"`
		StartedAt  time.Time `json:"startedAt"`
		FinishedAt time.Time `json:"finishedAt"`
		// Error is empty for successful runs.
		Error string `json:"error,omitempty"`
	}
)

// Inc increments the counter for c.
func (c *Counts) Inc(cat Category) {
	switch cat {
	case FixedExcuseAbsence:
		c.FixedExcuse++
	case GeneralExcuseAbsence:
		c.GeneralExcuse++
	case Absence:
		c.Absence++
	case Late:
		c.Late++
	}
}

// Get returns the counter for cat.
func (c Counts) Get(cat Category) int {
	switch cat {
	case FixedExcuseAbsence:
		return c.FixedExcuse
	case GeneralExcuseAbsence:
		return c.GeneralExcuse
	case Absence:
		return c.Absence
	case Late:
		return c.Late
	}
	return 0
}

// Add returns the element-wise sum of c and o.
func (c Counts) Add(o Counts) Counts {
	return Counts{
		FixedExcuse:   c.FixedExcuse + o.FixedExcuse,
		GeneralExcuse: c.GeneralExcuse + o.GeneralExcuse,
		Absence:       c.Absence + o.Absence,
		Late:          c.Late + o.Late,
	}
}

// IsZero reports whether no category has been counted.
func (c Counts) IsZero() bool {
	return c == Counts{}
}
