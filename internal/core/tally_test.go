package core

import "testing"

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{LabelFixedExcuseAbsence, FixedExcuseAbsence, true},
		{LabelGeneralExcuseAbsence, GeneralExcuseAbsence, true},
		{LabelAbsence, Absence, true},
		{" " + LabelLate + " ", Late, true},
		{"Late", Late, true},
		{"late", 0, false},
		{"", 0, false},
		{"출석", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseCategory(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("ParseCategory(%q) = %v,%v want %v,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestTallyKim(t *testing.T) {
	rows := []Row{
		{Name: "Kim", Label: LabelFixedExcuseAbsence},
		{Name: "Kim", Label: LabelAbsence},
		{Name: "Kim", Label: LabelLate},
		{Name: "Kim", Label: LabelLate},
		{Name: "Kim", Label: LabelLate},
	}
	got := Tally(rows)
	want := Counts{FixedExcuse: 1, Absence: 1, Late: 3}
	if got.Counts["Kim"] != want {
		t.Fatalf("counts = %+v, want %+v", got.Counts["Kim"], want)
	}
	if r := DefaultRules().Required(got.Counts["Kim"]); r != 5 {
		t.Fatalf("required = %d, want 5", r)
	}
}

func TestTallySkipsAnomalies(t *testing.T) {
	rows := []Row{
		{Name: "", Label: LabelAbsence},
		{Name: "   ", Label: LabelLate},
		{Name: "Lee", Label: "출석"},
		{Name: " Park ", Label: LabelAbsence},
		{Name: "Park", Label: ""},
		{},
	}
	got := Tally(rows)
	if len(got.Counts) != 2 {
		t.Fatalf("expected 2 people, got %v", got.Counts)
	}
	if c, ok := got.Counts["Lee"]; !ok || !c.IsZero() {
		t.Fatalf("Lee should be seeded with zero counts, got %+v (present=%v)", c, ok)
	}
	if got.Counts["Park"] != (Counts{Absence: 1}) {
		t.Fatalf("Park counts = %+v", got.Counts["Park"])
	}
	if len(got.Names) != 2 || got.Names[0] != "Lee" || got.Names[1] != "Park" {
		t.Fatalf("names order = %v", got.Names)
	}
}

func TestTallyIsOrderIndependent(t *testing.T) {
	rows := []Row{
		{Name: "A", Label: LabelLate},
		{Name: "B", Label: LabelAbsence},
		{Name: "A", Label: LabelGeneralExcuseAbsence},
		{Name: "B", Label: LabelLate},
	}
	reversed := make([]Row, len(rows))
	for i := range rows {
		reversed[len(rows)-1-i] = rows[i]
	}
	a, b := Tally(rows), Tally(reversed)
	for name, c := range a.Counts {
		if b.Counts[name] != c {
			t.Fatalf("%s: %+v != %+v", name, c, b.Counts[name])
		}
	}
}

func TestTallyFor(t *testing.T) {
	rows := []Row{
		{Name: "Kim", Label: LabelLate},
		{Name: "Kim ", Label: LabelLate},
		{Name: "Lee", Label: LabelAbsence},
	}
	if got := TallyFor(rows, "Kim"); got != (Counts{Late: 2}) {
		t.Fatalf("TallyFor = %+v", got)
	}
	if got := TallyFor(rows, "Choi"); !got.IsZero() {
		t.Fatalf("unknown person should have zero counts, got %+v", got)
	}
}
