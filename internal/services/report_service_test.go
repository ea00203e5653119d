package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"ensemble/internal/core"
	"ensemble/internal/sheets/memory"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(store *memory.Store, rec Recorder) *ReportService {
	svc := NewReportService(Deps{
		Pieces:   store,
		Rows:     store,
		Uploads:  store,
		Uploader: store,
		Sink:     store,
		Recorder: rec,
	}, core.DefaultRules(), Options{SortByName: true}, quietLogger())
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc
}

func addRows(store *memory.Store, piece, name string, labels ...string) {
	for _, l := range labels {
		store.AddRow(piece, core.Row{Name: name, Label: l})
	}
}

type recorder struct {
	mu   sync.Mutex
	runs []core.ReportRun
	err  error
}

func (r *recorder) RecordRun(_ context.Context, run core.ReportRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return r.err
}

func TestBuildKimScenario(t *testing.T) {
	store := memory.New([]string{"A"})
	addRows(store, "A", "Kim",
		core.LabelFixedExcuseAbsence, core.LabelAbsence,
		core.LabelLate, core.LabelLate, core.LabelLate)
	store.AddFile("A", "Kim_A_1.mp3")
	store.AddFile("A", "Kim_A_2.mp3")

	rows, err := newTestService(store, nil).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	got := rows[0]
	want := core.ReportRow{
		Name:      "Kim",
		Counts:    core.Counts{FixedExcuse: 1, Absence: 1, Late: 3},
		Required:  5,
		Submitted: 2,
		Missing:   3,
		Fine:      12000,
	}
	if got != want {
		t.Fatalf("row = %+v, want %+v", got, want)
	}
}

func TestBuildOverSubmission(t *testing.T) {
	store := memory.New([]string{"A"})
	addRows(store, "A", "Lee", core.LabelFixedExcuseAbsence, core.LabelGeneralExcuseAbsence)
	for _, f := range []string{"Lee_A_1.mp3", "Lee_A_2.mp3", "Lee_A_3.mp3", "Lee_A_4.mp3", "Lee_A_5.mp3"} {
		store.AddFile("A", f)
	}
	rows, err := newTestService(store, nil).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if rows[0].Required != 3 || rows[0].Missing != 0 || rows[0].Fine != 0 {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}

func TestBuildLatesDoNotPairAcrossPieces(t *testing.T) {
	store := memory.New([]string{"A", "B"})
	addRows(store, "A", "Park", core.LabelLate)
	addRows(store, "B", "Park", core.LabelLate)

	rows, err := newTestService(store, nil).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if rows[0].Counts.Late != 2 || rows[0].Required != 0 {
		t.Fatalf("per-piece scope should not pair lates across pieces: %+v", rows[0])
	}
}

func TestRunCreatesThenReplaces(t *testing.T) {
	ctx := context.Background()
	store := memory.New([]string{"A"})
	addRows(store, "A", "Kim", core.LabelAbsence)
	addRows(store, "A", "Lee", core.LabelLate)
	addRows(store, "A", "Choi", core.LabelLate)
	rec := &recorder{}
	svc := newTestService(store, rec)

	res, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RunID == "" || res.Title != DefaultReportTitle || len(res.Rows) != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	table, ok := store.Table(DefaultReportTitle)
	if !ok || len(table) != 4 {
		t.Fatalf("expected header + 3 rows, got %v", table)
	}
	if table[0][0] != "name" || table[0][8] != "Fine" {
		t.Fatalf("unexpected header: %v", table[0])
	}

	// Second run with one person fewer must not leave the old row behind.
	store2 := memory.New([]string{"A"})
	addRows(store2, "A", "Kim", core.LabelAbsence)
	addRows(store2, "A", "Lee", core.LabelLate)
	svc.deps.Rows = store2

	if _, err := svc.Run(ctx); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	table, _ = store.Table(DefaultReportTitle)
	if len(table) != 3 {
		t.Fatalf("expected header + 2 rows after rerun, got %d: %v", len(table), table)
	}
	for _, row := range table[1:] {
		if row[0] == "Choi" {
			t.Fatalf("stale row left over: %v", table)
		}
	}

	if len(rec.runs) != 2 || rec.runs[0].Rows != 3 || rec.runs[0].TotalFine != 9000 || rec.runs[0].Error != "" {
		t.Fatalf("unexpected recorded runs: %+v", rec.runs)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New([]string{"A", "B"})
	addRows(store, "A", "Kim", core.LabelAbsence, core.LabelLate)
	addRows(store, "A", "Lee", core.LabelLate, core.LabelLate)
	addRows(store, "B", "Kim", core.LabelLate)
	addRows(store, "B", "Choi", core.LabelGeneralExcuseAbsence, core.LabelFixedExcuseAbsence)
	store.AddFile("A", "Kim_A_1.mp3")
	store.AddFile("B", "Choi_B_1.mp3")
	people := 3

	svc := newTestService(store, nil)
	if _, err := svc.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	first, ok := store.Table(DefaultReportTitle)
	if !ok || len(first) != people+1 {
		t.Fatalf("expected header + %d rows, got %v", people, first)
	}

	if _, err := svc.Run(ctx); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	second, _ := store.Table(DefaultReportTitle)
	if len(second) != people+1 {
		t.Fatalf("expected header + %d rows after rerun, got %v", people, second)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("rerun changed the table:\nfirst:  %v\nsecond: %v", first, second)
	}
}

func TestRunRecorderFailureDoesNotFailRun(t *testing.T) {
	store := memory.New([]string{"A"})
	addRows(store, "A", "Kim", core.LabelAbsence)
	svc := newTestService(store, &recorder{err: errors.New("disk full")})
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("recorder failure must not fail the run: %v", err)
	}
}

type failingRows struct{ err error }

func (f failingRows) Rows(context.Context, string) ([]core.Row, error) { return nil, f.err }

func TestRunCollaboratorFailureAborts(t *testing.T) {
	store := memory.New([]string{"A", "B"})
	addRows(store, "A", "Kim", core.LabelAbsence)
	rec := &recorder{}
	svc := newTestService(store, rec)
	svc.deps.Rows = failingRows{err: errors.New("quota exceeded")}

	_, err := svc.Run(context.Background())
	if !errors.Is(err, ErrCollaborator) {
		t.Fatalf("expected ErrCollaborator, got %v", err)
	}
	if _, ok := store.Table(DefaultReportTitle); ok {
		t.Fatal("report sheet must not be touched when the build fails")
	}
	if len(rec.runs) != 1 || rec.runs[0].Error == "" {
		t.Fatalf("failed run should be recorded with its error: %+v", rec.runs)
	}
}

type blockingRows struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRows) Rows(ctx context.Context, _ string) ([]core.Row, error) {
	b.entered <- struct{}{}
	<-b.release
	return nil, nil
}

func TestRunInProgress(t *testing.T) {
	store := memory.New([]string{"A"})
	svc := newTestService(store, nil)
	blocker := &blockingRows{entered: make(chan struct{}, 1), release: make(chan struct{})}
	svc.deps.Rows = blocker

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background())
		done <- err
	}()
	<-blocker.entered

	if _, err := svc.Run(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	close(blocker.release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestPersonStatus(t *testing.T) {
	store := memory.New([]string{"A", "B", "C"})
	addRows(store, "A", "Kim", core.LabelLate, core.LabelLate, core.LabelAbsence)
	addRows(store, "B", "Kim", core.LabelLate)
	addRows(store, "C", "Lee", core.LabelAbsence)
	svc := newTestService(store, nil)

	status, err := svc.PersonStatus(context.Background(), " Kim ")
	if err != nil {
		t.Fatalf("PersonStatus: %v", err)
	}
	if len(status) != 1 {
		t.Fatalf("only pieces with a requirement should be listed: %+v", status)
	}
	a := status["A"]
	if a.Required != 4 || a.Breakdown.Late != 2 || a.Breakdown.Absence != 1 {
		t.Fatalf("unexpected status for A: %+v", a)
	}

	if _, err := svc.PersonStatus(context.Background(), "  "); !errors.Is(err, ErrInputMissing) {
		t.Fatalf("expected ErrInputMissing, got %v", err)
	}
}

func TestPersonSubmissions(t *testing.T) {
	store := memory.New([]string{"A", "B"})
	store.AddFile("A", "Kim_A_1.mp3")
	store.AddFile("A", "Kimberly_A_1.mp3")
	svc := newTestService(store, nil)

	counts, err := svc.PersonSubmissions(context.Background(), "Kim")
	if err != nil {
		t.Fatalf("PersonSubmissions: %v", err)
	}
	if counts["A"] != 1 || counts["B"] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if _, err := svc.PersonSubmissions(context.Background(), ""); !errors.Is(err, ErrInputMissing) {
		t.Fatalf("expected ErrInputMissing, got %v", err)
	}
}

func TestUpload(t *testing.T) {
	ctx := context.Background()
	store := memory.New([]string{"A"})
	svc := newTestService(store, nil)

	f, err := svc.Upload(ctx, UploadRequest{Name: "Kim", Piece: "A", FileName: "take.M4A", Body: strings.NewReader("x")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if f.Name != "Kim_A_1700000000000.m4a" {
		t.Fatalf("unexpected file name %q", f.Name)
	}
	counts, _ := svc.PersonSubmissions(ctx, "Kim")
	if counts["A"] != 1 {
		t.Fatalf("upload not counted: %v", counts)
	}

	tests := []struct {
		name string
		req  UploadRequest
	}{
		{"no name", UploadRequest{Piece: "A", Body: strings.NewReader("x")}},
		{"no piece", UploadRequest{Name: "Kim", Body: strings.NewReader("x")}},
		{"no body", UploadRequest{Name: "Kim", Piece: "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Upload(ctx, tt.req); !errors.Is(err, ErrInputMissing) {
				t.Fatalf("expected ErrInputMissing, got %v", err)
			}
		})
	}
}

func TestSubmissionFileName(t *testing.T) {
	at := time.UnixMilli(42)
	if got := SubmissionFileName("Kim", "A", "", at); got != "Kim_A_42.mp3" {
		t.Fatalf("got %q", got)
	}
	if got := SubmissionFileName("Kim", "A", "rec.wav", at); got != "Kim_A_42.wav" {
		t.Fatalf("got %q", got)
	}
}

func TestEnsureFolder(t *testing.T) {
	store := memory.New(nil)
	svc := newTestService(store, nil)
	id, err := svc.EnsureFolder(context.Background(), "A")
	if err != nil || id == "" {
		t.Fatalf("EnsureFolder = %q, %v", id, err)
	}
	if _, err := svc.EnsureFolder(context.Background(), ""); !errors.Is(err, ErrInputMissing) {
		t.Fatalf("expected ErrInputMissing, got %v", err)
	}
}
