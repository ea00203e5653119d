package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"ensemble/internal/core"
	ports "ensemble/internal/sheets"
)

// DefaultPieces seeds a store when no seed file is available.
var DefaultPieces = []string{"취타", "미락흘", "도드리", "축제", "플투스"}

type Store struct {
	mu      sync.Mutex
	pieces  []string
	rows    map[string][]core.Row
	folders map[string]string   // piece -> folder ID
	files   map[string][]string // folder ID -> file names
	blobs   map[string][]byte   // file ID -> content
	tables  map[string][][]any
	nextID  int
}

var (
	_ ports.RowSource     = (*Store)(nil)
	_ ports.PieceList     = (*Store)(nil)
	_ ports.UploadCounter = (*Store)(nil)
	_ ports.ReportSink    = (*Store)(nil)
	_ ports.Uploader      = (*Store)(nil)
)

func New(pieces []string) *Store {
	return &Store{
		pieces:  dedupe(pieces),
		rows:    make(map[string][]core.Row),
		folders: make(map[string]string),
		files:   make(map[string][]string),
		blobs:   make(map[string][]byte),
		tables:  make(map[string][][]any),
	}
}

// Seed is the JSON layout accepted by NewFromFile.
type Seed struct {
	Pieces []string `json:"pieces"`
	// Rows maps a piece to [name, label] pairs.
	Rows map[string][][2]string `json:"rows"`
	// Uploads maps a piece to stored file names.
	Uploads map[string][]string `json:"uploads"`
}

// NewFromFile loads a JSON seed. A missing file yields a store with the
// default pieces and no rows.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(DefaultPieces), nil
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(DefaultPieces), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	pieces := seed.Pieces
	if len(pieces) == 0 {
		pieces = DefaultPieces
	}
	s := New(pieces)
	for piece, pairs := range seed.Rows {
		for _, p := range pairs {
			s.AddRow(piece, core.Row{Name: p[0], Label: p[1]})
		}
	}
	for piece, names := range seed.Uploads {
		for _, n := range names {
			s.AddFile(piece, n)
		}
	}
	return s, nil
}

// AddRow appends an attendance row to a piece.
func (s *Store) AddRow(piece string, row core.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[piece] = append(s.rows[piece], row)
}

// AddFile registers a stored recording in a piece folder, creating the folder.
func (s *Store) AddFile(piece, fileName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.folderLocked(piece)
	s.files[id] = append(s.files[id], fileName)
}

// SetPieces replaces the piece list.
func (s *Store) SetPieces(pieces []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pieces = dedupe(pieces)
}

// Table returns a copy of a materialized table.
func (s *Store) Table(title string) ([][]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[title]
	if !ok {
		return nil, false
	}
	out := make([][]any, len(t))
	for i, row := range t {
		out[i] = append([]any(nil), row...)
	}
	return out, true
}

// Rows implements ports.RowSource. Unknown pieces have no rows.
func (s *Store) Rows(_ context.Context, piece string) ([]core.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Row(nil), s.rows[piece]...), nil
}

// List implements ports.PieceList.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.pieces...), nil
}

// CountsByPerson implements ports.UploadCounter.
func (s *Store) CountsByPerson(_ context.Context, pieces []string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for _, piece := range pieces {
		id, ok := s.folders[piece]
		if !ok {
			continue
		}
		for _, f := range s.files[id] {
			name, _, _ := strings.Cut(f, "_")
			if name = strings.TrimSpace(name); name != "" {
				out[name]++
			}
		}
	}
	return out, nil
}

// CountsForPerson implements ports.UploadCounter.
func (s *Store) CountsForPerson(_ context.Context, name string, pieces []string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(pieces))
	for _, piece := range pieces {
		out[piece] = 0
		id, ok := s.folders[piece]
		if !ok {
			continue
		}
		for _, f := range s.files[id] {
			if strings.HasPrefix(f, name+"_") {
				out[piece]++
			}
		}
	}
	return out, nil
}

// Exists implements ports.ReportSink.
func (s *Store) Exists(_ context.Context, title string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[title]
	return ok, nil
}

// Create implements ports.ReportSink.
func (s *Store) Create(_ context.Context, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[title]; ok {
		return fmt.Errorf("sheet %q already exists", title)
	}
	s.tables[title] = [][]any{}
	return nil
}

// Clear implements ports.ReportSink.
func (s *Store) Clear(_ context.Context, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[title]; !ok {
		return fmt.Errorf("sheet %q not found", title)
	}
	s.tables[title] = [][]any{}
	return nil
}

// Write implements ports.ReportSink. Like a values update from A1, it
// overwrites the leading rows and leaves any rows below untouched.
func (s *Store) Write(_ context.Context, title string, values [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[title]
	if !ok {
		return fmt.Errorf("sheet %q not found", title)
	}
	for i, row := range values {
		row = append([]any(nil), row...)
		if i < len(t) {
			t[i] = row
		} else {
			t = append(t, row)
		}
	}
	s.tables[title] = t
	return nil
}

// EnsureFolder implements ports.Uploader.
func (s *Store) EnsureFolder(_ context.Context, piece string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folderLocked(piece), nil
}

// Upload implements ports.Uploader.
func (s *Store) Upload(_ context.Context, folderID, fileName, _ string, body io.Reader) (core.UploadedFile, error) {
	var buf bytes.Buffer
	if body != nil {
		if _, err := io.Copy(&buf, body); err != nil {
			return core.UploadedFile{}, fmt.Errorf("read upload: %w", err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[folderID]; !ok {
		return core.UploadedFile{}, fmt.Errorf("folder %q not found", folderID)
	}
	s.nextID++
	id := fmt.Sprintf("mem-file:%d", s.nextID)
	s.files[folderID] = append(s.files[folderID], fileName)
	s.blobs[id] = buf.Bytes()
	return core.UploadedFile{ID: id, Name: fileName}, nil
}

func (s *Store) folderLocked(piece string) string {
	if id, ok := s.folders[piece]; ok {
		return id
	}
	s.nextID++
	id := fmt.Sprintf("mem-folder:%d", s.nextID)
	s.folders[piece] = id
	s.files[id] = nil
	return id
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
