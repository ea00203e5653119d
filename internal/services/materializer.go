package services

import (
	"context"
	"fmt"
	"sync"

	"ensemble/internal/core"
	ports "ensemble/internal/sheets"
)

// Materializer replaces the contents of the report sheet. Only one
// materialization may run at a time per process.
type Materializer struct {
	sink ports.ReportSink
	mu   sync.Mutex
}

func NewMaterializer(sink ports.ReportSink) *Materializer {
	return &Materializer{sink: sink}
}

// Guard runs fn while holding the run lock. It returns ErrRunInProgress
// without calling fn when another run holds the lock.
func (m *Materializer) Guard(fn func() error) error {
	if !m.mu.TryLock() {
		return ErrRunInProgress
	}
	defer m.mu.Unlock()
	return fn()
}

// Materialize writes header and rows to title, creating the sheet when it
// does not exist and clearing it otherwise. It never appends.
func (m *Materializer) Materialize(ctx context.Context, title string, rows []core.ReportRow) error {
	exists, err := m.sink.Exists(ctx, title)
	if err != nil {
		return fmt.Errorf("%w: check report sheet: %w", ErrCollaborator, err)
	}
	if exists {
		if err := m.sink.Clear(ctx, title); err != nil {
			return fmt.Errorf("%w: clear report sheet: %w", ErrCollaborator, err)
		}
	} else {
		if err := m.sink.Create(ctx, title); err != nil {
			return fmt.Errorf("%w: create report sheet: %w", ErrCollaborator, err)
		}
	}
	if err := m.sink.Write(ctx, title, core.ReportTable(rows)); err != nil {
		return fmt.Errorf("%w: write report sheet: %w", ErrCollaborator, err)
	}
	return nil
}
