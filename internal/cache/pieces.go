package cache

import (
	"context"
	"time"

	ports "ensemble/internal/sheets"

	"golang.org/x/sync/singleflight"
)

// DefaultPieceTTL matches how long a piece list may be served stale.
const DefaultPieceTTL = 5 * time.Minute

// PieceList caches another PieceList. Concurrent misses share one fetch.
type PieceList struct {
	next  ports.PieceList
	value *Value[[]string]
	group singleflight.Group
}

var _ ports.PieceList = (*PieceList)(nil)

func NewPieceList(next ports.PieceList, ttl time.Duration, clock Clock) *PieceList {
	return &PieceList{next: next, value: NewValue[[]string](ttl, clock)}
}

// List returns the cached list while fresh, otherwise fetches it. Failed
// fetches are not cached.
func (p *PieceList) List(ctx context.Context) ([]string, error) {
	if names, ok := p.value.Get(); ok {
		return append([]string(nil), names...), nil
	}
	v, err, _ := p.group.Do("pieces", func() (any, error) {
		names, err := p.next.List(ctx)
		if err != nil {
			return nil, err
		}
		p.value.Set(names)
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), v.([]string)...), nil
}

// Invalidate forces the next List to fetch.
func (p *PieceList) Invalidate() {
	p.value.Invalidate()
}

// Static is a fixed piece list.
type Static []string

func (s Static) List(context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}
