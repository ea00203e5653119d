package cache

import (
	"sync"
	"time"
)

// Clock abstracts time.Now so expiry can be tested.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Value holds a single value together with the time it was stored.
// A value is fresh while now - storedAt < ttl.
type Value[T any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	clock    Clock
	value    T
	storedAt time.Time
	valid    bool
}

// NewValue creates an empty cache. A nil clock uses the wall clock.
func NewValue[T any](ttl time.Duration, clock Clock) *Value[T] {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Value[T]{ttl: ttl, clock: clock}
}

// Get returns the cached value if it is still fresh.
func (v *Value[T]) Get() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var zero T
	if !v.valid || v.ttl <= 0 {
		return zero, false
	}
	if v.clock.Now().Sub(v.storedAt) >= v.ttl {
		return zero, false
	}
	return v.value, true
}

// Set stores data stamped with the current clock time.
func (v *Value[T]) Set(data T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value = data
	v.storedAt = v.clock.Now()
	v.valid = true
}

// Invalidate drops the cached value.
func (v *Value[T]) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	var zero T
	v.value = zero
	v.valid = false
}
