// Package ratelimit throttles outbound calls to the marketing service.
//
// A Scheduler lets at most limit calls depart inside any rolling window. Each
// caller books the next free departure slot under a lock, so callers leave in
// the order they asked and a burst is spread across windows instead of being
// rejected.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Clock is the time source of a Scheduler.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Scheduler is a rolling-window limiter shared by every call of one tenant.
type Scheduler struct {
	limit  int
	window time.Duration
	clock  Clock

	mu sync.Mutex
	// departures holds the last limit booked departure times in ascending order.
	departures []time.Time
}

// NewScheduler allows limit departures per window. A nil clock means the
// wall clock.
func NewScheduler(limit int, window time.Duration, clock Clock) *Scheduler {
	if limit <= 0 {
		limit = 1
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Scheduler{
		limit:      limit,
		window:     window,
		clock:      clock,
		departures: make([]time.Time, 0, limit),
	}
}

// Reserve books the next departure slot and returns its time. The slot stays
// booked even if the caller never uses it.
func (s *Scheduler) Reserve() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.clock.Now()
	if len(s.departures) == s.limit {
		if next := s.departures[0].Add(s.window); next.After(at) {
			at = next
		}
		copy(s.departures, s.departures[1:])
		s.departures = s.departures[:s.limit-1]
	}
	s.departures = append(s.departures, at)
	return at
}

// Wait blocks until the caller may send its request or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	at := s.Reserve()
	delay := at.Sub(s.clock.Now())
	if delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(delay):
		return nil
	}
}

// Registry hands out one Scheduler per tenant.
type Registry struct {
	limit  int
	window time.Duration
	clock  Clock

	mu      sync.Mutex
	buckets map[string]*Scheduler
}

func NewRegistry(limit int, window time.Duration, clock Clock) *Registry {
	return &Registry{
		limit:   limit,
		window:  window,
		clock:   clock,
		buckets: make(map[string]*Scheduler),
	}
}

// Bucket returns the scheduler of tenant, creating it on first use.
func (r *Registry) Bucket(tenant string) *Scheduler {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buckets[tenant]; ok {
		return b
	}
	b := NewScheduler(r.limit, r.window, r.clock)
	r.buckets[tenant] = b
	return b
}
