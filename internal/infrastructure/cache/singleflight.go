package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrCache is returned for internal coordination failures of SingleFlight,
// never for errors produced by the producer itself.
var ErrCache = errors.New("cache coordination failure")

// Source tells how a GetOrCompute result was obtained.
type Source int

const (
	// SourceHit means a fresh cached value was returned.
	SourceHit Source = iota
	// SourceInitiated means the producer ran for this caller alone.
	SourceInitiated
	// SourceShared means one producer run served this caller and others.
	SourceShared
)

func (s Source) String() string {
	switch s {
	case SourceHit:
		return "hit"
	case SourceInitiated:
		return "initiated"
	case SourceShared:
		return "shared"
	default:
		return "unknown"
	}
}

// Producer computes the value for a key.
type Producer[V any] func(ctx context.Context) (V, error)

// SingleFlightOptions configures a SingleFlight cache.
type SingleFlightOptions[V any] struct {
	// TTL is how long a computed value is served. Zero means forever.
	TTL time.Duration
	// Copy, when set, is applied to every value handed to a caller.
	Copy func(V) V
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// SingleFlight is a keyed TTL cache that runs at most one producer per key at
// a time. Concurrent callers for the same key share the in-flight result.
// Failures are never cached.
type SingleFlight[K ~string, V any] struct {
	ttl    time.Duration
	copyFn func(V) V
	now    func() time.Time

	sf singleflight.Group

	mu      sync.RWMutex
	entries map[K]cachedValue[V]
}

type cachedValue[V any] struct {
	value    V
	storedAt time.Time
}

// NewSingleFlight creates an empty cache.
func NewSingleFlight[K ~string, V any](opts SingleFlightOptions[V]) *SingleFlight[K, V] {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SingleFlight[K, V]{
		ttl:     opts.TTL,
		copyFn:  opts.Copy,
		now:     now,
		entries: make(map[K]cachedValue[V]),
	}
}

// GetOrCompute returns the cached value for key if it is still fresh.
// Otherwise it joins the producer already running for key, or starts one.
//
// The producer runs detached from ctx cancellation: a caller that gives up
// waiting gets ctx.Err(), while the producer runs to completion and its value
// is cached for later callers. Producer errors are returned unchanged to
// every caller waiting on that run.
func (c *SingleFlight[K, V]) GetOrCompute(ctx context.Context, key K, producer Producer[V]) (V, Source, error) {
	var zero V

	if v, ok := c.lookup(key); ok {
		return c.copy(v), SourceHit, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(string(key), func() (any, error) {
		// A run that finished between lookup and DoChan already stored a value.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		v, err := c.run(detached, producer)
		if err != nil {
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		src := SourceInitiated
		if res.Shared {
			src = SourceShared
		}
		if res.Err != nil {
			return zero, src, res.Err
		}
		v, ok := res.Val.(V)
		if !ok {
			return zero, src, fmt.Errorf("%w: unexpected value type %T", ErrCache, res.Val)
		}
		return c.copy(v), src, nil
	case <-ctx.Done():
		return zero, SourceInitiated, ctx.Err()
	}
}

func (c *SingleFlight[K, V]) run(ctx context.Context, producer Producer[V]) (val V, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero V
			val, err = zero, fmt.Errorf("%w: producer panicked: %v", ErrCache, r)
		}
	}()
	return producer(ctx)
}

func (c *SingleFlight[K, V]) lookup(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.fresh(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *SingleFlight[K, V]) store(key K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedValue[V]{value: v, storedAt: c.now()}
}

func (c *SingleFlight[K, V]) fresh(e cachedValue[V]) bool {
	return c.ttl <= 0 || c.now().Sub(e.storedAt) < c.ttl
}

func (c *SingleFlight[K, V]) copy(v V) V {
	if c.copyFn == nil {
		return v
	}
	return c.copyFn(v)
}

// Sweep drops expired values and returns the number removed. Producers in
// flight are unaffected; they store their value when they finish.
func (c *SingleFlight[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if c.fresh(e) {
			continue
		}
		delete(c.entries, key)
		removed++
	}
	return removed
}

// Len returns the number of stored values, fresh or expired.
func (c *SingleFlight[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
