// Package cache holds snapshots of backend resources keyed by resource
// identity. Concurrent reads of a missing key share one fetch, mutations
// invalidate the keys they affect, and a per-key sequence token keeps a slow
// superseded fetch from overwriting fresher data.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jw6ventures/fitverse/internal/metrics"
)

// Key addresses one cached resource, e.g. ("trainer", "42") or ("forums", "").
type Key struct {
	Resource string
	ID       string
}

// K builds a key from a resource name and optional identifying parts.
func K(resource string, parts ...string) Key {
	return Key{Resource: resource, ID: strings.Join(parts, "/")}
}

func (k Key) String() string {
	if k.ID == "" {
		return k.Resource
	}
	return k.Resource + ":" + k.ID
}

type Status int

const (
	StatusPending Status = iota
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "pending"
	}
}

// Fetcher loads the authoritative value for a key.
type Fetcher func(ctx context.Context) (any, error)

type entry struct {
	status    Status
	value     any
	err       error
	fetchedAt time.Time
	stale     bool
	fetch     Fetcher

	// seq is the token of the most recently started fetch. Only a result
	// carrying the current token may be applied.
	seq uint64

	overlay      any
	hasOverlay   bool
	overlayToken uint64

	subs map[int]chan struct{}
}

func (e *entry) current() any {
	if e.hasOverlay {
		return e.overlay
	}
	return e.value
}

type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	group   singleflight.Group
	nextSub int

	maxAge       time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxAge treats entries older than d as stale on read. Zero disables aging.
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) { c.maxAge = d }
}

// WithFetchTimeout bounds every fetch, independent of the callers waiting on it.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) { c.fetchTimeout = d }
}

func withClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries:      make(map[Key]*entry),
		fetchTimeout: 15 * time.Second,
		now:          time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cache) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{status: StatusPending, subs: make(map[int]chan struct{})}
		c.entries[key] = e
	}
	return e
}

func (c *Cache) expiredLocked(e *entry) bool {
	if e.stale {
		return true
	}
	return c.maxAge > 0 && !e.fetchedAt.IsZero() && c.now().Sub(e.fetchedAt) > c.maxAge
}

// Read returns the cached value for key, fetching it when missing or stale.
// Concurrent callers share a single in-flight fetch. A caller whose ctx ends
// stops waiting; the shared fetch still completes and populates the entry.
// A failed fetch is remembered and returned without refetching until the key
// is invalidated or ages out.
func (c *Cache) Read(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	c.mu.Lock()
	e := c.entryLocked(key)
	e.fetch = fetch
	expired := c.expiredLocked(e)
	switch {
	case e.status == StatusReady && !expired:
		v := e.current()
		c.mu.Unlock()
		metrics.CacheEvent(key.Resource, "hit")
		return v, nil
	case e.status == StatusError && !expired:
		err := e.err
		c.mu.Unlock()
		metrics.CacheEvent(key.Resource, "error_retained")
		return nil, err
	}
	c.mu.Unlock()

	ch := c.launch(ctx, key, fetch)
	select {
	case res := <-ch:
		if res.Shared {
			metrics.CacheEvent(key.Resource, "shared")
		} else {
			metrics.CacheEvent(key.Resource, "miss")
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// launch starts a fetch for key or joins the one already in flight.
func (c *Cache) launch(ctx context.Context, key Key, fetch Fetcher) <-chan singleflight.Result {
	// Keep request-scoped values (backend credentials) but not cancellation.
	base := context.WithoutCancel(ctx)
	return c.group.DoChan(key.String(), func() (any, error) {
		c.mu.Lock()
		e := c.entryLocked(key)
		e.seq++
		seq := e.seq
		if e.status != StatusReady {
			e.status = StatusPending
		}
		c.mu.Unlock()

		fetchCtx, cancel := context.WithTimeout(base, c.fetchTimeout)
		defer cancel()

		v, err := fetch(fetchCtx)
		c.apply(key, seq, v, err)
		return v, err
	})
}

func (c *Cache) apply(key Key, seq uint64, v any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entries[key]
	if e == nil || seq != e.seq {
		metrics.CacheEvent(key.Resource, "stale_discarded")
		slog.Debug("cache_event", "event", "stale_discarded", "key", key.String(), "seq", seq)
		return
	}

	if err != nil {
		e.status = StatusError
		e.err = err
		metrics.CacheEvent(key.Resource, "error")
		slog.Warn("cache_event", "event", "fetch_failed", "key", key.String(), "error", err)
	} else {
		e.status = StatusReady
		e.value = v
		e.err = nil
	}
	e.fetchedAt = c.now()
	e.stale = false
	e.hasOverlay = false
	e.overlay = nil
	c.notifyLocked(e)
}

// Invalidate marks key stale, supersedes any fetch in flight, and starts a
// background refetch when the key has been read before. Readers that arrive
// before the refetch lands wait for it.
func (c *Cache) Invalidate(ctx context.Context, key Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	e.stale = true
	e.seq++
	fetch := e.fetch
	c.mu.Unlock()

	metrics.CacheEvent(key.Resource, "invalidated")
	c.group.Forget(key.String())
	if fetch != nil {
		c.launch(ctx, key, fetch)
	}
}

// Expire drops the entry's state without refetching. The next Read fetches
// again, which is how a user-initiated retry of a failed lookup happens.
func (c *Cache) Expire(key Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		e.status = StatusPending
		e.stale = true
		e.err = nil
		e.seq++
	}
	c.mu.Unlock()
	if ok {
		c.group.Forget(key.String())
	}
}

// Write runs a mutation and, only when it succeeds, invalidates every
// affected key. A failed mutation leaves the cache untouched.
func (c *Cache) Write(ctx context.Context, mutate func(ctx context.Context) error, affected ...Key) error {
	if err := mutate(ctx); err != nil {
		return err
	}
	for _, k := range affected {
		c.Invalidate(ctx, k)
	}
	return nil
}

// WriteOptimistic shows overlay(current value) to readers of key while the
// mutation runs. The overlay is dropped if the mutation fails, and replaced
// by the authoritative value once the post-mutation refetch lands. key is
// always invalidated on success in addition to affected.
func (c *Cache) WriteOptimistic(ctx context.Context, key Key, overlay func(current any) any, mutate func(ctx context.Context) error, affected ...Key) error {
	c.mu.Lock()
	var token uint64
	e, ok := c.entries[key]
	if ok && e.status == StatusReady {
		e.overlay = overlay(e.value)
		e.hasOverlay = true
		e.overlayToken++
		token = e.overlayToken
		c.notifyLocked(e)
	}
	c.mu.Unlock()

	if err := mutate(ctx); err != nil {
		if token != 0 {
			c.mu.Lock()
			if e.hasOverlay && e.overlayToken == token {
				e.hasOverlay = false
				e.overlay = nil
				c.notifyLocked(e)
			}
			c.mu.Unlock()
		}
		return err
	}

	c.Invalidate(ctx, key)
	for _, k := range affected {
		if k != key {
			c.Invalidate(ctx, k)
		}
	}
	return nil
}

// Subscribe returns a channel that receives a signal whenever the entry for
// key changes, and a func that ends the subscription.
func (c *Cache) Subscribe(key Key) (<-chan struct{}, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(key)
	id := c.nextSub
	c.nextSub++
	ch := make(chan struct{}, 1)
	e.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(e.subs, id)
			c.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscriptions on key.
func (c *Cache) Subscribers(key Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return len(e.subs)
	}
	return 0
}

// Status reports the state of key and whether an entry exists.
func (c *Cache) Status(key Key) (Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.status, true
	}
	return StatusPending, false
}

func (c *Cache) notifyLocked(e *entry) {
	for _, ch := range e.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Read is the typed form of Cache.Read.
func Read[T any](ctx context.Context, c *Cache, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Read(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: %s holds %T, want %T", key, v, zero)
	}
	return t, nil
}

// Overlay adapts a typed transform for WriteOptimistic. Values of another
// type pass through unchanged.
func Overlay[T any](fn func(T) T) func(any) any {
	return func(current any) any {
		if t, ok := current.(T); ok {
			return fn(t)
		}
		return current
	}
}
