// Package cache implements the shared fetch-or-populate store used for contract
// metadata and ABIs.
//
// Entries carry a TTL after which they are stale and refetched on the next
// lookup, and a garbage-collection horizon after which they are dropped
// entirely. Concurrent lookups for the same missing key share a single loader
// invocation; loader failures reach every waiting caller and are never cached.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fxnlabs/marketplace-sdk/pkg/metrics"
	"github.com/fxnlabs/marketplace-sdk/pkg/sdkerr"
)

const (
	DefaultSize   = 1024
	DefaultGCTime = 30 * time.Minute
)

// Loader produces the value for a missing or stale key.
type Loader func(ctx context.Context) (any, error)

type entry struct {
	value     any
	fetchedAt time.Time
	ttl       time.Duration
}

// stale reports whether the entry should be refetched. A non-positive TTL never goes stale.
func (e *entry) stale(now time.Time) bool {
	return e.ttl > 0 && now.After(e.fetchedAt.Add(e.ttl))
}

// Store is a size-bounded key/value cache with TTL, GC horizon and request coalescing.
type Store struct {
	entries      *lru.Cache[string, *entry]
	group        singleflight.Group
	gcTime       time.Duration
	staleIfError bool
	now          func() time.Time
	log          *zap.Logger
	metrics      *metrics.Metrics
}

type Option func(*Store)

// WithSize bounds the number of entries; the least recently used entry is evicted first.
func WithSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.entries, _ = lru.New[string, *entry](size)
		}
	}
}

// WithGCTime sets how long past its fetch time an entry may be kept. Zero disables collection.
func WithGCTime(d time.Duration) Option {
	return func(s *Store) { s.gcTime = d }
}

// WithStaleIfError serves a stale entry when its refetch fails.
func WithStaleIfError(enabled bool) Option {
	return func(s *Store) { s.staleIfError = enabled }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log.Named("cache")
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	entries, _ := lru.New[string, *entry](DefaultSize)
	s := &Store{
		entries:      entries,
		gcTime:       DefaultGCTime,
		staleIfError: true,
		now:          time.Now,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key joins parts into a cache key. Keys sharing leading parts share a prefix.
func Key(parts ...string) string {
	return strings.Join(parts, "/")
}

// lookup returns the entry for key unless it is past the GC horizon, in which
// case it is dropped.
func (s *Store) lookup(key string, now time.Time) (*entry, bool) {
	e, ok := s.entries.Get(key)
	if !ok {
		return nil, false
	}
	if s.collected(e, now) {
		s.entries.Remove(key)
		s.metrics.CacheEvicted(1)
		return nil, false
	}
	return e, true
}

func (s *Store) collected(e *entry, now time.Time) bool {
	if s.gcTime <= 0 {
		return false
	}
	horizon := s.gcTime
	if e.ttl > horizon {
		horizon = e.ttl
	}
	return now.After(e.fetchedAt.Add(horizon))
}

// FetchOrPopulate returns the live value for key, invoking loader at most once
// across concurrent callers when the key is missing or stale.
//
// The loader runs detached from ctx cancellation so that one caller giving up
// does not fail the others; ctx only bounds how long this caller waits.
func (s *Store) FetchOrPopulate(ctx context.Context, key string, ttl time.Duration, loader Loader) (any, error) {
	if e, ok := s.lookup(key, s.now()); ok && !e.stale(s.now()) {
		s.metrics.CacheLookup("hit")
		s.log.Debug("Cache hit", zap.String("key", key))
		return e.value, nil
	}
	s.metrics.CacheLookup("miss")

	ch := s.group.DoChan(key, func() (any, error) {
		return s.populate(context.WithoutCancel(ctx), key, ttl, loader)
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.metrics.CacheLookup("coalesced")
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Store) populate(ctx context.Context, key string, ttl time.Duration, loader Loader) (value any, err error) {
	// A flight for this key may have completed between our lookup and joining the group.
	now := s.now()
	prev, havePrev := s.lookup(key, now)
	if havePrev && !prev.stale(now) {
		return prev.value, nil
	}

	s.log.Debug("Cache miss, loading", zap.String("key", key))
	value, err = safeLoad(ctx, loader)
	s.metrics.CacheLoad(err)
	if err != nil {
		if havePrev && s.staleIfError {
			s.metrics.CacheLookup("stale")
			s.log.Warn("Refetch failed, serving stale entry",
				zap.String("key", key),
				zap.Time("fetched_at", prev.fetchedAt),
				zap.Error(err))
			return prev.value, nil
		}
		return nil, err
	}

	s.entries.Add(key, &entry{value: value, fetchedAt: s.now(), ttl: ttl})
	return value, nil
}

func safeLoad(ctx context.Context, loader Loader) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache loader panicked: %v", r)
		}
	}()
	return loader(ctx)
}

// Has reports whether key holds an entry, stale or not. It never invokes a loader.
func (s *Store) Has(key string) bool {
	e, ok := s.entries.Peek(key)
	return ok && !s.collected(e, s.now())
}

// Invalidate removes every entry whose key starts with prefix and returns how many were removed.
func (s *Store) Invalidate(prefix string) int {
	removed := 0
	for _, key := range s.entries.Keys() {
		if strings.HasPrefix(key, prefix) && s.entries.Remove(key) {
			removed++
		}
	}
	s.metrics.CacheEvicted(removed)
	s.log.Debug("Cache invalidated", zap.String("prefix", prefix), zap.Int("removed", removed))
	return removed
}

// Sweep drops entries past the GC horizon and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.now()
	removed := 0
	for _, key := range s.entries.Keys() {
		e, ok := s.entries.Peek(key)
		if ok && s.collected(e, now) && s.entries.Remove(key) {
			removed++
		}
	}
	s.metrics.CacheEvicted(removed)
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.log.Info("Cache sweep interval is zero, entries are only collected on access")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug("Swept expired cache entries", zap.Int("removed", n))
			}
		}
	}
}

// Len returns the number of entries, including stale ones not yet collected.
func (s *Store) Len() int {
	return s.entries.Len()
}

// Fetch is the typed form of FetchOrPopulate.
func Fetch[T any](ctx context.Context, s *Store, key string, ttl time.Duration, loader func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := s.FetchOrPopulate(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return loader(ctx)
	})
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache key %q holds %T, want %T: %w", key, v, zero, sdkerr.ErrInvalidParameter)
	}
	return typed, nil
}
