package cache

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/eugener/papertrail/internal/telemetry"
)

// Store is a bounded in-memory cache with per-entry TTL and LRU eviction.
// Expiry is checked lazily on Get; nothing runs in the background.
// It is safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	lru        *simplelru.LRU[string, Entry]
	maxSize    int
	defaultTTL time.Duration
	clock      clock.Clock
	metrics    *telemetry.Metrics // nil = no metrics
}

// Option configures a Store.
type Option func(*Store)

// WithMaxSize sets the maximum entry count. Non-positive values are ignored.
func WithMaxSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// WithDefaultTTL sets the TTL applied when Set is called with ttl <= 0.
func WithDefaultTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.defaultTTL = d
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithMetrics records hits, misses, evictions and size.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates an empty Store. Defaults are DefaultMaxSize and DefaultTTL.
func New(opts ...Option) *Store {
	s := &Store{
		maxSize:    DefaultMaxSize,
		defaultTTL: DefaultTTL,
		clock:      clock.New(),
	}
	for _, o := range opts {
		o(s)
	}
	// Size is always positive here, so NewLRU cannot fail. The capacity
	// check in Set runs before Add, so the library never evicts on its own.
	s.lru, _ = simplelru.NewLRU[string, Entry](s.maxSize, nil)
	return s
}

// Get returns the payload stored under key. Expired entries are removed and
// reported as absent. A hit marks key as most recently used.
func (s *Store) Get(key string) (any, bool) {
	return s.get(key, nil)
}

// get is Get with an optional accept check on the payload. A rejected
// payload counts as a miss and is not promoted.
func (s *Store) get(key string, accept func(any) bool) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lru.Peek(key)
	if !ok {
		s.recordMiss(key)
		return nil, false
	}
	if e.Expired(s.clock.Now()) {
		s.lru.Remove(key)
		s.recordSize()
		s.recordMiss(key)
		return nil, false
	}
	if accept != nil && !accept(e.Data) {
		s.recordMiss(key)
		return nil, false
	}
	s.lru.Get(key) // promote to MRU
	s.recordHit(key)
	return e.Data, true
}

// GetAs is a typed Get. A present value of another type is reported as
// absent. A stored nil is a hit when T is an interface type.
func GetAs[T any](s *Store, key string) (T, bool) {
	v, ok := s.get(key, func(v any) bool {
		_, ok := as[T](v)
		return ok
	})
	if !ok {
		var zero T
		return zero, false
	}
	t, _ := as[T](v)
	return t, true
}

// as converts v to T, accepting an untyped nil for interface types.
func as[T any](v any) (T, bool) {
	if t, ok := v.(T); ok {
		return t, true
	}
	var zero T
	return zero, v == nil && any(zero) == nil
}

// Set stores data under key with the given ttl (the store default when
// ttl <= 0). Inserting a new key into a full store first evicts the least
// recently used key; overwriting an existing key never evicts.
func (s *Store) Set(key string, data any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lru.Contains(key) && s.lru.Len() >= s.maxSize {
		s.evictOldest()
	}
	s.lru.Add(key, Entry{Data: data, Timestamp: s.clock.Now(), TTL: ttl})
	s.recordSize()
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.lru.Remove(key)
	if removed {
		s.recordSize()
	}
	return removed
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lru.Purge()
	s.recordSize()
}

// ClearPattern removes every key matching the regular expression pattern and
// returns the number removed. An invalid expression yields a *PatternError
// and leaves the store untouched.
func (s *Store) ClearPattern(pattern string) (int, error) {
	m, err := Regexp(pattern)
	if err != nil {
		return 0, err
	}
	return s.ClearMatching(m), nil
}

// ClearMatching removes every key m matches and returns the number removed.
func (s *Store) ClearMatching(m Matcher) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, k := range s.lru.Keys() {
		if m.Matches(k) && s.lru.Remove(k) {
			n++
		}
	}
	if n > 0 {
		s.recordSize()
	}
	return n
}

// PurgeExpired removes every logically expired entry and returns the count.
func (s *Store) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	n := 0
	for _, k := range s.lru.Keys() {
		if e, ok := s.lru.Peek(k); ok && e.Expired(now) {
			s.lru.Remove(k)
			n++
		}
	}
	if n > 0 {
		s.recordSize()
	}
	return n
}

// Len returns the current entry count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// MaxSize returns the configured entry bound.
func (s *Store) MaxSize() int { return s.maxSize }

// DefaultTTL returns the TTL applied when none is given.
func (s *Store) DefaultTTL() time.Duration { return s.defaultTTL }

// Stats returns the current size, bound and key set.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Size:    s.lru.Len(),
		MaxSize: s.maxSize,
		Keys:    s.lru.Keys(),
	}
}

// evictOldest drops the least recently used entry. Caller holds mu.
func (s *Store) evictOldest() {
	k, _, ok := s.lru.RemoveOldest()
	if !ok {
		return
	}
	slog.Debug("cache evicted", "key", k)
	if s.metrics != nil {
		s.metrics.CacheEvictions.Inc()
	}
}

func (s *Store) recordHit(key string) {
	if s.metrics != nil {
		s.metrics.CacheHits.WithLabelValues(KeyPrefix(key)).Inc()
	}
}

func (s *Store) recordMiss(key string) {
	if s.metrics != nil {
		s.metrics.CacheMisses.WithLabelValues(KeyPrefix(key)).Inc()
	}
}

func (s *Store) recordSize() {
	if s.metrics != nil {
		s.metrics.CacheEntries.Set(float64(s.lru.Len()))
	}
}

// KeyPrefix returns the segment of key before the first ':', or "" if none.
func KeyPrefix(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return ""
}

// Matcher selects keys for bulk invalidation.
type Matcher interface {
	Matches(key string) bool
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(key string) bool

// Matches calls f(key).
func (f MatcherFunc) Matches(key string) bool { return f(key) }

// Prefix matches keys under a logical prefix, i.e. keys starting with prefix+":".
func Prefix(prefix string) Matcher {
	p := prefix + ":"
	return MatcherFunc(func(key string) bool { return strings.HasPrefix(key, p) })
}

// PatternError reports a malformed invalidation pattern.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("cache: invalid pattern %q: %v", e.Pattern, e.Err)
}

// Unwrap exposes both ErrInvalidPattern and the underlying syntax error.
func (e *PatternError) Unwrap() []error { return []error{ErrInvalidPattern, e.Err} }

type regexpMatcher struct{ re *regexp.Regexp }

func (m regexpMatcher) Matches(key string) bool { return m.re.MatchString(key) }

// Regexp compiles pattern eagerly into a Matcher tested against raw keys.
func Regexp(pattern string) (Matcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	return regexpMatcher{re: re}, nil
}
