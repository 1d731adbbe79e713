// Package cache provides the response cache shared by every tool that issues
// an expensive or rate-limited upstream call.
//
// A Store is a bounded, TTL-checked, LRU-ordered key/value map. Keys are built
// with CreateKey (or CreateHashedKey for large parameter records) and values
// are usually populated through Fetch, which turns an arbitrary producer into
// a cache-checked operation.
package cache

import (
	"errors"
	"time"
)

const (
	// DefaultTTL is the lifetime of an entry written without an explicit TTL.
	DefaultTTL = 30 * time.Minute
	// DefaultMaxSize is the maximum number of entries a Store holds.
	DefaultMaxSize = 100
)

// Sentinel errors for cache operations.
var (
	ErrInvalidPattern   = errors.New("invalid pattern")
	ErrUnserializable   = errors.New("unserializable parameter")
	ErrInvalidParamName = errors.New("invalid parameter name")
)

// Entry wraps a cached payload with its creation time and lifetime.
type Entry struct {
	Data      any
	Timestamp time.Time
	TTL       time.Duration
}

// Expired reports whether the entry is past its lifetime at now.
func (e Entry) Expired(now time.Time) bool {
	return now.After(e.Timestamp.Add(e.TTL))
}

// Stats is a point-in-time snapshot of a Store.
type Stats struct {
	Size    int      `json:"size"`
	MaxSize int      `json:"max_size"`
	Keys    []string `json:"keys"`
}
