// Package cache stores rendered diagrams.
//
// A [Cache] is a byte store with per-entry TTLs. Keys come from a [Keyer],
// which derives them from a diagram token plus the render options so the same
// diagram rendered twice with the same options hits the same entry.
//
// Implementations:
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for the HTTP server
//   - [MongoCache]: shared cache with a TTL index
//   - [Disabled]: caching turned off
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// TTLArtifact is how long rendered output is kept.
const TTLArtifact = 7 * 24 * time.Hour

// Cache is a key/value store for cached bytes.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the cache's resources.
	Close() error
}

// ArtifactKeyOpts are the render options that change an artifact.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	Config string `json:"config,omitempty"`
	Engine string `json:"engine,omitempty"`
}

// Keyer generates cache keys.
type Keyer interface {
	// ArtifactKey returns the key for a diagram rendered with opts.
	ArtifactKey(token string, opts ArtifactKeyOpts) string
}

// DefaultKeyer generates unscoped keys of the form "artifact:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default Keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ArtifactKey hashes the token together with opts.
func (DefaultKeyer) ArtifactKey(token string, opts ArtifactKeyOpts) string {
	data, _ := json.Marshal([]any{token, opts})
	return "artifact:" + Hash(data)
}

// NamespacedKeyer prefixes every key of an inner Keyer, so servers sharing
// one Redis or Mongo store keep their entries apart.
type NamespacedKeyer struct {
	Inner     Keyer
	Namespace string
}

// NewNamespacedKeyer scopes inner (DefaultKeyer when nil) to namespace.
// An empty namespace returns inner unchanged.
func NewNamespacedKeyer(inner Keyer, namespace string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	if namespace == "" {
		return inner
	}
	return NamespacedKeyer{Inner: inner, Namespace: namespace}
}

// ArtifactKey returns "<namespace>:<inner key>".
func (k NamespacedKeyer) ArtifactKey(token string, opts ArtifactKeyOpts) string {
	return k.Namespace + ":" + k.Inner.ArtifactKey(token, opts)
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Disabled is a Cache that stores nothing. It backs `backend = "none"`
// and the --no-cache flag.
type Disabled struct{}

// Get always misses.
func (Disabled) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set discards data.
func (Disabled) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Disabled) Delete(context.Context, string) error { return nil }
func (Disabled) Close() error                         { return nil }

var _ Cache = Disabled{}
