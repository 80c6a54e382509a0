package cache

import (
	"errors"

	"github.com/matzehuels/umlstream/pkg/httputil"
)

var (
	// ErrUnavailable is returned when a remote cache cannot be reached.
	ErrUnavailable = errors.New("cache unavailable")

	// ErrUnknownBackend is returned by Open for an unrecognized backend name.
	ErrUnknownBackend = errors.New("unknown cache backend")
)

// connectBackoff governs the initial ping of Redis and Mongo.
var connectBackoff = httputil.DefaultBackoff
