package pipeline

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/umlstream/pkg/cache"
	"github.com/matzehuels/umlstream/pkg/codec"
	umlerrors "github.com/matzehuels/umlstream/pkg/errors"
	"github.com/matzehuels/umlstream/pkg/observability"
	"github.com/matzehuels/umlstream/pkg/plantuml"
)

// Runner encapsulates rendering with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger; multiple
// goroutines can safely use the same Runner.
type Runner struct {
	Client  *plantuml.Client
	Cache   cache.Cache
	Keyer   cache.Keyer
	Logger  *log.Logger
	Engine  string        // recorded in cache keys; artifacts differ per backend
	Timeout time.Duration // per render; DefaultTimeout when zero
	TTL     time.Duration // artifact lifetime; cache.TTLArtifact when zero
}

// NewRunner creates a runner with the given client, cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, caching is disabled.
func NewRunner(client *plantuml.Client, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.Disabled{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Client: client,
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Render renders req, serving it from the cache when possible.
func (r *Runner) Render(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	token, source, err := r.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	res := &Result{Token: token, ContentType: req.Format.ContentType()}
	key := r.Keyer.ArtifactKey(token, cache.ArtifactKeyOpts{
		Format: string(req.Format),
		Config: req.Config,
		Engine: r.Engine,
	})

	if !req.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, key)
			res.Data, res.CacheHit = data, true
			res.Duration = time.Since(start)
			return res, nil
		} else if err != nil {
			r.Logger.Warn("cache lookup failed", "error", err)
		}
		observability.Cache().OnCacheMiss(ctx, key)
	}

	data, err := r.generate(ctx, source, plantuml.Options{Format: req.Format, Config: req.Config})
	if err != nil {
		return nil, err
	}
	res.Data = data
	res.Duration = time.Since(start)

	ttl := r.TTL
	if ttl <= 0 {
		ttl = cache.TTLArtifact
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache store failed", "error", err)
	} else {
		observability.Cache().OnCacheSet(ctx, key, len(data))
	}

	r.Logger.Debug("rendered diagram",
		"format", req.Format,
		"bytes", len(data),
		"duration", res.Duration)
	return res, nil
}

// Encode returns the token of source.
func (r *Runner) Encode(ctx context.Context, source string) (string, error) {
	if err := umlerrors.ValidateSource(source); err != nil {
		return "", err
	}
	// Streamed rather than passed as input, so a source that happens to
	// name a file is never read from disk.
	s := r.Client.Encode(ctx)
	io.WriteString(s.In, source)
	s.In.Close()

	out, err := s.Collect()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Decode returns the source of token.
func (r *Runner) Decode(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if err := umlerrors.ValidateToken(token); err != nil {
		return "", err
	}
	src, err := codec.Decode(strings.TrimPrefix(token, "~1"))
	if err != nil {
		return "", umlerrors.Wrap(umlerrors.ErrCodeInvalidToken, err, "decode token")
	}
	return src, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// resolve returns the token and the renderable source of req.
func (r *Runner) resolve(ctx context.Context, req Request) (token, source string, err error) {
	if req.Token != "" {
		src, err := r.Decode(ctx, req.Token)
		if err != nil {
			return "", "", err
		}
		return strings.TrimPrefix(req.Token, "~1"), ensureEnvelope(src), nil
	}
	token, err = r.Encode(ctx, req.Source)
	if err != nil {
		return "", "", err
	}
	return token, ensureEnvelope(req.Source), nil
}

// generate runs one backend render, streaming source through stdin.
func (r *Runner) generate(ctx context.Context, source string, opts plantuml.Options) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s, err := r.Client.Generate(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	go func() {
		io.WriteString(s.In, source)
		s.In.Close()
	}()

	return s.Collect()
}
