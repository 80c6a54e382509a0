// Package cli implements the umlstream command-line interface.
package cli

import (
	"context"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/umlstream/pkg/cache"
	"github.com/matzehuels/umlstream/pkg/config"
	"github.com/matzehuels/umlstream/pkg/pipeline"
	"github.com/matzehuels/umlstream/pkg/plantuml"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "umlstream"

	// defaultJobs bounds concurrent backends for multi-file generate.
	defaultJobs = 4
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath is the config file given with --config-file; empty
	// selects the default location.
	ConfigPath string

	// launcher overrides the configured backend.
	launcher plantuml.Launcher
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Factories
// =============================================================================

// loadConfig reads the configuration selected by --config-file.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded config", "path", c.ConfigPath, "engine", cfg.Backend.Engine, "cache", cfg.Cache.Backend)
	return cfg, nil
}

// newClient creates a pipeline client for cfg, installing the bundled
// style templates next to the cache.
func (c *CLI) newClient(cfg *config.Config) (*plantuml.Client, error) {
	dir := cfg.Backend.TemplateDir
	if dir == "" {
		base, err := cacheDir(cfg)
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "templates")
	}
	templates, err := plantuml.BuiltinTemplates(dir)
	if err != nil {
		return nil, err
	}

	launcher := c.launcher
	if launcher == nil {
		launcher = cfg.Launcher(c.Logger)
	}
	return plantuml.New(launcher,
		plantuml.WithTemplates(templates),
		plantuml.WithLogger(c.Logger),
	), nil
}

// newRunner creates a caching pipeline runner for cfg.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, noCache bool) (*pipeline.Runner, error) {
	client, err := c.newClient(cfg)
	if err != nil {
		return nil, err
	}

	opts := cfg.CacheOptions()
	if noCache {
		opts.Backend = cache.BackendNone
	}
	store, err := cache.Open(ctx, opts)
	if err != nil {
		return nil, err
	}

	r := pipeline.NewRunner(client, store, cfg.CacheKeyer(), c.Logger)
	r.Engine = cfg.Backend.Engine
	r.Timeout = cfg.Backend.Timeout
	r.TTL = cfg.Cache.TTL
	return r, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, defaulting to the
// per-user cache location (~/.cache/umlstream/).
func cacheDir(cfg *config.Config) (string, error) {
	if cfg != nil && cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	return cache.DefaultDir()
}
