// Package config loads umlstream's configuration file.
//
// The file is TOML by default ($XDG_CONFIG_HOME/umlstream/config.toml);
// files ending in .yaml or .yml are read as YAML. Every field has a
// default, so a missing default file is not an error. Environment
// references ($VAR) in YAML files are expanded before decoding.
//
//	[backend]
//	engine = "plantuml"
//	jar = "/opt/plantuml/plantuml.jar"
//	jvm_args = ["-Xmx512m"]
//	# engine = "remote" renders through server_url instead
//
//	[render]
//	format = "svg"
//	config = "classic"
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//	ttl = "168h"
//
//	[server]
//	addr = ":8080"
//	rate = 10
//	burst = 20
//	cors_origins = ["*"]
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/umlstream/pkg/backend/graphviz"
	"github.com/matzehuels/umlstream/pkg/backend/remote"
	"github.com/matzehuels/umlstream/pkg/cache"
	umlerrors "github.com/matzehuels/umlstream/pkg/errors"
	"github.com/matzehuels/umlstream/pkg/httputil"
	"github.com/matzehuels/umlstream/pkg/plantuml"
)

// Backend engines.
const (
	EnginePlantUML = "plantuml"
	EngineGraphviz = "graphviz"
	EngineRemote   = "remote"
)

// Environment overrides, applied after the file is read.
const (
	EnvJar    = "UMLSTREAM_JAR"
	EnvJava   = "UMLSTREAM_JAVA"
	EnvCache  = "UMLSTREAM_CACHE"
	EnvServer = "UMLSTREAM_SERVER"
)

// Config is the complete configuration.
type Config struct {
	Backend BackendConfig `toml:"backend" yaml:"backend"`
	Render  RenderConfig  `toml:"render" yaml:"render"`
	Cache   CacheConfig   `toml:"cache" yaml:"cache"`
	Server  ServerConfig  `toml:"server" yaml:"server"`
}

// BackendConfig selects and configures the rendering backend.
type BackendConfig struct {
	Engine      string        `toml:"engine" yaml:"engine"`
	Java        string        `toml:"java" yaml:"java"`
	Jar         string        `toml:"jar" yaml:"jar"`
	Binary      string        `toml:"binary" yaml:"binary"`
	JVMArgs     []string      `toml:"jvm_args" yaml:"jvm_args"`
	WaitDelay   time.Duration `toml:"wait_delay" yaml:"wait_delay"`
	Timeout     time.Duration `toml:"timeout" yaml:"timeout"`
	TemplateDir string        `toml:"template_dir" yaml:"template_dir"`
	ServerURL   string        `toml:"server_url" yaml:"server_url"` // remote engine
}

// RenderConfig holds render defaults for the CLI.
type RenderConfig struct {
	Format string `toml:"format" yaml:"format"`
	Config string `toml:"config" yaml:"config"`
}

// CacheConfig selects the artifact cache.
type CacheConfig struct {
	Backend       string        `toml:"backend" yaml:"backend"`
	Dir           string        `toml:"dir" yaml:"dir"`
	RedisURL      string        `toml:"redis_url" yaml:"redis_url"`
	MongoURI      string        `toml:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase string        `toml:"mongo_database" yaml:"mongo_database"`
	TTL           time.Duration `toml:"ttl" yaml:"ttl"`

	// Namespace prefixes artifact keys, for deployments sharing one store.
	Namespace string `toml:"namespace" yaml:"namespace"`
}

// ServerConfig configures `umlstream serve`.
type ServerConfig struct {
	Addr        string   `toml:"addr" yaml:"addr"`
	Rate        float64  `toml:"rate" yaml:"rate"` // renders per second; 0 disables limiting
	Burst       int      `toml:"burst" yaml:"burst"`
	CORSOrigins []string `toml:"cors_origins" yaml:"cors_origins"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Engine:    EnginePlantUML,
			Java:      plantuml.DefaultJava,
			Binary:    plantuml.DefaultBinary,
			WaitDelay: plantuml.DefaultWaitDelay,
			Timeout:   30 * time.Second,
		},
		Render: RenderConfig{
			Format: string(plantuml.DefaultFormat),
		},
		Cache: CacheConfig{
			Backend:       cache.BackendFile,
			MongoDatabase: cache.DefaultMongoDatabase,
			TTL:           cache.TTLArtifact,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			Rate:        10,
			Burst:       20,
			CORSOrigins: []string{"*"},
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/umlstream/config.toml or the
// platform equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "umlstream", "config.toml"), nil
}

// Load reads the file at path over the defaults, applies environment
// overrides and validates the result. An empty path loads the default
// file if it exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := cfg.decode(path, data); err != nil {
				return nil, umlerrors.Wrap(umlerrors.ErrCodeInvalidConfig, err, "parse %s", path)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		case errors.Is(err, os.ErrNotExist):
			return nil, umlerrors.Wrap(umlerrors.ErrCodeFileNotFound, err, "config file")
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data = []byte(os.ExpandEnv(string(data)))
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		md, err := toml.Decode(string(data), c)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown key %q", undecoded[0].String())
		}
		return nil
	}
}

// ApplyEnv applies the UMLSTREAM_* overrides using getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvJar); v != "" {
		c.Backend.Jar = v
	}
	if v := getenv(EnvJava); v != "" {
		c.Backend.Java = v
	}
	if v := getenv(EnvCache); v != "" {
		c.Cache.Backend = v
	}
	if v := getenv(EnvServer); v != "" {
		c.Backend.ServerURL = v
	}
}

// Validate checks the configuration for values no component accepts.
func (c *Config) Validate() error {
	switch c.Backend.Engine {
	case EnginePlantUML, EngineGraphviz:
	case EngineRemote:
		if u, err := url.Parse(c.Backend.ServerURL); c.Backend.ServerURL != "" && (err != nil || u.Scheme == "" || u.Host == "") {
			return umlerrors.New(umlerrors.ErrCodeInvalidConfig, "backend.server_url: %q is not an absolute URL", c.Backend.ServerURL)
		}
	default:
		return umlerrors.New(umlerrors.ErrCodeInvalidConfig, "backend.engine: %q (must be one of: plantuml, graphviz, remote)", c.Backend.Engine)
	}
	if c.Backend.Timeout < 0 || c.Backend.WaitDelay < 0 {
		return umlerrors.New(umlerrors.ErrCodeInvalidConfig, "backend durations cannot be negative")
	}

	if f := strings.ToLower(strings.TrimSpace(c.Render.Format)); f != "" && f != "png" && plantuml.ParseFormat(f) == plantuml.FormatPNG {
		return umlerrors.New(umlerrors.ErrCodeInvalidConfig, "render.format: %q (must be one of: png, svg, ascii, unicode)", c.Render.Format)
	}

	switch c.Cache.Backend {
	case cache.BackendFile, cache.BackendNone:
	case cache.BackendRedis:
		if c.Cache.RedisURL == "" {
			return umlerrors.New(umlerrors.ErrCodeInvalidConfig, "cache.redis_url is required for the redis backend")
		}
	case cache.BackendMongo:
		if c.Cache.MongoURI == "" {
			return umlerrors.New(umlerrors.ErrCodeInvalidConfig, "cache.mongo_uri is required for the mongo backend")
		}
	default:
		return umlerrors.New(umlerrors.ErrCodeInvalidConfig, "cache.backend: %q (must be one of: file, redis, mongo, none)", c.Cache.Backend)
	}

	if c.Server.Rate < 0 || c.Server.Burst < 0 {
		return umlerrors.New(umlerrors.ErrCodeInvalidConfig, "server.rate and server.burst cannot be negative")
	}
	if c.Server.Rate > 0 && c.Server.Burst == 0 {
		return umlerrors.New(umlerrors.ErrCodeInvalidConfig, "server.burst must be positive when server.rate is set")
	}
	return nil
}

// CacheOptions returns the options for cache.Open.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:       c.Cache.Backend,
		Dir:           c.Cache.Dir,
		RedisURL:      c.Cache.RedisURL,
		MongoURI:      c.Cache.MongoURI,
		MongoDatabase: c.Cache.MongoDatabase,
	}
}

// CacheKeyer returns the artifact Keyer scoped to Cache.Namespace.
func (c *Config) CacheKeyer() cache.Keyer {
	return cache.NewNamespacedKeyer(nil, c.Cache.Namespace)
}

// RenderOptions returns the configured render defaults.
func (c *Config) RenderOptions() plantuml.Options {
	return plantuml.Options{
		Format: plantuml.ParseFormat(c.Render.Format),
		Config: c.Render.Config,
	}
}

// Launcher returns the backend selected by the configuration.
func (c *Config) Launcher(logger *log.Logger) plantuml.Launcher {
	switch c.Backend.Engine {
	case EngineGraphviz:
		return graphviz.New(logger)
	case EngineRemote:
		l := remote.New(c.Backend.ServerURL, logger)
		l.HTTP = httputil.NewClient(c.Backend.Timeout)
		return l
	}
	return &plantuml.ExecLauncher{
		Java:      c.Backend.Java,
		Jar:       c.Backend.Jar,
		Binary:    c.Backend.Binary,
		JVMArgs:   c.Backend.JVMArgs,
		WaitDelay: c.Backend.WaitDelay,
		Logger:    logger,
	}
}
