// Package config loads the docker-graph configuration file.
//
// The file is TOML, read from $XDG_CONFIG_HOME/docker-graph/config.toml
// unless another path is given. Every setting has a default, so the file
// is optional; command-line flags override what it sets.
//
//	[watch]
//	url = "http://docker-host:8080/api/events"
//	output = "graph"
//	formats = ["json", "svg"]
//
//	[render]
//	hide = ["port", "host-ip"]
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Adirelle/docker-graph/pkg/cache"
	"github.com/Adirelle/docker-graph/pkg/errors"
	"github.com/Adirelle/docker-graph/pkg/pipeline"
	"github.com/Adirelle/docker-graph/pkg/source/docker"
	"github.com/Adirelle/docker-graph/pkg/stream"
	"github.com/Adirelle/docker-graph/pkg/topology"
)

const appName = "docker-graph"

// Config is the whole configuration file.
type Config struct {
	Watch  WatchConfig  `toml:"watch"`
	Serve  ServeConfig  `toml:"serve"`
	Render RenderConfig `toml:"render"`
	Cache  CacheConfig  `toml:"cache"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	URL       string        `toml:"url"`
	Debounce  time.Duration `toml:"debounce"`
	Reconnect time.Duration `toml:"reconnect"`
	Output    string        `toml:"output"`
	Formats   []string      `toml:"formats"`
}

// ServeConfig configures the serve command.
type ServeConfig struct {
	Listen       string        `toml:"listen"`
	Debounce     time.Duration `toml:"debounce"`
	DockerHost   string        `toml:"docker_host"`
	InspectDelay time.Duration `toml:"inspect_delay"`
}

// RenderConfig configures graph rendering for every command.
type RenderConfig struct {
	Hide     []string `toml:"hide"`
	Detailed bool     `toml:"detailed"`
	Icons    bool     `toml:"icons"`
	RankDir  string   `toml:"rank_dir"`
}

// CacheConfig selects the render cache backend.
type CacheConfig struct {
	Backend       string        `toml:"backend"`
	TTL           time.Duration `toml:"ttl"`
	Dir           string        `toml:"dir"`
	Prefix        string        `toml:"prefix"`
	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Watch: WatchConfig{
			Debounce:  pipeline.DefaultDebounce,
			Reconnect: stream.DefaultMinInterval,
			Output:    ".",
			Formats:   append([]string(nil), pipeline.DefaultFormats...),
		},
		Serve: ServeConfig{
			Listen:       ":8080",
			Debounce:     pipeline.DefaultDebounce,
			InspectDelay: docker.DefaultInspectDelay,
		},
		Render: RenderConfig{
			RankDir: "LR",
		},
		Cache: CacheConfig{
			Backend:   cache.BackendFile,
			TTL:       cache.TTLArtifact,
			RedisAddr: "localhost:6379",
		},
	}
}

// DefaultPath returns the per-user configuration file path.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

// Load reads the file at path on top of the defaults. With an empty path
// the default location is used and a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && stderrors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config")
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML data into cfg and validates the result. Keys the
// configuration does not know are rejected.
func Parse(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
	}
	return cfg.Validate()
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Watch.URL != "" {
		if err := errors.ValidateStreamURL(c.Watch.URL); err != nil {
			return err
		}
	}
	if err := pipeline.ValidateFormats(c.Watch.Formats); err != nil {
		return err
	}
	if c.Watch.Debounce < 0 || c.Serve.Debounce < 0 || c.Watch.Reconnect < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "durations cannot be negative")
	}
	if err := errors.ValidateListenAddr(c.Serve.Listen); err != nil {
		return err
	}
	if _, err := c.Render.HiddenKinds(); err != nil {
		return err
	}
	switch c.Render.RankDir {
	case "", "LR", "RL", "TB", "BT":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "invalid rank_dir %q (must be one of: LR, RL, TB, BT)", c.Render.RankDir)
	}
	switch c.Cache.Backend {
	case cache.BackendNone, cache.BackendFile, cache.BackendRedis:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "invalid cache backend %q (must be one of: none, file, redis)", c.Cache.Backend)
	}
	return nil
}

// HiddenKinds parses the hide list.
func (r RenderConfig) HiddenKinds() ([]topology.Kind, error) {
	return topology.ParseKinds(r.Hide)
}

// CacheOptions converts the cache section for cache.Open.
func (c CacheConfig) CacheOptions() cache.Options {
	return cache.Options{
		Backend:       c.Backend,
		Dir:           c.Dir,
		Prefix:        c.Prefix,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
	}
}
