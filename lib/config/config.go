// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/glyph/lib/safemode"
)

// Config is the glyph server configuration.
type Config struct {
	// Listen is the TCP address of the HTTP server.
	Listen string `yaml:"listen"`

	// SafeMode is the server policy. Requests may tighten it.
	SafeMode safemode.SafeMode `yaml:"safe_mode"`

	// BodyLimit bounds a diagram source in bytes.
	BodyLimit int64 `yaml:"body_limit"`

	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	Conversion ConversionConfig `yaml:"conversion"`
	Commander  CommanderConfig  `yaml:"commander"`

	// Tools maps a tool key (dot, erd, vega, ...) to the executable
	// name or absolute path to run for it.
	Tools map[string]string `yaml:"tools"`

	// Remote maps a companion key (mermaid, plantuml, ...) to its
	// endpoint. Companions without a URL are not registered.
	Remote map[string]RemoteConfig `yaml:"remote"`

	Includes IncludesConfig `yaml:"includes"`
	Cache    CacheConfig    `yaml:"cache"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ConversionConfig sizes the worker pool.
type ConversionConfig struct {
	// Workers is the number of concurrent conversions. 0 means the
	// number of CPUs.
	Workers int `yaml:"workers"`

	// MaxQueued is how many requests may wait for a worker. 0
	// disables queuing.
	MaxQueued int `yaml:"max_queued"`

	QueueTimeout time.Duration `yaml:"queue_timeout"`
}

// CommanderConfig configures external tool execution.
type CommanderConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	MaxOutput int64         `yaml:"max_output"`

	// TempDir is where per-call working directories are created.
	// Empty means the system temporary directory.
	TempDir string `yaml:"temp_dir"`
}

// RemoteConfig locates a companion rendering service.
type RemoteConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`

	// RateLimit caps conversions per second sent to the companion.
	// 0 means unlimited.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// IncludesConfig configures textart !include resolution.
type IncludesConfig struct {
	// Root is the directory relative includes resolve against.
	Root string `yaml:"root"`
}

// CacheConfig configures the render cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`

	// Backend is "memory" or "redis".
	Backend string `yaml:"backend"`

	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`

	// Compression is "none", "lz4", or "zstd".
	Compression string `yaml:"compression"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig locates the Redis server for the redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// CORSConfig configures cross-origin access.
type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Listen:       ":8000",
		SafeMode:     safemode.Secure,
		BodyLimit:    1 << 20,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		Conversion: ConversionConfig{
			Workers:      0,
			MaxQueued:    64,
			QueueTimeout: 30 * time.Second,
		},
		Commander: CommanderConfig{
			Timeout:   5 * time.Second,
			MaxOutput: 16 << 20,
		},
		Tools: map[string]string{
			"dot":       "dot",
			"erd":       "erd",
			"svgbob":    "svgbob",
			"nomnoml":   "nomnoml",
			"vega":      "vg2svg",
			"vegalite":  "vl2svg",
			"wavedrom":  "wavedrom-cli",
			"bytefield": "bytefield-svg",
		},
		Remote: map[string]RemoteConfig{},
		Cache: CacheConfig{
			Enabled:     false,
			Backend:     "memory",
			TTL:         time.Hour,
			MaxEntries:  1024,
			Compression: "lz4",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "glyph:render:",
			},
		},
		CORS: CORSConfig{AllowOrigins: []string{"*"}},
	}
}

// Load returns the validated configuration from path (or GLYPH_CONFIG
// when path is empty), dotenv files, and the environment. With neither
// a path nor GLYPH_CONFIG, the file step is skipped.
func Load(path string, dotenvFiles ...string) (*Config, error) {
	if err := LoadDotEnv(dotenvFiles...); err != nil {
		return nil, err
	}
	if path == "" {
		path = os.Getenv("GLYPH_CONFIG")
	}

	config := Default()
	if path != "" {
		if err := config.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnvironment(os.Environ()); err != nil {
		return nil, err
	}
	config.expandVariables()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// loadFile merges a YAML file into c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := c.parse(data); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// parse merges YAML data into c. Unknown keys are rejected.
func (c *Config) parse(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Listen == "" {
		errs = append(errs, errors.New("listen is required"))
	}
	if !c.SafeMode.Valid() {
		errs = append(errs, fmt.Errorf("safe_mode %v is not valid", c.SafeMode))
	}
	if c.BodyLimit <= 0 {
		errs = append(errs, errors.New("body_limit must be > 0"))
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		errs = append(errs, errors.New("read_timeout and write_timeout must be >= 0"))
	}

	if c.Conversion.Workers < 0 {
		errs = append(errs, errors.New("conversion.workers must be >= 0"))
	}
	if c.Conversion.MaxQueued < 0 {
		errs = append(errs, errors.New("conversion.max_queued must be >= 0"))
	}
	if c.Conversion.QueueTimeout <= 0 {
		errs = append(errs, errors.New("conversion.queue_timeout must be > 0"))
	}

	if c.Commander.Timeout <= 0 {
		errs = append(errs, errors.New("commander.timeout must be > 0"))
	}
	if c.Commander.MaxOutput <= 0 {
		errs = append(errs, errors.New("commander.max_output must be > 0"))
	}

	for key, binary := range c.Tools {
		if binary == "" {
			errs = append(errs, fmt.Errorf("tools.%s: executable is required", key))
		}
	}

	for key, remote := range c.Remote {
		if remote.URL != "" {
			if err := checkURL(remote.URL); err != nil {
				errs = append(errs, fmt.Errorf("remote.%s.url: %v", key, err))
			}
		}
		if remote.Timeout < 0 {
			errs = append(errs, fmt.Errorf("remote.%s.timeout must be >= 0", key))
		}
		if remote.RateLimit < 0 || remote.Burst < 0 {
			errs = append(errs, fmt.Errorf("remote.%s: rate_limit and burst must be >= 0", key))
		}
	}

	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case "memory":
		case "redis":
			if c.Cache.Redis.Addr == "" {
				errs = append(errs, errors.New("cache.redis.addr is required for the redis backend"))
			}
		default:
			errs = append(errs, fmt.Errorf("cache.backend %q: must be memory or redis", c.Cache.Backend))
		}
		switch c.Cache.Compression {
		case "none", "lz4", "zstd":
		default:
			errs = append(errs, fmt.Errorf("cache.compression %q: must be none, lz4, or zstd", c.Cache.Compression))
		}
		if c.Cache.TTL <= 0 {
			errs = append(errs, errors.New("cache.ttl must be > 0"))
		}
		if c.Cache.MaxEntries <= 0 {
			errs = append(errs, errors.New("cache.max_entries must be > 0"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func checkURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme %q is not http or https", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	c.Commander.TempDir = expandVars(c.Commander.TempDir)
	c.Includes.Root = expandVars(c.Includes.Root)
	for key, binary := range c.Tools {
		c.Tools[key] = expandVars(binary)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}
