// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given .env files (".env" when
// none are named) into the process environment. Files that do not
// exist are skipped; variables already set are not replaced.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", file, err)
		}
	}
	return nil
}

// remoteURLVariable matches GLYPH_<COMPANION>_URL.
var remoteURLVariable = regexp.MustCompile(`^GLYPH_([A-Z0-9]+)_URL$`)

// ApplyEnvironment applies GLYPH_* overrides from environ, a list of
// KEY=value entries as returned by os.Environ.
func (c *Config) ApplyEnvironment(environ []string) error {
	variables := make(map[string]string)
	for _, entry := range environ {
		name, value, ok := strings.Cut(entry, "=")
		if ok && strings.HasPrefix(name, "GLYPH_") {
			variables[name] = value
		}
	}

	var errs []error
	set := func(name string, apply func(string) error) {
		value, ok := variables[name]
		if !ok || value == "" {
			return
		}
		if err := apply(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	set("GLYPH_LISTEN", func(value string) error {
		c.Listen = value
		return nil
	})
	set("GLYPH_SAFE_MODE", func(value string) error {
		return c.SafeMode.UnmarshalText([]byte(value))
	})
	set("GLYPH_BODY_LIMIT", func(value string) error {
		return parseInt(value, &c.BodyLimit)
	})
	set("GLYPH_WORKERS", func(value string) error {
		workers, err := strconv.Atoi(value)
		c.Conversion.Workers = workers
		return err
	})
	set("GLYPH_MAX_QUEUED", func(value string) error {
		queued, err := strconv.Atoi(value)
		c.Conversion.MaxQueued = queued
		return err
	})
	set("GLYPH_CONVERT_TIMEOUT", func(value string) error {
		return parseDuration(value, &c.Commander.Timeout)
	})
	set("GLYPH_TEMP_DIR", func(value string) error {
		c.Commander.TempDir = value
		return nil
	})
	set("GLYPH_INCLUDE_ROOT", func(value string) error {
		c.Includes.Root = value
		return nil
	})
	set("GLYPH_CACHE_ENABLED", func(value string) error {
		enabled, err := strconv.ParseBool(value)
		c.Cache.Enabled = enabled
		return err
	})
	set("GLYPH_CACHE_BACKEND", func(value string) error {
		c.Cache.Backend = value
		return nil
	})
	set("GLYPH_REDIS_ADDR", func(value string) error {
		c.Cache.Redis.Addr = value
		return nil
	})
	set("GLYPH_REDIS_PASSWORD", func(value string) error {
		c.Cache.Redis.Password = value
		return nil
	})

	for name, value := range variables {
		match := remoteURLVariable.FindStringSubmatch(name)
		if match == nil || value == "" {
			continue
		}
		key := strings.ToLower(match[1])
		if c.Remote == nil {
			c.Remote = make(map[string]RemoteConfig)
		}
		remote := c.Remote[key]
		remote.URL = value
		c.Remote[key] = remote
	}

	return errors.Join(errs...)
}

func parseInt(value string, target *int64) error {
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return err
	}
	*target = parsed
	return nil
}

func parseDuration(value string, target *time.Duration) error {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*target = parsed
	return nil
}

