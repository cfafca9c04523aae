// Package config holds the settings of the Wayland platform. They come from
// an optional YAML file and the environment, and are read once when the
// platform starts.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables. Boolean ones are enabled by the value "1".
const (
	EnvPrimeRenderOffload  = "__NV_PRIME_RENDER_OFFLOAD"
	EnvDisableExplicitSync = "__NV_DISABLE_EXPLICIT_SYNC"
	EnvPlatform            = "EGL_PLATFORM"
)

type Config struct {
	// PrimeRenderOffload allows rendering on a device other than the
	// compositor's, and skips the vendor check.
	PrimeRenderOffload bool `yaml:"prime_render_offload"`
	// DisableExplicitSync skips the explicit sync probe.
	DisableExplicitSync bool `yaml:"disable_explicit_sync"`
	// Platform is the platform the application asked for, if any.
	Platform string `yaml:"platform"`
}

// WaylandPlatform reports whether Wayland was asked for explicitly.
func (c Config) WaylandPlatform() bool {
	return strings.EqualFold(c.Platform, "wayland")
}

// FromEnv reads the configuration from the process environment.
func FromEnv() Config {
	return FromLookup(os.LookupEnv)
}

// FromLookup reads the configuration through lookup, which has the
// signature of os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) Config {
	var c Config
	c.Overlay(lookup)
	return c
}

// Overlay replaces the settings whose variables are set.
func (c *Config) Overlay(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPrimeRenderOffload); ok {
		c.PrimeRenderOffload = v == "1"
	}
	if v, ok := lookup(EnvDisableExplicitSync); ok {
		c.DisableExplicitSync = v == "1"
	}
	if v, ok := lookup(EnvPlatform); ok {
		c.Platform = v
	}
}

// Parse decodes a YAML configuration. Unknown keys are errors.
func Parse(data []byte) (Config, error) {
	var c Config
	if len(strings.TrimSpace(string(data))) == 0 {
		return c, nil
	}

	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	return c, nil
}

// Load reads the YAML file at path and overlays the environment. A missing
// file yields the environment alone.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "read config")
	}

	c, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "%s", path)
	}
	c.Overlay(os.LookupEnv)
	return c, nil
}
