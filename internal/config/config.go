// Package config loads host configuration from a YAML file and SCCHOST_
// environment overrides.
package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB
	envPrefix         = "SCCHOST_"
)

// Registry sources.
const (
	SourceConfig = "config"
	SourceSystem = "system"
)

type Config struct {
	// Provider is the selected provider name; "None" means none was chosen.
	Provider     string `koanf:"provider"`
	DebugLibrary string `koanf:"debug_library"`
	CallerName   string `koanf:"caller_name"`
	User         string `koanf:"user"`
	Confirm      string `koanf:"confirm"`

	Registry RegistryConfig `koanf:"registry"`
	Bindings BindingsConfig `koanf:"bindings"`
	Log      LogConfig      `koanf:"log"`
	Bridge   BridgeConfig   `koanf:"bridge"`
}

type RegistryConfig struct {
	Source      string          `koanf:"source"`
	Providers   []ProviderEntry `koanf:"providers"`
	AllowedDirs []string        `koanf:"allowed_dirs"`
}

// ProviderEntry is one installed provider: its name, the registration key
// it is filed under and the library that key points at.
type ProviderEntry struct {
	Name    string `koanf:"name"`
	Key     string `koanf:"key"`
	Library string `koanf:"library"`
}

type BindingsConfig struct {
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type BridgeConfig struct {
	Addr  string `koanf:"addr"`
	Token string `koanf:"token"`
}

// sections are the top-level keys that hold nested fields. An env var whose
// first word is a section maps to section.rest; anything else stays flat.
var sections = map[string]bool{
	"registry": true,
	"bindings": true,
	"log":      true,
	"bridge":   true,
}

// DefaultPath is the config file used when none is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "scchost", "config.yaml")
}

// Load reads path, then applies environment overrides and defaults. An empty
// path uses DefaultPath; a missing default file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		content, err := readConfigFile(path)
		switch {
		case err == nil:
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, errors.Wrapf(err, "parsing config file %s", path)
			}
		case os.IsNotExist(errors.Cause(err)) && !explicit:
		default:
			return nil, err
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "loading environment")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening config file")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat config file")
	}
	if info.Size() > maxConfigFileSize {
		return nil, errors.Errorf("config file %s is larger than %d bytes", path, maxConfigFileSize)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}
	return content, nil
}

// envKey maps SCCHOST_BINDINGS_PATH to bindings.path and SCCHOST_CALLER_NAME
// to caller_name. Allowed dirs are comma separated.
func envKey(key, value string) (string, interface{}) {
	lower := strings.ToLower(strings.TrimPrefix(key, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 2 && sections[parts[0]] {
		lower = parts[0] + "." + parts[1]
	}
	if lower == "registry.allowed_dirs" {
		return lower, splitAndTrim(value)
	}
	return lower, value
}

func (c *Config) applyDefaults() {
	if c.CallerName == "" {
		c.CallerName = "scchost"
	}
	if c.User == "" {
		c.User = os.Getenv("USER")
	}
	if c.Confirm == "" {
		c.Confirm = "always"
	}
	if c.Registry.Source == "" {
		c.Registry.Source = SourceConfig
	}
	if c.Bindings.Driver == "" {
		c.Bindings.Driver = "sqlite"
	}
	if c.Bindings.Path == "" && c.Bindings.Driver != "memory" {
		if dir, err := os.UserConfigDir(); err == nil {
			name := "bindings.db"
			if c.Bindings.Driver == "yaml" {
				name = "bindings.yaml"
			}
			c.Bindings.Path = filepath.Join(dir, "scchost", name)
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Bridge.Addr == "" {
		c.Bridge.Addr = "127.0.0.1:7455"
	}
}

// Validate checks enumerated values and provider entries.
func (c *Config) Validate() error {
	if err := oneOf("registry.source", c.Registry.Source, SourceConfig, SourceSystem); err != nil {
		return err
	}
	if err := oneOf("bindings.driver", c.Bindings.Driver, "sqlite", "yaml", "memory"); err != nil {
		return err
	}
	if c.Bindings.Driver != "memory" && c.Bindings.Path == "" {
		return errors.New("bindings.path required")
	}
	if err := oneOf("confirm", c.Confirm, "prompt", "always", "never"); err != nil {
		return err
	}
	if err := oneOf("log.level", strings.ToLower(c.Log.Level), "debug", "info", "warn", "error"); err != nil {
		return err
	}
	if err := oneOf("log.format", c.Log.Format, "text", "json"); err != nil {
		return err
	}

	seen := map[string]bool{}
	for i, p := range c.Registry.Providers {
		if p.Name == "" || p.Key == "" {
			return errors.Errorf("registry.providers[%d]: name and key required", i)
		}
		if seen[p.Name] {
			return errors.Errorf("registry.providers[%d]: duplicate provider %q", i, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return errors.Errorf("%s must be one of %s, got %q", field, strings.Join(allowed, ", "), value)
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
