// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package config loads ingest-wizard settings.
//
// Settings are resolved in order, later sources winning:
// - built-in defaults
// - the YAML file (~/.ingest-wizard/config.yaml or --config)
// - INGEST_WIZARD_* environment variables
// - command-line flags (applied by the caller)
//
// The file can also hold named connection profiles so the wizard starts with
// a filled-in connection form.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/monadic/ingest-wizard/pkg/backend"
	"github.com/monadic/ingest-wizard/pkg/wizard"
)

// Environment variables read by ApplyEnv.
const (
	EnvBackend = "INGEST_WIZARD_BACKEND"
	EnvLogDir  = "INGEST_WIZARD_LOG_DIR"
	EnvTimeout = "INGEST_WIZARD_TIMEOUT"
)

// Config is the resolved configuration.
type Config struct {
	Backend string `yaml:"backend,omitempty"`
	// Timeout bounds each backend request. Zero means wait indefinitely.
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	LogDir    string        `yaml:"logDir,omitempty"`
	Delimiter string        `yaml:"delimiter,omitempty"`
	Source    string        `yaml:"source,omitempty"`
	Target    string        `yaml:"target,omitempty"`

	// DefaultProfile names the profile used when none is requested.
	DefaultProfile string    `yaml:"defaultProfile,omitempty"`
	Profiles       []Profile `yaml:"profiles,omitempty"`
}

// Profile is a saved database connection.
type Profile struct {
	Name     string `yaml:"name"`
	Host     string `yaml:"host,omitempty"`
	Port     string `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	User     string `yaml:"user,omitempty"`
	// Token may name an environment variable as ${CLICKHOUSE_TOKEN}; any
	// other value is used literally.
	Token string `yaml:"token,omitempty"`
}

// Dir returns the per-user settings directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ingest-wizard"
	}
	return filepath.Join(home, ".ingest-wizard")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Backend:   backend.DefaultBaseURL,
		LogDir:    filepath.Join(Dir(), "logs"),
		Delimiter: "comma",
		Source:    wizard.KindDatabase.String(),
		Target:    wizard.KindFlatFile.String(),
	}
}

// Load reads the file at path over the defaults and applies the environment.
// An empty path means DefaultPath; a missing file is not an error. The result
// is not validated: callers apply their flags first and then call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.merge(path); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) merge(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from INGEST_WIZARD_* variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvLogDir); v != "" {
		c.LogDir = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate rejects malformed URLs, unknown kinds and broken profiles.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Backend)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("backend: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("backend: %q must be an http or https URL", c.Backend))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("backend: %q has no host", c.Backend))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout: must not be negative"))
	}
	if _, err := wizard.ParseKind(c.Source); err != nil {
		errs = append(errs, fmt.Errorf("source: %w", err))
	}
	if _, err := wizard.ParseKind(c.Target); err != nil {
		errs = append(errs, fmt.Errorf("target: %w", err))
	}

	seen := map[string]bool{}
	for _, p := range c.Profiles {
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, errors.New("profiles: every profile needs a name"))
			continue
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("profiles: duplicate name %q", p.Name))
		}
		seen[p.Name] = true
	}
	if c.DefaultProfile != "" && !seen[c.DefaultProfile] {
		errs = append(errs, fmt.Errorf("defaultProfile: no profile named %q", c.DefaultProfile))
	}
	return errors.Join(errs...)
}

// Kinds returns the default source and target. Call Validate first.
func (c *Config) Kinds() (source, target wizard.Kind) {
	source, _ = wizard.ParseKind(c.Source)
	target, _ = wizard.ParseKind(c.Target)
	return source, target
}

// Profile returns the named profile, or the default profile when name is
// empty. With neither, it returns an empty profile.
func (c *Config) Profile(name string) (Profile, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	if name == "" {
		return Profile{}, nil
	}
	for _, p := range c.Profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("profile %q not found", name)
}

// Connection converts the profile into the wizard's connection form,
// resolving a ${VAR} token from the environment.
func (p Profile) Connection() wizard.ConnectionConfig {
	return wizard.ConnectionConfig{
		Host:     p.Host,
		Port:     p.Port,
		Database: p.Database,
		User:     p.User,
		Token:    backend.ExpandToken(p.Token),
	}
}

// fileConfig reads only what is on disk, without defaults or environment,
// so saving never persists values that came from elsewhere.
func fileConfig(path string) (*Config, error) {
	c := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return c, nil
}

func writeFile(path string, c *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	// The file may hold tokens.
	return os.WriteFile(path, data, 0o600)
}

// SaveProfile adds or replaces a profile in the file at path.
func SaveProfile(path string, p Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("profile name is required")
	}
	if path == "" {
		path = DefaultPath()
	}
	c, err := fileConfig(path)
	if err != nil {
		return err
	}

	found := false
	for i := range c.Profiles {
		if c.Profiles[i].Name == p.Name {
			c.Profiles[i] = p
			found = true
			break
		}
	}
	if !found {
		c.Profiles = append(c.Profiles, p)
	}
	return writeFile(path, c)
}

// DeleteProfile removes a profile from the file at path.
func DeleteProfile(path, name string) error {
	if path == "" {
		path = DefaultPath()
	}
	c, err := fileConfig(path)
	if err != nil {
		return err
	}

	filtered := make([]Profile, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		if p.Name != name {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == len(c.Profiles) {
		return fmt.Errorf("profile %q not found", name)
	}
	c.Profiles = filtered
	if c.DefaultProfile == name {
		c.DefaultProfile = ""
	}
	return writeFile(path, c)
}
