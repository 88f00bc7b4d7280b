// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monadic/ingest-wizard/pkg/backend"
	"github.com/monadic/ingest-wizard/pkg/wizard"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvBackend, "")
	t.Setenv(EnvLogDir, "")
	t.Setenv(EnvTimeout, "")
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, backend.DefaultBaseURL, cfg.Backend)
	assert.Zero(t, cfg.Timeout)
	assert.Equal(t, "comma", cfg.Delimiter)

	source, target := cfg.Kinds()
	assert.Equal(t, wizard.KindDatabase, source)
	assert.Equal(t, wizard.KindFlatFile, target)
}

func TestLoadFileAndEnv(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
backend: http://ingest.internal:8000
timeout: 2m
delimiter: tab
source: flatfile
target: clickhouse
defaultProfile: local
profiles:
  - name: local
    host: localhost
    port: "8123"
    database: default
    token: ${TEST_INGEST_TOKEN}
`)
	t.Setenv(EnvLogDir, "/tmp/ingest-logs")
	t.Setenv("TEST_INGEST_TOKEN", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://ingest.internal:8000", cfg.Backend)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, "tab", cfg.Delimiter)
	assert.Equal(t, "/tmp/ingest-logs", cfg.LogDir)

	p, err := cfg.Profile("")
	require.NoError(t, err)
	assert.Equal(t, wizard.ConnectionConfig{Host: "localhost", Port: "8123", Database: "default", Token: "s3cret"}, p.Connection())

	t.Setenv(EnvBackend, "https://override:9443")
	t.Setenv(EnvTimeout, "45s")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://override:9443", cfg.Backend)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
}

func TestLoadErrors(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")

	_, err = Load(writeConfig(t, "backend: [not, a, string]\n"))
	assert.Error(t, err)

	t.Setenv(EnvTimeout, "soon")
	_, err = Load("")
	assert.ErrorContains(t, err, EnvTimeout)
}

func TestLoadLeavesValidationToCaller(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBackend, "localhost:8000")

	cfg, err := Load("")
	require.NoError(t, err, "flags may still correct the backend")
	assert.Equal(t, "localhost:8000", cfg.Backend)
	assert.ErrorContains(t, cfg.Validate(), "http or https")

	cfg.Backend = "http://localhost:8000"
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "no scheme", mutate: func(c *Config) { c.Backend = "localhost:8000" }, wantErr: "http or https"},
		{name: "ftp", mutate: func(c *Config) { c.Backend = "ftp://host" }, wantErr: "http or https"},
		{name: "no host", mutate: func(c *Config) { c.Backend = "http://" }, wantErr: "no host"},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeout = -time.Second }, wantErr: "timeout"},
		{name: "bad source", mutate: func(c *Config) { c.Source = "postgres" }, wantErr: "source"},
		{name: "bad target", mutate: func(c *Config) { c.Target = "s3" }, wantErr: "target"},
		{
			name:    "duplicate profile",
			mutate:  func(c *Config) { c.Profiles = []Profile{{Name: "a"}, {Name: "a"}} },
			wantErr: "duplicate",
		},
		{
			name:    "unnamed profile",
			mutate:  func(c *Config) { c.Profiles = []Profile{{Host: "h"}} },
			wantErr: "needs a name",
		},
		{
			name:    "unknown default profile",
			mutate:  func(c *Config) { c.DefaultProfile = "prod" },
			wantErr: "defaultProfile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestProfileLookup(t *testing.T) {
	c := Default()
	c.Profiles = []Profile{{Name: "local", Host: "localhost"}, {Name: "prod", Host: "ch.prod"}}

	p, err := c.Profile("")
	require.NoError(t, err)
	assert.Equal(t, Profile{}, p)

	p, err = c.Profile("prod")
	require.NoError(t, err)
	assert.Equal(t, "ch.prod", p.Host)

	_, err = c.Profile("staging")
	assert.ErrorContains(t, err, `profile "staging" not found`)
}

func TestProfileConnectionToken(t *testing.T) {
	t.Setenv("word", "expanded")
	t.Setenv("TEST_PROFILE_TOKEN", "from-env")

	p := Profile{Name: "local", Host: "localhost", Token: "pa$$word"}
	assert.Equal(t, "pa$$word", p.Connection().Token)

	p.Token = "${TEST_PROFILE_TOKEN}"
	assert.Equal(t, "from-env", p.Connection().Token)
}

func TestSaveAndDeleteProfile(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBackend, "http://from-env:1")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, SaveProfile(path, Profile{Name: "local", Host: "localhost", Port: "8123", Database: "default"}))
	require.NoError(t, SaveProfile(path, Profile{Name: "prod", Host: "ch.prod", Port: "8443", Database: "analytics"}))
	require.NoError(t, SaveProfile(path, Profile{Name: "local", Host: "127.0.0.1", Port: "8123", Database: "default"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "from-env", "environment values are never persisted")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Profiles, 2)
	assert.Equal(t, "127.0.0.1", cfg.Profiles[0].Host)

	require.NoError(t, DeleteProfile(path, "local"))
	assert.ErrorContains(t, DeleteProfile(path, "local"), "not found")

	cfg, err = Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Profiles, 1)
	assert.Equal(t, "prod", cfg.Profiles[0].Name)

	assert.Error(t, SaveProfile(path, Profile{}))
}
