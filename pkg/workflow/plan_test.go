// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monadic/ingest-wizard/pkg/wizard"
)

func TestParsePlan(t *testing.T) {
	t.Setenv("TEST_CH_TOKEN", "tok-123")

	p, err := ParsePlan([]byte(`
source: clickhouse
target: flatfile
connection:
  host: localhost
  port: "8123"
  database: default
  user: default
  token: ${TEST_CH_TOKEN}
table: events
columns: [id, ts]
file:
  delimiter: pipe
  output: events.csv
preview: true
`))
	require.NoError(t, err)
	assert.Equal(t, "tok-123", p.Connection.Token)
	assert.Equal(t, []string{"id", "ts"}, p.Columns)
	assert.Equal(t, "events.csv", p.File.Output)
	assert.True(t, p.Preview)

	source, target := p.Kinds()
	assert.Equal(t, wizard.KindDatabase, source)
	assert.Equal(t, wizard.KindFlatFile, target)
}

func TestParsePlanKeepsLiteralDollarSigns(t *testing.T) {
	t.Setenv("w0rd", "expanded")
	t.Setenv("rowid", "expanded")

	p, err := ParsePlan([]byte(`
source: clickhouse
target: flatfile
connection:
  host: localhost
  port: "8123"
  database: default
  token: "pa$$w0rd$x"
table: events
columns: ["$rowid", name]
file:
  output: $rowid.csv
`))
	require.NoError(t, err)
	assert.Equal(t, "pa$$w0rd$x", p.Connection.Token)
	assert.Equal(t, []string{"$rowid", "name"}, p.Columns)
	assert.Equal(t, "$rowid.csv", p.File.Output)
}

func TestParsePlanRejectsUnknownFields(t *testing.T) {
	_, err := ParsePlan([]byte("source: clickhouse\ntarget: flatfile\ntabel: events\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tabel")
}

func TestPlanValidate(t *testing.T) {
	conn := PlanConnection{Host: "h", Port: "1", Database: "d"}
	tests := []struct {
		name    string
		plan    Plan
		wantErr string
	}{
		{
			name: "database to file",
			plan: Plan{Source: "clickhouse", Target: "flatfile", Connection: conn, Table: "events"},
		},
		{
			name: "file to database",
			plan: Plan{Source: "flatfile", Target: "clickhouse", Connection: conn, File: PlanFile{Path: "a.csv"}, TargetTable: "t"},
		},
		{
			name: "file to file needs no connection",
			plan: Plan{Source: "csv", Target: "file", File: PlanFile{Path: "a.csv"}},
		},
		{
			name:    "bad source",
			plan:    Plan{Source: "postgres", Target: "flatfile"},
			wantErr: "source",
		},
		{
			name:    "missing table and connection",
			plan:    Plan{Source: "clickhouse", Target: "flatfile"},
			wantErr: "plan is missing connection.host, connection.port, connection.database, table",
		},
		{
			name:    "missing file and target table",
			plan:    Plan{Source: "flatfile", Target: "clickhouse", Connection: conn},
			wantErr: "plan is missing file.path, targetTable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPlanDefaults(t *testing.T) {
	p := &Plan{Connection: PlanConnection{Host: "explicit"}}
	p.Defaults(wizard.ConnectionConfig{Host: "default-host", Port: "9000", Database: "db"}, "tab")
	assert.Equal(t, "explicit", p.Connection.Host)
	assert.Equal(t, "9000", p.Connection.Port)
	assert.Equal(t, "db", p.Connection.Database)
	assert.Equal(t, "tab", p.File.Delimiter)
}

func TestLoadPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source: flatfile\ntarget: flatfile\nfile:\n  path: in.csv\n"), 0o644))

	p, err := LoadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, "in.csv", p.File.Path)

	_, err = LoadPlan(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParsePlanLeavesMissingFieldsToDefaults(t *testing.T) {
	p, err := ParsePlan([]byte("source: clickhouse\ntarget: flatfile\ntable: events\n"))
	require.NoError(t, err)
	assert.ErrorContains(t, p.Validate(), "connection.host")

	p.Defaults(wizard.ConnectionConfig{Host: "localhost", Port: "8123", Database: "default"}, "comma")
	assert.NoError(t, p.Validate())

	_, err = ParsePlan([]byte("source: mysql\ntarget: flatfile\n"))
	assert.ErrorContains(t, err, "source")
}
