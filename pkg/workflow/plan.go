// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package workflow

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/monadic/ingest-wizard/pkg/backend"
	"github.com/monadic/ingest-wizard/pkg/wizard"
)

// Plan is a complete ingestion described in YAML, run without the TUI.
//
//	source: clickhouse
//	target: flatfile
//	connection:
//	  host: localhost
//	  port: "8123"
//	  database: default
//	  token: ${CLICKHOUSE_TOKEN}
//	table: events
//	columns: [id, ts]
//	file:
//	  output: events.csv
type Plan struct {
	Source      string         `yaml:"source"`
	Target      string         `yaml:"target"`
	Connection  PlanConnection `yaml:"connection"`
	File        PlanFile       `yaml:"file"`
	Table       string         `yaml:"table"`
	TargetTable string         `yaml:"targetTable"`
	// Columns restricts the import. Empty means every column.
	Columns []string `yaml:"columns"`
	Preview bool     `yaml:"preview"`
}

// PlanConnection is the database section of a plan.
type PlanConnection struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Token    string `yaml:"token"`
}

// PlanFile is the flat file section of a plan.
type PlanFile struct {
	// Path is the local file to upload when the source is a flat file.
	Path      string `yaml:"path"`
	Delimiter string `yaml:"delimiter"`
	Output    string `yaml:"output"`
}

// LoadPlan reads a plan file. A connection token written as ${VAR} is read
// from the environment, so tokens need not be stored in the file; every other
// value is taken literally.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return ParsePlan(data)
}

// ParsePlan parses plan YAML and checks its source and target kinds. Missing
// fields are reported by Validate, after Defaults has had a chance to fill
// them from a connection profile.
func ParsePlan(data []byte) (*Plan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	p.Connection.Token = backend.ExpandToken(p.Connection.Token)
	if _, err := wizard.ParseKind(p.Source); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if _, err := wizard.ParseKind(p.Target); err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	return &p, nil
}

// Validate checks the fields each source/target combination needs.
func (p *Plan) Validate() error {
	source, err := wizard.ParseKind(p.Source)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	target, err := wizard.ParseKind(p.Target)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}

	var missing []string
	if source == wizard.KindDatabase || target == wizard.KindDatabase {
		if p.Connection.Host == "" {
			missing = append(missing, "connection.host")
		}
		if p.Connection.Port == "" {
			missing = append(missing, "connection.port")
		}
		if p.Connection.Database == "" {
			missing = append(missing, "connection.database")
		}
	}
	if source == wizard.KindDatabase && p.Table == "" {
		missing = append(missing, "table")
	}
	if source == wizard.KindFlatFile && p.File.Path == "" {
		missing = append(missing, "file.path")
	}
	if target == wizard.KindDatabase && p.TargetTable == "" {
		missing = append(missing, "targetTable")
	}
	if len(missing) > 0 {
		return fmt.Errorf("plan is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Defaults fills connection and delimiter fields the plan leaves empty.
func (p *Plan) Defaults(conn wizard.ConnectionConfig, delimiter string) {
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&p.Connection.Host, conn.Host)
	fill(&p.Connection.Port, conn.Port)
	fill(&p.Connection.Database, conn.Database)
	fill(&p.Connection.User, conn.User)
	fill(&p.Connection.Token, conn.Token)
	fill(&p.File.Delimiter, delimiter)
}

// Kinds returns the parsed source and target. Call Validate first.
func (p *Plan) Kinds() (source, target wizard.Kind) {
	source, _ = wizard.ParseKind(p.Source)
	target, _ = wizard.ParseKind(p.Target)
	return source, target
}

// setup returns the form actions that load the plan into a fresh wizard.
func (p *Plan) setup() []wizard.Action {
	source, target := p.Kinds()
	actions := []wizard.Action{
		wizard.SetSource{Kind: source},
		wizard.SetTarget{Kind: target},
		wizard.SetField{Field: wizard.FieldHost, Value: p.Connection.Host},
		wizard.SetField{Field: wizard.FieldPort, Value: p.Connection.Port},
		wizard.SetField{Field: wizard.FieldDatabase, Value: p.Connection.Database},
		wizard.SetField{Field: wizard.FieldUser, Value: p.Connection.User},
		wizard.SetField{Field: wizard.FieldToken, Value: p.Connection.Token},
		wizard.SetField{Field: wizard.FieldOutputName, Value: p.File.Output},
		wizard.SetField{Field: wizard.FieldTargetTable, Value: p.TargetTable},
	}
	if p.File.Delimiter != "" {
		actions = append(actions, wizard.SetField{Field: wizard.FieldDelimiter, Value: p.File.Delimiter})
	}
	return actions
}
