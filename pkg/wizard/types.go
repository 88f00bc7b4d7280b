// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package wizard is the ingestion wizard's state machine.
// It holds no I/O: every user input and every backend response is an Action,
// and Dispatch folds actions into an immutable State snapshot. Remote work is
// described as a Request for the caller to execute.
package wizard

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/samber/lo"
)

// Kind is the kind of a source or target endpoint.
type Kind int

const (
	// KindDatabase is a ClickHouse table.
	KindDatabase Kind = iota
	// KindFlatFile is a delimited flat file.
	KindFlatFile
)

// String returns the wire name sent as sourceType/targetType.
func (k Kind) String() string {
	switch k {
	case KindDatabase:
		return "clickhouse"
	case KindFlatFile:
		return "flatfile"
	default:
		return "unknown"
	}
}

// Label returns the display name of the kind.
func (k Kind) Label() string {
	switch k {
	case KindDatabase:
		return "ClickHouse"
	case KindFlatFile:
		return "Flat File"
	default:
		return "Unknown"
	}
}

// ParseKind parses a wire or display name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clickhouse", "database", "db":
		return KindDatabase, nil
	case "flatfile", "flat_file", "file", "csv":
		return KindFlatFile, nil
	default:
		return 0, fmt.Errorf("unknown kind %q (expected clickhouse or flatfile)", s)
	}
}

// ConnectionConfig is the database connection form. It is forwarded verbatim.
type ConnectionConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Token    string // JWT or password
}

// Complete reports whether host, port and database are all filled in.
func (c ConnectionConfig) Complete() bool {
	return c.Host != "" && c.Port != "" && c.Database != ""
}

// FlatFileConfig is the flat file form.
type FlatFileConfig struct {
	Filename   string // server-assigned name, set only after a successful upload
	Delimiter  string
	OutputName string
}

// Column is one entry in the column checklist.
type Column struct {
	Name     string
	Included bool
}

// PreviewLimit caps the number of preview rows kept in state.
const PreviewLimit = 100

// Preview is a bounded sample of source rows.
type Preview struct {
	Columns []string
	Rows    [][]string
}

// Result is the outcome of a completed ingestion.
type Result struct {
	Message     string
	Filename    string
	RecordCount int64
}

// DownloadPath returns the backend path of the generated file, or "" when the
// ingestion produced no file.
func (r Result) DownloadPath() string {
	if r.Filename == "" {
		return ""
	}
	return "/download/" + url.PathEscape(r.Filename)
}

// Field names a text field of the configuration form.
type Field int

const (
	FieldHost Field = iota
	FieldPort
	FieldDatabase
	FieldUser
	FieldToken
	FieldDelimiter
	FieldOutputName
	FieldTargetTable
)

// State is a snapshot of the wizard. Treat it as a value: Dispatch never
// mutates the slices of the State it is given.
type State struct {
	Phase Phase

	Source Kind
	Target Kind

	Connection  ConnectionConfig
	FlatFile    FlatFileConfig
	TargetTable string

	Connected bool
	Tables    []string
	Table     string

	UploadedBytes int64
	UploadStatus  string

	Columns []Column
	Preview *Preview
	Result  *Result

	Status string
	Err    string
}

// New returns the initial state: database source, flat file target.
func New() State {
	s := State{
		Source:   KindDatabase,
		Target:   KindFlatFile,
		FlatFile: FlatFileConfig{Delimiter: "comma"},
		Status:   "Ready",
	}
	s.Phase = s.rest()
	return s
}

// Busy reports whether a request is in flight.
func (s State) Busy() bool {
	return s.Phase.InFlight()
}

// SelectedColumns returns the names of included columns in display order.
func (s State) SelectedColumns() []string {
	return lo.FilterMap(s.Columns, func(c Column, _ int) (string, bool) {
		return c.Name, c.Included
	})
}

// Uploaded reports whether a flat file has been uploaded.
func (s State) Uploaded() bool {
	return s.FlatFile.Filename != ""
}

// rest returns the phase the state settles in when nothing is in flight.
func (s State) rest() Phase {
	switch {
	case s.Preview != nil:
		return PhasePreviewShown
	case len(s.Columns) > 0:
		return PhaseColumnsLoaded
	case s.Source == KindFlatFile && s.Uploaded():
		return PhaseUploaded
	case len(s.Tables) > 0:
		return PhaseTablesLoaded
	case s.Connected:
		return PhaseConnected
	default:
		return PhaseIdle
	}
}

// clone copies the slices so the returned state shares nothing mutable.
func (s State) clone() State {
	if s.Tables != nil {
		s.Tables = append([]string(nil), s.Tables...)
	}
	if s.Columns != nil {
		s.Columns = append([]Column(nil), s.Columns...)
	}
	return s
}
