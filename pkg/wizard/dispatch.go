// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package wizard

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// ErrBusy rejects user input while a request is in flight.
var ErrBusy = errors.New("another request is in progress")

// ValidationError is a guard rejection shown to the user in place of a request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// AllowedExtensions are the flat file types the backend accepts.
var AllowedExtensions = []string{"csv", "tsv", "txt"}

// Check returns the guard error for a, or nil when Dispatch would accept it.
// Backend outcomes are never rejected here; stale ones are dropped by Dispatch.
func Check(s State, a Action) error {
	if isOutcome(a) {
		return nil
	}
	if s.Busy() {
		return ErrBusy
	}

	switch a := a.(type) {
	case LoadTables:
		if !s.Connection.Complete() {
			return invalid("Host, port and database are required to load tables.")
		}
	case Upload:
		if s.Source != KindFlatFile {
			return invalid("Select Flat File as the source to upload a file.")
		}
		if strings.TrimSpace(a.Path) == "" {
			return invalid("Choose a file to upload.")
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(a.Path), "."))
		if !lo.Contains(AllowedExtensions, ext) {
			return invalid(fmt.Sprintf("File type not allowed. Allowed types: %s", strings.Join(AllowedExtensions, ", ")))
		}
	case LoadColumns:
		return checkSource(s, "Please select a ClickHouse table first.", "Please upload a Flat File first.")
	case LoadPreview:
		if len(s.SelectedColumns()) == 0 {
			return invalid("Please select columns to preview.")
		}
		return checkSource(s, "Please select a ClickHouse table first.", "Please upload a Flat File first.")
	case Ingest:
		if len(s.SelectedColumns()) == 0 {
			return invalid("Please select columns to ingest.")
		}
		if err := checkSource(s, "ClickHouse source table not selected.", "Source flat file not uploaded or selected."); err != nil {
			return err
		}
		if s.Target == KindDatabase {
			target := strings.TrimSpace(s.TargetTable)
			if target == "" {
				return invalid("Target ClickHouse table name is required.")
			}
			if s.Source == KindDatabase && target == s.Table {
				return invalid("Target table must differ from the source table.")
			}
		}
	}
	return nil
}

func checkSource(s State, noTable, noFile string) error {
	switch s.Source {
	case KindDatabase:
		if s.Table == "" {
			return invalid(noTable)
		}
	case KindFlatFile:
		if !s.Uploaded() {
			return invalid(noFile)
		}
	}
	return nil
}

func isOutcome(a Action) bool {
	switch a.(type) {
	case ConnectSucceeded, TablesLoaded, UploadSucceeded, ColumnsLoaded,
		PreviewLoaded, IngestSucceeded, RequestFailed:
		return true
	}
	return false
}

// Dispatch applies a to s and returns the next state. When a starts a remote
// operation the returned Request describes it; the caller executes it and
// dispatches the outcome. Guard failures come back as a state carrying the
// error message and a nil Request.
func Dispatch(s State, a Action) (State, *Request) {
	s = s.clone()

	if isOutcome(a) {
		return s.complete(a), nil
	}
	if err := Check(s, a); err != nil {
		if errors.Is(err, ErrBusy) {
			return s, nil
		}
		return s.reject(err.Error()), nil
	}

	switch a := a.(type) {
	case SetSource:
		if a.Kind != s.Source {
			s.Source = a.Kind
			s = s.resetArtifacts()
		}
	case SetTarget:
		if a.Kind != s.Target {
			s.Target = a.Kind
			s = s.resetArtifacts()
		}
	case SetField:
		s = s.setField(a.Field, a.Value)
	case SelectTable:
		if a.Name != s.Table && (a.Name == "" || lo.Contains(s.Tables, a.Name)) {
			s.Table = a.Name
			s.Columns = nil
			s.Preview = nil
		}
	case SetColumn:
		s.Columns = setIncluded(s.Columns, a.Name, func(bool) bool { return a.Included })
	case ToggleColumn:
		s.Columns = setIncluded(s.Columns, a.Name, func(v bool) bool { return !v })
	case SelectAll:
		for i := range s.Columns {
			s.Columns[i].Included = true
		}
	case DeselectAll:
		for i := range s.Columns {
			s.Columns[i].Included = false
		}

	case Connect:
		return s.start(OpConnect, "Connecting to ClickHouse..."), s.request(OpConnect, "")
	case LoadTables:
		return s.start(OpListTables, "Loading tables..."), s.request(OpListTables, "")
	case Upload:
		name := filepath.Base(a.Path)
		s = s.start(OpUpload, fmt.Sprintf("Uploading %s...", name))
		s.UploadStatus = fmt.Sprintf("Uploading %s...", name)
		return s, s.request(OpUpload, a.Path)
	case LoadColumns:
		s.Preview = nil
		return s.start(OpListColumns, "Loading columns..."), s.request(OpListColumns, "")
	case LoadPreview:
		s.Preview = nil
		return s.start(OpPreview, "Loading preview..."), s.request(OpPreview, "")
	case Ingest:
		s.Preview = nil
		return s.start(OpIngest, "Ingesting data... This may take a while for large datasets."), s.request(OpIngest, "")
	}

	if !s.Phase.InFlight() && s.Phase != PhaseCompleted && s.Phase != PhaseFailed {
		s.Phase = s.rest()
	}
	return s, nil
}

// resetArtifacts drops everything scoped to the previous source/target pair.
func (s State) resetArtifacts() State {
	s.Tables = nil
	s.Table = ""
	s.Columns = nil
	s.FlatFile.Filename = ""
	s.UploadedBytes = 0
	s.UploadStatus = ""
	s.Preview = nil
	s.Result = nil
	s.Err = ""
	s.Phase = s.rest()
	return s
}

func (s State) setField(f Field, v string) State {
	switch f {
	case FieldHost:
		s.Connection.Host = v
	case FieldPort:
		s.Connection.Port = v
	case FieldDatabase:
		s.Connection.Database = v
	case FieldUser:
		s.Connection.User = v
	case FieldToken:
		s.Connection.Token = v
	case FieldDelimiter:
		s.FlatFile.Delimiter = v
		return s
	case FieldOutputName:
		s.FlatFile.OutputName = v
		return s
	case FieldTargetTable:
		s.TargetTable = v
		return s
	}
	// Any connection edit invalidates the last successful connection test.
	s.Connected = false
	return s
}

func setIncluded(cols []Column, name string, f func(bool) bool) []Column {
	for i := range cols {
		if cols[i].Name == name {
			cols[i].Included = f(cols[i].Included)
		}
	}
	return cols
}

func (s State) reject(msg string) State {
	s.Err = msg
	s.Status = msg
	return s
}

func (s State) start(op Op, status string) State {
	s.Phase = op.InFlightPhase()
	s.Status = status
	s.Err = ""
	s.Result = nil
	return s
}

// request reads the configuration form into a Request for op.
func (s State) request(op Op, path string) *Request {
	req := &Request{
		Op:          op,
		Source:      s.Source,
		Target:      s.Target,
		Connection:  s.Connection,
		FlatFile:    s.FlatFile,
		Table:       s.Table,
		TargetTable: strings.TrimSpace(s.TargetTable),
		Path:        path,
	}
	if req.FlatFile.Delimiter == "" {
		req.FlatFile.Delimiter = "comma"
	}
	if op == OpPreview || op == OpIngest {
		req.Columns = s.SelectedColumns()
	}
	return req
}

// complete applies a backend outcome. Outcomes for an operation that is not
// in flight are stale and leave the state untouched.
func (s State) complete(a Action) State {
	var op Op
	switch a := a.(type) {
	case ConnectSucceeded:
		op = OpConnect
	case TablesLoaded:
		op = OpListTables
	case UploadSucceeded:
		op = OpUpload
	case ColumnsLoaded:
		op = OpListColumns
	case PreviewLoaded:
		op = OpPreview
	case IngestSucceeded:
		op = OpIngest
	case RequestFailed:
		op = a.Op
	}
	if s.Phase != op.InFlightPhase() {
		return s
	}

	switch a := a.(type) {
	case ConnectSucceeded:
		s.Connected = true
		s.Status = "Connection successful!"
	case TablesLoaded:
		s.Tables = lo.Uniq(a.Tables)
		if s.Table != "" {
			s.Table = ""
			if s.Source == KindDatabase {
				s.Columns = nil
				s.Preview = nil
			}
		}
		s.Status = "Tables loaded. Select a table."
	case UploadSucceeded:
		s.FlatFile.Filename = a.Filename
		s.UploadedBytes = a.Size
		s.UploadStatus = fmt.Sprintf("Uploaded: %s", a.Filename)
		s.Columns = nil
		s.Preview = nil
		s.Status = fmt.Sprintf("File '%s' uploaded successfully.", a.Filename)
	case ColumnsLoaded:
		names := lo.Uniq(a.Columns)
		s.Columns = make([]Column, 0, len(names))
		for _, n := range names {
			s.Columns = append(s.Columns, Column{Name: n, Included: true})
		}
		if len(s.Columns) == 0 {
			s.Columns = nil
			s.Phase = s.rest()
			return s.reject("No columns found in the source.")
		}
		s.Status = "Columns loaded. Select columns to ingest."
	case PreviewLoaded:
		rows := a.Rows
		if len(rows) > PreviewLimit {
			rows = rows[:PreviewLimit]
		}
		s.Preview = &Preview{
			Columns: append([]string(nil), a.Columns...),
			Rows:    append([][]string(nil), rows...),
		}
		if len(rows) == 0 {
			s.Status = "Preview loaded, but no data found."
		} else {
			s.Status = fmt.Sprintf("Preview loaded (first %d rows).", PreviewLimit)
		}
	case IngestSucceeded:
		s.Phase = PhaseCompleted
		s.Result = &Result{Message: a.Message, Filename: a.Filename, RecordCount: a.RecordCount}
		s.Status = "Completed"
		return s
	case RequestFailed:
		return s.fail(a)
	}

	s.Phase = s.rest()
	return s
}

func (s State) fail(a RequestFailed) State {
	msg := a.Message
	if msg == "" {
		msg = "Unknown error"
	}
	if a.Transport {
		s.Status = fmt.Sprintf(ops[a.Op].errored, msg)
	} else {
		s.Status = fmt.Sprintf(ops[a.Op].failed, msg)
	}
	s.Err = msg

	switch a.Op {
	case OpUpload:
		if a.Transport {
			s.UploadStatus = "Upload error."
		} else {
			s.UploadStatus = "Upload failed."
		}
	case OpIngest:
		s.Phase = PhaseFailed
		return s
	}
	s.Phase = s.rest()
	return s
}
