// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package wizard

// Action is an input to Dispatch: a user interaction or a backend outcome.
type Action interface {
	isAction()
}

// User input.

// SetSource selects the source kind.
type SetSource struct{ Kind Kind }

// SetTarget selects the target kind.
type SetTarget struct{ Kind Kind }

// SetField changes a text field of the configuration form.
type SetField struct {
	Field Field
	Value string
}

// SelectTable picks a source table. An empty name selects the placeholder.
type SelectTable struct{ Name string }

// SetColumn includes or excludes a column.
type SetColumn struct {
	Name     string
	Included bool
}

// ToggleColumn flips a column's included flag.
type ToggleColumn struct{ Name string }

// SelectAll includes every loaded column.
type SelectAll struct{}

// DeselectAll excludes every loaded column.
type DeselectAll struct{}

// Requests. Each one starts a remote operation when its guard passes.

// Connect tests the database connection.
type Connect struct{}

// LoadTables lists the tables of the configured database.
type LoadTables struct{}

// Upload sends a local file to the backend.
type Upload struct{ Path string }

// LoadColumns lists the columns of the selected table or uploaded file.
type LoadColumns struct{}

// LoadPreview fetches a bounded sample of the selected columns.
type LoadPreview struct{}

// Ingest runs the import from source to target.
type Ingest struct{}

// Backend outcomes.

// ConnectSucceeded reports a successful connection test.
type ConnectSucceeded struct{}

// TablesLoaded carries the table list.
type TablesLoaded struct{ Tables []string }

// UploadSucceeded carries the server-assigned filename of an upload.
type UploadSucceeded struct {
	Filename string
	Size     int64
}

// ColumnsLoaded carries the column names of the source.
type ColumnsLoaded struct{ Columns []string }

// PreviewLoaded carries preview rows, already ordered by Columns.
type PreviewLoaded struct {
	Columns []string
	Rows    [][]string
}

// IngestSucceeded carries the ingestion outcome.
type IngestSucceeded struct {
	Message     string
	Filename    string
	RecordCount int64
}

// RequestFailed reports a failed operation. Transport is set for network
// failures and malformed responses, and unset for errors the backend reported.
type RequestFailed struct {
	Op        Op
	Message   string
	Transport bool
}

func (SetSource) isAction()        {}
func (SetTarget) isAction()        {}
func (SetField) isAction()         {}
func (SelectTable) isAction()      {}
func (SetColumn) isAction()        {}
func (ToggleColumn) isAction()     {}
func (SelectAll) isAction()        {}
func (DeselectAll) isAction()      {}
func (Connect) isAction()          {}
func (LoadTables) isAction()       {}
func (Upload) isAction()           {}
func (LoadColumns) isAction()      {}
func (LoadPreview) isAction()      {}
func (Ingest) isAction()           {}
func (ConnectSucceeded) isAction() {}
func (TablesLoaded) isAction()     {}
func (UploadSucceeded) isAction()  {}
func (ColumnsLoaded) isAction()    {}
func (PreviewLoaded) isAction()    {}
func (IngestSucceeded) isAction()  {}
func (RequestFailed) isAction()    {}

// Request describes the remote call a start action asks for. Its fields are
// read from the configuration form at the moment the action is dispatched.
type Request struct {
	Op          Op
	Source      Kind
	Target      Kind
	Connection  ConnectionConfig
	FlatFile    FlatFileConfig
	Table       string
	TargetTable string
	Columns     []string
	// Path is the local file for OpUpload.
	Path string
}
