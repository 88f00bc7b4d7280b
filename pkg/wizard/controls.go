// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package wizard

import "strings"

// Sections says which parts of the form are visible.
type Sections struct {
	DatabaseConfig bool
	FlatFileConfig bool

	// Sub-fields scoped to one side of the transfer.
	SourceTable  bool // table selector, database source
	TargetTable  bool // target table name, database target
	SourceUpload bool // upload field, flat file source
	TargetOutput bool // output filename, flat file target

	Preview bool
	Result  bool
	Error   bool
}

// Sections derives section visibility from s.
func (s State) Sections() Sections {
	return Sections{
		DatabaseConfig: s.Source == KindDatabase || s.Target == KindDatabase,
		FlatFileConfig: s.Source == KindFlatFile || s.Target == KindFlatFile,
		SourceTable:    s.Source == KindDatabase,
		TargetTable:    s.Target == KindDatabase,
		SourceUpload:   s.Source == KindFlatFile,
		TargetOutput:   s.Target == KindFlatFile,
		Preview:        s.Preview != nil,
		Result:         s.Result != nil,
		Error:          s.Err != "",
	}
}

// Controls says which actions are enabled.
type Controls struct {
	Connect     bool
	ListTables  bool
	ListColumns bool
	Upload      bool
	SelectAll   bool
	DeselectAll bool
	Preview     bool
	Ingest      bool
	// TableSelector is set once tables are loaded.
	TableSelector bool
}

// Controls derives action enablement from s. Everything is disabled while a
// request is in flight.
func (s State) Controls() Controls {
	if s.Busy() {
		return Controls{}
	}
	loaded := len(s.Columns) > 0
	selected := len(s.SelectedColumns()) > 0
	return Controls{
		Connect:     true,
		ListTables:  s.Connection.Complete(),
		ListColumns: (s.Source == KindDatabase && s.Table != "") || (s.Source == KindFlatFile && s.Uploaded()),
		Upload:      s.Source == KindFlatFile,
		SelectAll:   loaded,
		DeselectAll: loaded,
		Preview:     selected,
		Ingest:      selected,

		TableSelector: len(s.Tables) > 0,
	}
}

// Option is an entry of the table selector. The placeholder has an empty Value.
type Option struct {
	Value string
	Label string
}

// TableOptions returns the table selector entries: a placeholder followed by
// the loaded tables.
func (s State) TableOptions() []Option {
	if len(s.Tables) == 0 {
		return []Option{{Label: "-- Load Tables First --"}}
	}
	opts := make([]Option, 0, len(s.Tables)+1)
	opts = append(opts, Option{Label: "-- Select a Table --"})
	for _, t := range s.Tables {
		opts = append(opts, Option{Value: t, Label: t})
	}
	return opts
}

// Delimiters maps delimiter names to the characters they stand for.
var Delimiters = map[string]string{
	"comma":     ",",
	"tab":       "\t",
	"semicolon": ";",
	"pipe":      "|",
	"space":     " ",
}

// DelimiterChar resolves a delimiter name. Unknown names are literal delimiters.
func DelimiterChar(name string) string {
	if c, ok := Delimiters[strings.ToLower(name)]; ok {
		return c
	}
	return name
}
