// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/monadic/ingest-wizard/pkg/wizard"
	"github.com/monadic/ingest-wizard/pkg/workflow"
)

// focusKind identifies what kind of control has keyboard focus.
type focusKind int

const (
	focusSource focusKind = iota
	focusTarget
	focusField   // a text field of the configuration form
	focusPath    // local file to upload
	focusTable   // source table selector
	focusColumns // column checklist
)

type focusItem struct {
	kind  focusKind
	field wizard.Field
}

// formFields lists the text fields in display order with their labels.
var formFields = []struct {
	field wizard.Field
	label string
}{
	{wizard.FieldHost, "Host"},
	{wizard.FieldPort, "Port"},
	{wizard.FieldDatabase, "Database"},
	{wizard.FieldUser, "User"},
	{wizard.FieldToken, "JWT Token"},
	{wizard.FieldDelimiter, "Delimiter"},
	{wizard.FieldTargetTable, "Target Table"},
	{wizard.FieldOutputName, "Output File"},
}

// Message types for the wizard
type wizardOutcomeMsg struct {
	action wizard.Action
}

type wizardDownloadMsg struct {
	path  string
	bytes int64
	err   error
}

// WizardModel is the bubbletea model for the interactive ingestion wizard.
// All workflow state lives in state; the model only adds focus, widgets and
// the notice line.
type WizardModel struct {
	state wizard.State

	driver      *workflow.Driver
	files       workflow.Downloader
	downloadURL func(string) string
	downloadDir string
	backendURL  string
	ctx         context.Context
	logger      *log.Logger

	// Widgets
	inputs       map[wizard.Field]textinput.Model
	pathInput    textinput.Model
	picker       filepicker.Model
	picking      bool
	preview      table.Model
	previewOf    *wizard.Preview
	spinner      spinner.Model
	help         help.Model
	keys         wizardKeyMap
	focus        int
	columnCursor int

	notice   string
	width    int
	height   int
	showHelp bool
	quit     bool
}

// wizardDeps are the collaborators of a WizardModel.
type wizardDeps struct {
	ctx         context.Context
	driver      *workflow.Driver
	files       workflow.Downloader
	downloadURL func(string) string
	downloadDir string
	backendURL  string
	logger      *log.Logger
}

// NewWizardModel creates the wizard starting from initial.
func NewWizardModel(initial wizard.State, deps wizardDeps) WizardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	if deps.ctx == nil {
		deps.ctx = context.Background()
	}
	if deps.logger == nil {
		deps.logger = log.New(io.Discard)
	}
	if deps.downloadURL == nil {
		deps.downloadURL = func(name string) string { return wizard.Result{Filename: name}.DownloadPath() }
	}

	m := WizardModel{
		state:       initial,
		driver:      deps.driver,
		files:       deps.files,
		downloadURL: deps.downloadURL,
		downloadDir: deps.downloadDir,
		backendURL:  deps.backendURL,
		ctx:         deps.ctx,
		logger:      deps.logger,
		inputs:      make(map[wizard.Field]textinput.Model, len(formFields)),
		spinner:     s,
		help:        help.New(),
		keys:        defaultWizardKeyMap(),
		width:       100,
		height:      40,
	}

	for _, f := range formFields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 256
		ti.Width = 40
		ti.SetValue(fieldValue(initial, f.field))
		if f.field == wizard.FieldToken {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		m.inputs[f.field] = ti
	}
	m.inputs[wizard.FieldPort] = withPlaceholder(m.inputs[wizard.FieldPort], "8123 or 9440 (https)")
	m.inputs[wizard.FieldDelimiter] = withPlaceholder(m.inputs[wizard.FieldDelimiter], "comma, tab, semicolon, pipe, space")
	m.inputs[wizard.FieldOutputName] = withPlaceholder(m.inputs[wizard.FieldOutputName], "generated by the backend")

	m.pathInput = textinput.New()
	m.pathInput.Prompt = ""
	m.pathInput.Width = 40
	m.pathInput.Placeholder = "path/to/data.csv (^f to browse)"

	m.picker = filepicker.New()
	m.picker.AllowedTypes = lo.Map(wizard.AllowedExtensions, func(ext string, _ int) string { return "." + ext })
	m.picker.CurrentDirectory, _ = os.Getwd()
	m.picker.Height = 10

	m.keys.sync(m.state)
	m = m.focusChanged()
	return m
}

func withPlaceholder(ti textinput.Model, p string) textinput.Model {
	ti.Placeholder = p
	return ti
}

func fieldValue(s wizard.State, f wizard.Field) string {
	switch f {
	case wizard.FieldHost:
		return s.Connection.Host
	case wizard.FieldPort:
		return s.Connection.Port
	case wizard.FieldDatabase:
		return s.Connection.Database
	case wizard.FieldUser:
		return s.Connection.User
	case wizard.FieldToken:
		return s.Connection.Token
	case wizard.FieldDelimiter:
		return s.FlatFile.Delimiter
	case wizard.FieldTargetTable:
		return s.TargetTable
	case wizard.FieldOutputName:
		return s.FlatFile.OutputName
	}
	return ""
}

// State returns the current wizard state.
func (m WizardModel) State() wizard.State {
	return m.state
}

// Init initializes the model
func (m WizardModel) Init() tea.Cmd {
	return textinput.Blink
}

// focusables lists the focusable controls of the visible sections.
func (m WizardModel) focusables() []focusItem {
	sec := m.state.Sections()
	items := []focusItem{{kind: focusSource}, {kind: focusTarget}}
	field := func(f wizard.Field) { items = append(items, focusItem{kind: focusField, field: f}) }

	if sec.DatabaseConfig {
		field(wizard.FieldHost)
		field(wizard.FieldPort)
		field(wizard.FieldDatabase)
		field(wizard.FieldUser)
		field(wizard.FieldToken)
	}
	if sec.FlatFileConfig {
		field(wizard.FieldDelimiter)
	}
	if sec.SourceTable {
		items = append(items, focusItem{kind: focusTable})
	}
	if sec.SourceUpload {
		items = append(items, focusItem{kind: focusPath})
	}
	if sec.TargetTable {
		field(wizard.FieldTargetTable)
	}
	if sec.TargetOutput {
		field(wizard.FieldOutputName)
	}
	if len(m.state.Columns) > 0 {
		items = append(items, focusItem{kind: focusColumns})
	}
	return items
}

func (m WizardModel) focused() focusItem {
	items := m.focusables()
	if m.focus >= len(items) {
		return items[len(items)-1]
	}
	return items[m.focus]
}

// focusChanged clamps the focus index and moves the text cursor.
func (m WizardModel) focusChanged() WizardModel {
	items := m.focusables()
	if m.focus >= len(items) {
		m.focus = len(items) - 1
	}
	if m.focus < 0 {
		m.focus = 0
	}
	cur := items[m.focus]
	for f, ti := range m.inputs {
		if cur.kind == focusField && cur.field == f {
			ti.Focus()
		} else {
			ti.Blur()
		}
		m.inputs[f] = ti
	}
	if cur.kind == focusPath {
		m.pathInput.Focus()
	} else {
		m.pathInput.Blur()
	}
	return m
}

// dispatch folds a into the state and starts the request it produces.
func (m WizardModel) dispatch(a wizard.Action) (WizardModel, tea.Cmd) {
	prev := m.state
	next, req := wizard.Dispatch(m.state, a)
	m.state = next
	if next.Phase != prev.Phase {
		m.logger.Debug("phase changed", "from", prev.Phase.String(), "to", next.Phase.String())
	}
	if next.Err != "" && next.Err != prev.Err {
		m.logger.Warn("wizard error", "status", next.Status)
	}

	if n := len(m.state.Columns); m.columnCursor >= n {
		m.columnCursor = max(n-1, 0)
	}
	m.keys.sync(m.state)
	m = m.syncPreview()
	m = m.focusChanged()

	if req == nil {
		return m, nil
	}
	m.notice = ""
	return m, tea.Batch(m.execute(*req), m.spinner.Tick)
}

// execute runs req on the driver and reports the outcome as a message.
func (m WizardModel) execute(req wizard.Request) tea.Cmd {
	driver, ctx := m.driver, m.ctx
	return func() tea.Msg {
		return wizardOutcomeMsg{action: driver.Execute(ctx, req)}
	}
}

func (m WizardModel) download() tea.Cmd {
	if m.files == nil || m.state.Result == nil {
		return nil
	}
	files, ctx, dir := m.files, m.ctx, m.downloadDir
	name := m.state.Result.Filename
	return func() tea.Msg {
		path, n, err := workflow.DownloadTo(ctx, files, name, dir)
		return wizardDownloadMsg{path: path, bytes: n, err: err}
	}
}

// syncPreview rebuilds the preview table when the state's preview changes.
func (m WizardModel) syncPreview() WizardModel {
	p := m.state.Preview
	if p == m.previewOf {
		return m
	}
	m.previewOf = p
	if p == nil {
		m.preview = table.Model{}
		return m
	}

	cols := make([]table.Column, len(p.Columns))
	for i, name := range p.Columns {
		w := len(name)
		for _, row := range p.Rows {
			if i < len(row) && len(row[i]) > w {
				w = len(row[i])
			}
		}
		cols[i] = table.Column{Title: name, Width: min(max(w, 4), 24)}
	}
	rows := make([]table.Row, len(p.Rows))
	for i, r := range p.Rows {
		rows[i] = table.Row(r)
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(min(len(rows)+1, 10)),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(styles)
	m.preview = t
	return m
}

// Update handles messages
func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case wizardOutcomeMsg:
		return m.dispatch(msg.action)

	case wizardDownloadMsg:
		if msg.err != nil {
			m.notice = "Download failed: " + msg.err.Error()
			m.logger.Error("download failed", "err", msg.err)
		} else {
			m.notice = "Saved " + msg.path + " (" + humanBytes(msg.bytes) + ")"
			m.logger.Info("download saved", "path", msg.path, "bytes", msg.bytes)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.state.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.picking {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m WizardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quit = true
		return m, tea.Quit
	}

	if m.picking {
		return m.handlePickerKey(msg)
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quit = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.Next):
		m.focus = (m.focus + 1) % len(m.focusables())
		return m.focusChanged(), nil
	case key.Matches(msg, m.keys.Prev):
		n := len(m.focusables())
		m.focus = (m.focus - 1 + n) % n
		return m.focusChanged(), nil

	case key.Matches(msg, m.keys.Connect):
		return m.dispatch(wizard.Connect{})
	case key.Matches(msg, m.keys.Tables):
		return m.dispatch(wizard.LoadTables{})
	case key.Matches(msg, m.keys.Browse):
		m.picking = true
		return m, m.picker.Init()
	case key.Matches(msg, m.keys.Upload):
		return m.dispatch(wizard.Upload{Path: expandHome(strings.TrimSpace(m.pathInput.Value()))})
	case key.Matches(msg, m.keys.Columns):
		return m.dispatch(wizard.LoadColumns{})
	case key.Matches(msg, m.keys.SelectAll):
		return m.dispatch(wizard.SelectAll{})
	case key.Matches(msg, m.keys.DeselectAll):
		return m.dispatch(wizard.DeselectAll{})
	case key.Matches(msg, m.keys.Preview):
		return m.dispatch(wizard.LoadPreview{})
	case key.Matches(msg, m.keys.Ingest):
		return m.dispatch(wizard.Ingest{})
	case key.Matches(msg, m.keys.Download):
		m.notice = "Downloading " + m.state.Result.Filename + "..."
		return m, m.download()
	}

	// The form is read-only while a request is in flight.
	if m.state.Busy() {
		return m, nil
	}

	cur := m.focused()
	switch cur.kind {
	case focusSource, focusTarget:
		if key.Matches(msg, m.keys.Toggle) {
			if cur.kind == focusSource {
				return m.dispatch(wizard.SetSource{Kind: other(m.state.Source)})
			}
			return m.dispatch(wizard.SetTarget{Kind: other(m.state.Target)})
		}

	case focusField:
		ti := m.inputs[cur.field]
		before := ti.Value()
		var cmd tea.Cmd
		ti, cmd = ti.Update(msg)
		m.inputs[cur.field] = ti
		if ti.Value() != before {
			var dcmd tea.Cmd
			m, dcmd = m.dispatch(wizard.SetField{Field: cur.field, Value: typedValue(cur.field, ti.Value())})
			return m, tea.Batch(cmd, dcmd)
		}
		return m, cmd

	case focusPath:
		var cmd tea.Cmd
		m.pathInput, cmd = m.pathInput.Update(msg)
		return m, cmd

	case focusTable:
		opts := m.state.TableOptions()
		idx := 0
		for i, o := range opts {
			if o.Value == m.state.Table {
				idx = i
			}
		}
		switch {
		case key.Matches(msg, m.keys.Up) && idx > 0:
			return m.dispatch(wizard.SelectTable{Name: opts[idx-1].Value})
		case key.Matches(msg, m.keys.Down) && idx < len(opts)-1:
			return m.dispatch(wizard.SelectTable{Name: opts[idx+1].Value})
		}

	case focusColumns:
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.columnCursor > 0 {
				m.columnCursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.columnCursor < len(m.state.Columns)-1 {
				m.columnCursor++
			}
		case msg.String() == " " || msg.String() == "enter":
			if m.columnCursor < len(m.state.Columns) {
				return m.dispatch(wizard.ToggleColumn{Name: m.state.Columns[m.columnCursor].Name})
			}
		}
	}
	return m, nil
}

func (m WizardModel) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.picking = false
		return m, nil
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.picking = false
		m.pathInput.SetValue(path)
		m.notice = "Selected " + filepath.Base(path) + ", press ^u to upload"
		return m, nil
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.notice = filepath.Base(path) + " is not a csv, tsv or txt file"
	}
	return m, cmd
}

func other(k wizard.Kind) wizard.Kind {
	if k == wizard.KindDatabase {
		return wizard.KindFlatFile
	}
	return wizard.KindDatabase
}

// typedValue trims address fields. Everything else, the token in particular,
// is sent exactly as typed.
func typedValue(f wizard.Field, v string) string {
	switch f {
	case wizard.FieldHost, wizard.FieldPort, wizard.FieldDatabase:
		return strings.TrimSpace(v)
	}
	return v
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
