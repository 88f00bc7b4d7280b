// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/monadic/ingest-wizard/pkg/wizard"
)

// Ingestion wizard styles
var (
	wizardTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Background(lipgloss.Color("236")).
				Padding(0, 1)

	wizardSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				MarginTop(1)

	wizardLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Width(14)

	wizardFocusStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")).
				Bold(true)

	wizardDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	wizardCheckboxOn = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82"))

	wizardCheckboxOff = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	wizardKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	wizardHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	wizardErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196"))

	wizardErrorBoxStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196")).
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("196")).
				Padding(0, 1)

	wizardSuccessStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82"))

	wizardResultStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("82")).
				Padding(0, 1)
)

var phaseTitle = cases.Title(language.English)

func humanBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// View renders the wizard
func (m WizardModel) View() string {
	if m.quit {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	if m.picking {
		return m.renderPicker()
	}

	s := m.state
	sec := s.Sections()
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	if sec.Error {
		b.WriteString(wizardErrorBoxStyle.Render("Error: " + s.Err))
		b.WriteString("\n")
	}

	b.WriteString(m.renderKinds())

	if sec.DatabaseConfig {
		b.WriteString(wizardSectionStyle.Render("ClickHouse Connection"))
		b.WriteString("\n")
		for _, f := range formFields[:5] {
			b.WriteString(m.renderField(f.field, f.label))
		}
		if s.Connected {
			b.WriteString(wizardSuccessStyle.Render("  ✓ connected"))
			b.WriteString("\n")
		}
	}

	if sec.FlatFileConfig {
		b.WriteString(wizardSectionStyle.Render("Flat File"))
		b.WriteString("\n")
		b.WriteString(m.renderField(wizard.FieldDelimiter, "Delimiter"))
	}

	if sec.SourceTable {
		b.WriteString(wizardSectionStyle.Render("Source Table"))
		b.WriteString("\n")
		b.WriteString(m.renderTableSelector())
	}
	if sec.SourceUpload {
		b.WriteString(wizardSectionStyle.Render("Source File"))
		b.WriteString("\n")
		b.WriteString(m.renderUpload())
	}
	if sec.TargetTable {
		b.WriteString(wizardSectionStyle.Render("Target Table"))
		b.WriteString("\n")
		b.WriteString(m.renderField(wizard.FieldTargetTable, "Table Name"))
	}
	if sec.TargetOutput {
		b.WriteString(wizardSectionStyle.Render("Target File"))
		b.WriteString("\n")
		b.WriteString(m.renderField(wizard.FieldOutputName, "Output File"))
	}

	if len(s.Columns) > 0 {
		b.WriteString(wizardSectionStyle.Render(fmt.Sprintf("Columns (%d/%d selected)", len(s.SelectedColumns()), len(s.Columns))))
		b.WriteString("\n")
		b.WriteString(m.renderColumns())
	}

	if sec.Preview {
		b.WriteString(wizardSectionStyle.Render("Preview"))
		b.WriteString("\n")
		if len(s.Preview.Rows) == 0 {
			b.WriteString(wizardDimStyle.Render("  No data found."))
		} else {
			b.WriteString(m.preview.View())
		}
		b.WriteString("\n")
	}

	if sec.Result {
		b.WriteString("\n")
		b.WriteString(m.renderResult())
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(wizardDimStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(m.renderActions())
	return b.String()
}

// renderHeader renders the title, phase and backend address
func (m WizardModel) renderHeader() string {
	title := "INGEST WIZARD - " + phaseTitle.String(m.state.Phase.String())
	parts := []string{wizardTitleStyle.Render(title)}
	if m.backendURL != "" {
		parts = append(parts, "  ", wizardDimStyle.Render(m.backendURL))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func (m WizardModel) renderStatus() string {
	s := m.state
	if s.Busy() {
		return m.spinner.View() + " " + s.Status
	}
	if s.Err != "" {
		return wizardErrorStyle.Render(s.Status)
	}
	if s.Phase == wizard.PhaseCompleted {
		return wizardSuccessStyle.Render(s.Status)
	}
	return s.Status
}

func (m WizardModel) renderKinds() string {
	var b strings.Builder
	cur := m.focused()
	row := func(label string, focused bool, selected wizard.Kind) {
		b.WriteString(m.label(label, focused))
		for _, k := range []wizard.Kind{wizard.KindDatabase, wizard.KindFlatFile} {
			mark := "( )"
			if k == selected {
				mark = wizardCheckboxOn.Render("(•)")
			}
			b.WriteString(mark + " " + k.Label() + "   ")
		}
		b.WriteString("\n")
	}
	row("Source", cur.kind == focusSource, m.state.Source)
	row("Target", cur.kind == focusTarget, m.state.Target)
	return b.String()
}

func (m WizardModel) label(text string, focused bool) string {
	if focused {
		return wizardFocusStyle.Width(14).Render("› " + text)
	}
	return wizardLabelStyle.Render("  " + text)
}

func (m WizardModel) renderField(f wizard.Field, label string) string {
	cur := m.focused()
	return m.label(label, cur.kind == focusField && cur.field == f) + m.inputs[f].View() + "\n"
}

func (m WizardModel) renderTableSelector() string {
	s := m.state
	focused := m.focused().kind == focusTable
	var b strings.Builder
	for _, o := range s.TableOptions() {
		if o.Value != "" && o.Value == s.Table {
			b.WriteString(wizardCheckboxOn.Render("  ● ") + wizardFocusStyle.Render(o.Label))
		} else if o.Value == "" {
			if !s.Controls().TableSelector {
				b.WriteString(wizardDimStyle.Render("  " + o.Label))
			} else if s.Table == "" {
				b.WriteString("  ● " + o.Label)
			} else {
				b.WriteString(wizardDimStyle.Render("  ○ " + o.Label))
			}
		} else {
			b.WriteString("  ○ " + o.Label)
		}
		b.WriteString("\n")
	}
	if focused {
		b.WriteString(wizardDimStyle.Render("  ↑↓ choose a table"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m WizardModel) renderUpload() string {
	s := m.state
	var b strings.Builder
	b.WriteString(m.label("Local File", m.focused().kind == focusPath))
	b.WriteString(m.pathInput.View())
	b.WriteString("\n")
	if s.UploadStatus != "" {
		status := s.UploadStatus
		if s.Uploaded() && s.UploadedBytes > 0 && strings.HasPrefix(status, "Uploaded: ") {
			status += " (" + humanBytes(s.UploadedBytes) + ")"
		}
		b.WriteString(wizardDimStyle.Render("  " + status))
		b.WriteString("\n")
	}
	return b.String()
}

func (m WizardModel) renderColumns() string {
	focused := m.focused().kind == focusColumns
	var b strings.Builder
	for i, c := range m.state.Columns {
		cursor := "  "
		if focused && i == m.columnCursor {
			cursor = wizardFocusStyle.Render("› ")
		}
		box := wizardCheckboxOff.Render("[ ]")
		if c.Included {
			box = wizardCheckboxOn.Render("[x]")
		}
		b.WriteString(cursor + box + " " + c.Name + "\n")
	}
	return b.String()
}

func (m WizardModel) renderResult() string {
	r := m.state.Result
	lines := []string{wizardSuccessStyle.Render("Completed")}
	if r.Message != "" {
		lines = append(lines, r.Message)
	}
	if r.RecordCount > 0 {
		lines = append(lines, fmt.Sprintf("Records: %s", humanize.Comma(r.RecordCount)))
	}
	if r.Filename != "" {
		lines = append(lines, fmt.Sprintf("Download: %s", m.downloadURL(r.Filename)))
		lines = append(lines, wizardDimStyle.Render("press ^s to save it locally"))
	}
	return wizardResultStyle.Render(strings.Join(lines, "\n"))
}

// renderActions renders every action; unavailable ones are dimmed.
func (m WizardModel) renderActions() string {
	var parts []string
	for _, k := range m.keys.actions() {
		h := k.Help()
		text := h.Key + " " + h.Desc
		if k.Enabled() {
			parts = append(parts, wizardKeyStyle.Render(text))
		} else {
			parts = append(parts, wizardDimStyle.Render(text))
		}
	}
	return wizardHelpStyle.Render(strings.Join(parts, "  ")) + "\n" + m.help.ShortHelpView(m.keys.ShortHelp())
}

func (m WizardModel) renderHelpOverlay() string {
	var b strings.Builder
	b.WriteString(wizardTitleStyle.Render("INGEST WIZARD - Help"))
	b.WriteString("\n\n")
	m.help.ShowAll = true
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n\n")
	b.WriteString(wizardDimStyle.Render("Dimmed actions become available as the wizard progresses:"))
	b.WriteString("\n")
	b.WriteString(wizardDimStyle.Render("connect → load tables → pick a table (or upload a file) → load columns → preview → ingest"))
	b.WriteString("\n\n")
	b.WriteString(wizardHelpStyle.Render("press any key to return"))
	return b.String()
}

func (m WizardModel) renderPicker() string {
	var b strings.Builder
	b.WriteString(wizardTitleStyle.Render("INGEST WIZARD - Choose a File"))
	b.WriteString("\n")
	b.WriteString(wizardDimStyle.Render(m.picker.CurrentDirectory))
	b.WriteString("\n\n")
	b.WriteString(m.picker.View())
	b.WriteString("\n")
	b.WriteString(wizardHelpStyle.Render("↑↓ navigate  → open  ← back  enter select  esc cancel"))
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(wizardErrorStyle.Render(m.notice))
	}
	return b.String()
}
