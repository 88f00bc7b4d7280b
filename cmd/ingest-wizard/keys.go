// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/monadic/ingest-wizard/pkg/wizard"
)

// wizardKeyMap holds the wizard's bindings. Action bindings are enabled and
// disabled from wizard.Controls, so key.Matches ignores unavailable actions.
type wizardKeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Help   key.Binding
	Quit   key.Binding

	Connect     key.Binding
	Tables      key.Binding
	Browse      key.Binding
	Upload      key.Binding
	Columns     key.Binding
	SelectAll   key.Binding
	DeselectAll key.Binding
	Preview     key.Binding
	Ingest      key.Binding
	Download    key.Binding
}

func defaultWizardKeyMap() wizardKeyMap {
	return wizardKeyMap{
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "enter", "left", "right"),
			key.WithHelp("space", "toggle"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit"),
		),
		Connect: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("^o", "connect"),
		),
		Tables: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("^t", "load tables"),
		),
		Browse: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("^f", "browse"),
		),
		Upload: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("^u", "upload"),
		),
		Columns: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("^l", "load columns"),
		),
		SelectAll: key.NewBinding(
			key.WithKeys("ctrl+a"),
			key.WithHelp("^a", "select all"),
		),
		DeselectAll: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("^d", "deselect all"),
		),
		Preview: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("^p", "preview"),
		),
		Ingest: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("^g", "start ingestion"),
		),
		Download: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("^s", "download"),
		),
	}
}

// actions returns the action bindings in display order.
func (k wizardKeyMap) actions() []key.Binding {
	return []key.Binding{
		k.Connect, k.Tables, k.Browse, k.Upload, k.Columns,
		k.SelectAll, k.DeselectAll, k.Preview, k.Ingest, k.Download,
	}
}

// sync enables exactly the actions the state allows.
func (k *wizardKeyMap) sync(s wizard.State) {
	c := s.Controls()
	sec := s.Sections()
	k.Connect.SetEnabled(c.Connect)
	k.Tables.SetEnabled(c.ListTables)
	k.Browse.SetEnabled(c.Upload)
	k.Upload.SetEnabled(c.Upload)
	k.Columns.SetEnabled(c.ListColumns)
	k.SelectAll.SetEnabled(c.SelectAll)
	k.DeselectAll.SetEnabled(c.DeselectAll)
	k.Preview.SetEnabled(c.Preview)
	k.Ingest.SetEnabled(c.Ingest)
	k.Download.SetEnabled(!s.Busy() && sec.Result && s.Result != nil && s.Result.Filename != "")
}

// ShortHelp implements help.KeyMap.
func (k wizardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k wizardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Up, k.Down, k.Toggle},
		{k.Connect, k.Tables, k.Browse, k.Upload, k.Columns},
		{k.SelectAll, k.DeselectAll, k.Preview, k.Ingest, k.Download},
		{k.Help, k.Quit},
	}
}
