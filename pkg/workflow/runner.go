// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/monadic/ingest-wizard/pkg/wizard"
)

// ErrDeclined is returned when Confirm rejects the ingestion.
var ErrDeclined = errors.New("ingestion cancelled")

// OpError is a failed backend operation. Status is the wizard's status line
// for the failure; Message is the backend's reason.
type OpError struct {
	Op        wizard.Op
	Status    string
	Message   string
	Transport bool
}

func (e *OpError) Error() string {
	return e.Status
}

// Runner drives a Plan through the same Dispatch/Execute loop the TUI uses.
type Runner struct {
	Driver *Driver
	Logger *log.Logger

	// Confirm is asked once before ingestion starts. Nil means yes.
	Confirm func(wizard.State) (bool, error)
	// Progress observes every state the wizard passes through.
	Progress func(wizard.State)

	// Files and DownloadDir enable saving the exported file after a
	// database to flat file ingestion.
	Files       Downloader
	DownloadDir string
}

// Report is the outcome of a successful run.
type Report struct {
	State wizard.State
	// Saved is the local path of the downloaded export, if any.
	Saved string
	Bytes int64
}

// Run executes p and stops at the first failure. The returned state is the
// last one reached, on failure too.
func (r *Runner) Run(ctx context.Context, p *Plan) (*Report, error) {
	logger := r.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	source, target := p.Kinds()

	s := wizard.New()
	for _, a := range p.setup() {
		s, _ = wizard.Dispatch(s, a)
	}
	r.observe(s)

	var err error
	steps := []func() error{}
	step := func(a wizard.Action) func() error {
		return func() error {
			s, err = r.step(ctx, s, a)
			return err
		}
	}

	if source == wizard.KindDatabase || target == wizard.KindDatabase {
		steps = append(steps, step(wizard.Connect{}))
	}
	if source == wizard.KindDatabase {
		steps = append(steps,
			step(wizard.LoadTables{}),
			func() error {
				if !lo.Contains(s.Tables, p.Table) {
					return &wizard.ValidationError{Message: fmt.Sprintf("Table %q not found in database %q.", p.Table, p.Connection.Database)}
				}
				s, err = r.step(ctx, s, wizard.SelectTable{Name: p.Table})
				return err
			},
		)
	} else {
		steps = append(steps, step(wizard.Upload{Path: p.File.Path}))
	}
	steps = append(steps, step(wizard.LoadColumns{}), func() error {
		s, err = r.selectColumns(s, p.Columns)
		return err
	})
	if p.Preview {
		steps = append(steps, step(wizard.LoadPreview{}))
	}
	steps = append(steps, func() error {
		if r.Confirm == nil {
			return nil
		}
		ok, err := r.Confirm(s)
		if err != nil {
			return err
		}
		if !ok {
			return ErrDeclined
		}
		return nil
	}, step(wizard.Ingest{}))

	for _, run := range steps {
		if err := run(); err != nil {
			logger.Error("plan stopped", "phase", s.Phase.String(), "err", err)
			return &Report{State: s}, err
		}
	}

	report := &Report{State: s}
	if r.Files != nil && r.DownloadDir != "" && s.Result != nil && s.Result.Filename != "" {
		path, n, err := DownloadTo(ctx, r.Files, s.Result.Filename, r.DownloadDir)
		if err != nil {
			return report, fmt.Errorf("download %s: %w", s.Result.Filename, err)
		}
		logger.Info("export saved", "path", path, "bytes", n)
		report.Saved, report.Bytes = path, n
	}
	return report, nil
}

// step dispatches a, executes the request it produces and dispatches the
// outcome.
func (r *Runner) step(ctx context.Context, s wizard.State, a wizard.Action) (wizard.State, error) {
	if err := wizard.Check(s, a); err != nil {
		return s, err
	}
	s, req := wizard.Dispatch(s, a)
	r.observe(s)
	if req == nil {
		return s, nil
	}

	outcome := r.Driver.Execute(ctx, *req)
	s, _ = wizard.Dispatch(s, outcome)
	r.observe(s)

	if f, ok := outcome.(wizard.RequestFailed); ok {
		return s, &OpError{Op: f.Op, Status: s.Status, Message: s.Err, Transport: f.Transport}
	}
	if s.Err != "" {
		return s, &wizard.ValidationError{Message: s.Err}
	}
	return s, nil
}

func (r *Runner) selectColumns(s wizard.State, want []string) (wizard.State, error) {
	if len(want) == 0 {
		return s, nil
	}
	loaded := lo.Map(s.Columns, func(c wizard.Column, _ int) string { return c.Name })
	if unknown := lo.Without(want, loaded...); len(unknown) > 0 {
		return s, &wizard.ValidationError{Message: fmt.Sprintf("Unknown columns: %s", strings.Join(unknown, ", "))}
	}
	s, _ = wizard.Dispatch(s, wizard.DeselectAll{})
	for _, name := range want {
		s, _ = wizard.Dispatch(s, wizard.SetColumn{Name: name, Included: true})
	}
	r.observe(s)
	return s, nil
}

func (r *Runner) observe(s wizard.State) {
	if r.Progress != nil {
		r.Progress(s)
	}
}
