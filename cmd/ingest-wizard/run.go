// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/monadic/ingest-wizard/pkg/wizard"
	"github.com/monadic/ingest-wizard/pkg/workflow"
)

var (
	runPlanPath    string
	runYes         bool
	runDownloadDir string
)

var runCmd = &cobra.Command{
	Use:   "run --plan FILE",
	Short: "Run an ingestion plan without the interactive wizard",
	Long: `Run an ingestion described in a YAML plan.

The plan goes through the same steps as the wizard: connect, pick the table or
upload the file, load columns, optionally preview, then ingest. Connection
fields missing from the plan come from the selected profile.

Example plan:

  source: clickhouse
  target: flatfile
  connection:
    host: localhost
    port: "8123"
    database: default
    token: ${CLICKHOUSE_TOKEN}
  table: events
  columns: [id, ts, payload]
  file:
    output: events.csv

Examples:
  # Export a table, confirming before ingestion
  ingest-wizard run --plan export.yaml

  # Unattended, saving the exported file locally
  ingest-wizard run --plan export.yaml --yes --download-dir ./exports
`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	runCmd.Flags().StringVarP(&runPlanPath, "plan", "f", "", "Plan file (required)")
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "Start ingestion without asking")
	runCmd.Flags().StringVar(&runDownloadDir, "download-dir", "", "Save the exported file into this directory")
	_ = runCmd.MarkFlagRequired("plan")
	rootCmd.AddCommand(runCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	plan, err := workflow.LoadPlan(runPlanPath)
	if err != nil {
		return &wizard.ValidationError{Message: err.Error()}
	}
	plan.Defaults(s.profile.Connection(), s.Delimiter)
	if err := plan.Validate(); err != nil {
		return &wizard.ValidationError{Message: err.Error()}
	}

	session := openSession(s.LogDir, "run")
	defer func() {
		if path := session.Close(); path != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Session log: %s\n", path)
		}
	}()
	session.Info("running plan", "plan", runPlanPath, "backend", s.Backend, "source", plan.Source, "target", plan.Target)

	ctx, cancel := signalContext()
	defer cancel()

	out := cmd.OutOrStdout()
	client := s.client()
	runner := &workflow.Runner{
		Driver:      workflow.NewDriver(client, session.Logger),
		Logger:      session.Logger,
		Progress:    progressPrinter(out),
		Files:       client,
		DownloadDir: runDownloadDir,
	}
	if !runYes {
		if !stdinIsTerminal() {
			return &wizard.ValidationError{Message: "cannot ask for confirmation without a terminal; pass --yes to ingest unattended"}
		}
		runner.Confirm = confirmIngestion
	}

	report, err := runner.Run(ctx, plan)
	if report != nil {
		session.LogResult(report.State, err)
	}
	if err != nil {
		return err
	}

	printReport(out, report, client.DownloadURL)
	return nil
}

// progressPrinter prints each new status line once.
func progressPrinter(w io.Writer) func(wizard.State) {
	last := ""
	return func(s wizard.State) {
		if s.Status == last || s.Status == "Ready" {
			return
		}
		last = s.Status
		switch {
		case s.Err != "":
			fmt.Fprintf(w, "%s\n", wizardErrorStyle.Render("✗ "+s.Status))
		case s.Busy():
			fmt.Fprintf(w, "… %s\n", s.Status)
		default:
			fmt.Fprintf(w, "%s\n", wizardSuccessStyle.Render("✓ "+s.Status))
		}
	}
}

// confirmIngestion asks before ingestion starts.
func confirmIngestion(s wizard.State) (bool, error) {
	ok := false
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Start ingestion?").
				Description(describeIngestion(s)).
				Affirmative("Ingest").
				Negative("Cancel").
				Value(&ok),
		),
	).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

// describeIngestion summarizes what an ingestion from s would do.
func describeIngestion(s wizard.State) string {
	var from, to string
	switch s.Source {
	case wizard.KindDatabase:
		from = fmt.Sprintf("table %s on %s", s.Table, s.Connection.Host)
	default:
		from = "file " + s.FlatFile.Filename
	}
	switch s.Target {
	case wizard.KindDatabase:
		to = fmt.Sprintf("table %s on %s", s.TargetTable, s.Connection.Host)
	default:
		to = "a flat file"
		if s.FlatFile.OutputName != "" {
			to = s.FlatFile.OutputName
		}
	}
	cols := s.SelectedColumns()
	return fmt.Sprintf("From %s to %s\n%d of %d columns: %s",
		from, to, len(cols), len(s.Columns), strings.Join(cols, ", "))
}

func printReport(w io.Writer, report *workflow.Report, downloadURL func(string) string) {
	r := report.State.Result
	if r == nil {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, wizardSuccessStyle.Render("Ingestion complete"))
	if r.Message != "" {
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
	fmt.Fprintf(w, "  Records:  %s\n", humanize.Comma(r.RecordCount))
	if r.Filename != "" {
		fmt.Fprintf(w, "  Download: %s\n", downloadURL(r.Filename))
	}
	if report.Saved != "" {
		fmt.Fprintf(w, "  Saved:    %s (%s)\n", report.Saved, humanBytes(report.Bytes))
	}
}

// stdinIsTerminal reports whether prompts can be answered.
func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
