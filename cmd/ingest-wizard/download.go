// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/monadic/ingest-wizard/pkg/workflow"
)

var downloadOutput string

var downloadCmd = &cobra.Command{
	Use:   "download FILENAME",
	Short: "Download a file exported by an earlier ingestion",
	Long: `Download a file the backend produced for a ClickHouse to flat file ingestion.

Examples:
  # Save events.csv into the current directory
  ingest-wizard download events.csv

  # Save under a different name
  ingest-wizard download events.csv -o /tmp/events-2024.csv
`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "Destination path (default: ./FILENAME)")
	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	name := args[0]
	dest := downloadOutput
	if dest == "" {
		dest = filepath.Base(name)
	}

	client := s.client()
	n, err := workflow.Save(ctx, client, name, dest)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s) from %s\n", dest, humanBytes(n), client.DownloadURL(name))
	return nil
}
