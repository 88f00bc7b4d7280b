// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/monadic/ingest-wizard/internal/config"
	"github.com/monadic/ingest-wizard/pkg/wizard"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved ClickHouse connection profiles",
	Long: `Manage connection profiles stored in the config file.

A profile fills in the wizard's connection form. Select one with --profile or
set defaultProfile in the config file. Tokens may reference the environment,
e.g. --token '${CLICKHOUSE_TOKEN}', so secrets need not be stored.

Examples:
  ingest-wizard profile save local --host localhost --port 8123 --database default
  ingest-wizard profile list
  ingest-wizard profile delete local
`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connection profiles",
	Args:  cobra.NoArgs,
	RunE:  runProfileList,
}

var profileSaveCmd = &cobra.Command{
	Use:   "save NAME",
	Short: "Add or replace a connection profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileSave,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a connection profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileDelete,
}

var profileInput config.Profile

func init() {
	f := profileSaveCmd.Flags()
	f.StringVar(&profileInput.Host, "host", "", "ClickHouse host")
	f.StringVar(&profileInput.Port, "port", "", "ClickHouse port")
	f.StringVar(&profileInput.Database, "database", "", "Database name")
	f.StringVar(&profileInput.User, "user", "", "User name")
	f.StringVar(&profileInput.Token, "token", "", "JWT token or password; ${VAR} is expanded when used")

	profileCmd.AddCommand(profileListCmd, profileSaveCmd, profileDeleteCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return &wizard.ValidationError{Message: err.Error()}
	}
	out := cmd.OutOrStdout()
	if len(cfg.Profiles) == 0 {
		fmt.Fprintln(out, "No profiles. Create one with 'ingest-wizard profile save NAME --host ...'.")
		return nil
	}

	fmt.Fprintf(out, "%-2s %-16s %-32s %-16s %s\n", "", "NAME", "ADDRESS", "DATABASE", "USER")
	for _, p := range cfg.Profiles {
		marker := ""
		if p.Name == cfg.DefaultProfile {
			marker = "*"
		}
		addr := p.Host
		if p.Port != "" {
			addr += ":" + p.Port
		}
		fmt.Fprintf(out, "%-2s %-16s %-32s %-16s %s\n", marker, p.Name, addr, p.Database, p.User)
	}
	return nil
}

func runProfileSave(cmd *cobra.Command, args []string) error {
	p := profileInput
	p.Name = strings.TrimSpace(args[0])
	if err := config.SaveProfile(configPath, p); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %q\n", p.Name)
	return nil
}

func runProfileDelete(cmd *cobra.Command, args []string) error {
	if err := config.DeleteProfile(configPath, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %q\n", args[0])
	return nil
}
