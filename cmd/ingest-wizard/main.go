// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Command ingest-wizard moves data between ClickHouse and flat files through
// the ingestion backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/monadic/ingest-wizard/internal/clierr"
	"github.com/monadic/ingest-wizard/internal/config"
	"github.com/monadic/ingest-wizard/pkg/backend"
	"github.com/monadic/ingest-wizard/pkg/wizard"
	"github.com/monadic/ingest-wizard/pkg/workflow"
)

var (
	// BuildTag is set during build
	BuildTag = "dev"
	// BuildDate is set during build
	BuildDate = "unknown"
)

// Global flags
var (
	configPath  string
	backendFlag string
	timeoutFlag time.Duration
	profileFlag string
	logDirFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "ingest-wizard",
	Short: "Move data between ClickHouse and flat files",
	Long: `ingest-wizard - move data between ClickHouse and flat files

ingest-wizard drives an ingestion backend. Without a subcommand it opens an
interactive wizard that walks through:

  - Choosing the source and target (ClickHouse or a flat file)
  - Connecting to ClickHouse and picking a table, or uploading a CSV/TSV file
  - Choosing columns and previewing the first rows
  - Starting the ingestion and downloading the exported file

Use 'ingest-wizard run --plan FILE' to run the same workflow unattended.

Environment Variables:
  INGEST_WIZARD_BACKEND   Backend URL (default: http://localhost:8000)
  INGEST_WIZARD_TIMEOUT   Per-request timeout, e.g. 2m (default: none)
  INGEST_WIZARD_LOG_DIR   Session log directory (default: ~/.ingest-wizard/logs)
`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWizard,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, clierr.Pretty(err))
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default: ~/.ingest-wizard/config.yaml)")
	flags.StringVar(&backendFlag, "backend", "", "Backend URL (overrides config and INGEST_WIZARD_BACKEND)")
	flags.DurationVar(&timeoutFlag, "timeout", 0, "Per-request timeout, 0 waits indefinitely")
	flags.StringVar(&profileFlag, "profile", "", "Connection profile to start from")
	flags.StringVar(&logDirFlag, "log-dir", "", "Directory for session logs")

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ingest-wizard version %s (built %s)\n", BuildTag, BuildDate)
		},
	})

	// Add completion command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for ingest-wizard.

Bash:
  $ source <(ingest-wizard completion bash)

Zsh:
  $ ingest-wizard completion zsh > "${fpath[1]}/_ingest-wizard"

Fish:
  $ ingest-wizard completion fish > ~/.config/fish/completions/ingest-wizard.fish

PowerShell:
  PS> ingest-wizard completion powershell | Out-String | Invoke-Expression
`,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.ExactArgs(1),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	})
}

// settings is the configuration after flags are applied.
type settings struct {
	*config.Config
	profile config.Profile
}

// loadSettings resolves config file, environment and flags.
func loadSettings(cmd *cobra.Command) (*settings, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, &wizard.ValidationError{Message: err.Error()}
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = backendFlag
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeoutFlag
	}
	if flags.Changed("log-dir") {
		cfg.LogDir = logDirFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, &wizard.ValidationError{Message: err.Error()}
	}

	p, err := cfg.Profile(profileFlag)
	if err != nil {
		return nil, &wizard.ValidationError{Message: err.Error()}
	}
	return &settings{Config: cfg, profile: p}, nil
}

func (s *settings) client() *backend.Client {
	return backend.NewClient(s.Backend, backend.WithTimeout(s.Timeout))
}

// initialState is a fresh wizard with the configured kinds, delimiter and
// profile applied.
func (s *settings) initialState() wizard.State {
	source, target := s.Kinds()
	conn := s.profile.Connection()

	st := wizard.New()
	for _, a := range []wizard.Action{
		wizard.SetSource{Kind: source},
		wizard.SetTarget{Kind: target},
		wizard.SetField{Field: wizard.FieldHost, Value: conn.Host},
		wizard.SetField{Field: wizard.FieldPort, Value: conn.Port},
		wizard.SetField{Field: wizard.FieldDatabase, Value: conn.Database},
		wizard.SetField{Field: wizard.FieldUser, Value: conn.User},
		wizard.SetField{Field: wizard.FieldToken, Value: conn.Token},
		wizard.SetField{Field: wizard.FieldDelimiter, Value: s.Delimiter},
	} {
		st, _ = wizard.Dispatch(st, a)
	}
	return st
}

// signalContext is cancelled on interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runWizard(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	session := openSession(s.LogDir, "wizard")
	defer session.Close()
	session.Info("starting wizard", "backend", s.Backend, "profile", s.profile.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := s.client()
	m := NewWizardModel(s.initialState(), wizardDeps{
		ctx:         ctx,
		driver:      workflow.NewDriver(client, session.Logger),
		files:       client,
		downloadURL: client.DownloadURL,
		downloadDir: ".",
		backendURL:  client.BaseURL(),
		logger:      session.Logger,
	})

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		session.LogResult(m.State(), err)
		return fmt.Errorf("wizard: %w", err)
	}
	if fm, ok := final.(WizardModel); ok {
		session.LogResult(fm.State(), nil)
		if r := fm.State().Result; r != nil {
			fmt.Printf("%s\n", wizardSuccessStyle.Render(fmt.Sprintf("✓ %s", r.Message)))
			if r.Filename != "" {
				fmt.Printf("  Download: %s\n", client.DownloadURL(r.Filename))
			}
		}
	}
	return nil
}
