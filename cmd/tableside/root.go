package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every command
type rootOptions struct {
	configFile string
	envFile    string
	apiURL     string
	token      string
	dataDir    string
	storage    string
	logLevel   string
	logJSON    bool
	format     string
}

var validFormats = []string{"text", "json"}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tableside",
		Short: "Tableside - serving reservations and pending orders",
		Long: `Tableside keeps a restaurant's in-progress reservations in view and lets
staff add dishes, confirm them once served, or cancel them.

Added dishes are recorded in a local journal and shown immediately,
before the back office has acknowledged them.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.format, validFormats)
		},
	}

	cmd.SetVersionTemplate(fmt.Sprintf(
		"Tableside version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "YAML config file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with TABLESIDE_* variables")
	flags.StringVar(&opts.apiURL, "api-url", "", "API base URL (overrides config)")
	flags.StringVar(&opts.token, "token", "", "API bearer token (overrides config)")
	flags.StringVar(&opts.dataDir, "data-dir", "", "directory holding the journal database (overrides config)")
	flags.StringVar(&opts.storage, "storage", "", "journal backend: bolt, redis or memory (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	flags.BoolVar(&opts.logJSON, "log-json", false, "log as JSON (overrides config)")
	flags.StringVar(&opts.format, "format", "text", "output format (text|json)")

	cmd.AddCommand(newServingCmd(opts))
	cmd.AddCommand(newAddCmd(opts))
	cmd.AddCommand(newConfirmCmd(opts))
	cmd.AddCommand(newCancelCmd(opts))
	cmd.AddCommand(newPendingCmd(opts))
	cmd.AddCommand(newMenuCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Tableside version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
		},
	}
}
