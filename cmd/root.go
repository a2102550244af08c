package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/calgateway/internal/logging"
)

// rootCmd represents the base command for the calgateway application
var rootCmd = &cobra.Command{
	Use:   "calgateway",
	Short: "Authenticated gateway to a hosted calendar API",
	Long: `calgateway talks to a hosted calendar API on behalf of its callers. It
obtains a bearer credential with the configured client id and secret, keeps
it cached and refreshes it shortly before it expires.

It can run as:
  - An MCP (Model Context Protocol) server for AI assistants
  - A CLI for listing, creating, exporting and importing events`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

// version will be set by main
var version = "dev"

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath   string
	baseURL      string
	clientID     string
	clientSecret string
	logLevel     string
	logFormat    string
}

var globals globalOptions

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "calgateway version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globals.configPath, "config", "", "Config file (.toml, .yaml or .yml). Defaults to ./calgateway.{toml,yaml,yml} or the user config dir.")
	flags.StringVar(&globals.baseURL, "base-url", "", "Upstream API base URL. Can also use CALENDAR_BASE_URL env var.")
	flags.StringVar(&globals.clientID, "client-id", "", "Upstream client id. Can also use CALENDAR_CLIENT_ID env var.")
	flags.StringVar(&globals.clientSecret, "client-secret", "", "Upstream client secret. Can also use CALENDAR_CLIENT_SECRET env var.")
	flags.StringVar(&globals.logLevel, "log-level", "info", "Log level: debug, info, warn or error. Can also use LOG_LEVEL env var.")
	flags.StringVar(&globals.logFormat, "log-format", logging.FormatText, "Log format: text or json. Can also use LOG_FORMAT env var.")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// setupLogging installs the process-wide logger. Logs always go to stderr
// so stdout stays free for command output and the stdio transport.
func setupLogging(cmd *cobra.Command, _ []string) error {
	opts := logging.Options{Level: globals.logLevel, Format: globals.logFormat}
	if !cmd.Flags().Changed("log-level") {
		if v := os.Getenv("LOG_LEVEL"); v != "" {
			opts.Level = v
		}
	}
	if !cmd.Flags().Changed("log-format") {
		if v := os.Getenv("LOG_FORMAT"); v != "" {
			opts.Format = v
		}
	}

	_, err := logging.Setup(os.Stderr, opts)
	return err
}
