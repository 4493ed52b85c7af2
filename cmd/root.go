package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/bizgateway/internal/config"
	"github.com/teemow/bizgateway/internal/logging"
)

// Service identity reported by the status endpoints and the MCP handshake.
const (
	serviceName  = "bizgateway"
	serviceTitle = "Business Integration Gateway"
)

// Global flags shared by all subcommands.
var (
	configFile string
	envFiles   []string
	debugMode  bool
	logFormat  string
)

// rootCmd represents the base command for the bizgateway application
var rootCmd = &cobra.Command{
	Use:   "bizgateway",
	Short: "MCP gateway to the business mailbox, calendar, property and SDA admin data",
	Long: `bizgateway exposes business operations as MCP tools for AI assistants:
reading and triaging the mailbox, today's calendar, property listings, SDA
administration data, NDIA batch generation, email and SMS.

It can run as:
  - An MCP server over HTTP with a server-sent event stream (default)
  - An MCP server over stdio
  - A one-shot inbox triage from the command line`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.New(os.Stderr, logFormat, debugMode)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)

		if err := config.LoadDotEnv(envFiles...); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
		return nil
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "bizgateway version %s\n" .Version}}`)

	// If no subcommand is provided, run the server by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.Getenv("BIZGATEWAY_CONFIG"), "Path to a YAML config file. Can also use BIZGATEWAY_CONFIG env var.")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Env files to load before reading the environment (default: .env)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "Log format: text or json")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newTriageCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
