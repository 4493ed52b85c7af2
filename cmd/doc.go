// Package cmd implements the command-line interface for bizgateway.
//
// This package provides the following commands:
//   - serve: Start the MCP server over HTTP (server-sent events) or stdio
//   - triage: Classify the newest inbox messages once and print the result
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
//
// Settings are resolved in this order, later sources winning: built-in
// defaults, the YAML file given by --config, .env files, the process
// environment and finally command-line flags.
package cmd
