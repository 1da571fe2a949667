// Package cmd contains the command-line interface (CLI) definitions and execution logic for Lookout.
// It provides the root command and the check and serve subcommands, wiring the runtime image lister,
// the registry client, metrics, notifications and the HTTP API around the update orchestrator.
//
// Key components:
//   - rootCmd: Global flags, logging and configuration loading.
//   - check: Runs one update check and prints the report.
//   - serve: Serves cached and on-demand reports over HTTP, optionally on a schedule.
//
// Usage examples:
//   - Run the CLI from main.go:
//     cmd.Execute()
//   - Check every local image and two extra references:
//     lookout check nginx:latest ghcr.io/org/app:1 --icons
//   - Serve the API with an hourly refresh:
//     lookout serve --schedule "@every 1h" --api-token /run/secrets/token
package cmd
