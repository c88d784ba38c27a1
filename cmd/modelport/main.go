package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modelport/modelport/internal/commands"
)

// Version is set at build time via -ldflags "-X main.Version=X.Y.Z"
var Version = "0.0.0-dev"

var rootCmd = &cobra.Command{
	Use:   "modelport",
	Short: "modelport - Serve local models on a public URL",
	Long: `modelport starts a local Ollama server, pulls your models, and publishes
the API on a public ngrok URL: one command from cold machine to shareable
endpoint.

Quick Start:
  modelport auth <token>     Store your ngrok authtoken (first time)
  modelport add qwen2.5:14b  Add models to the pull list
  modelport up               Serve, pull, and publish

Commands:
  up              Start server, pull models, open tunnel, idle until Ctrl+C
  pull [model..]  Run the pull stage alone
  add/remove      Manage the ordered pull list
  list            Show configured models and install state
  auth <token>    Store the tunnel authtoken
  status          Show config and server status
  doctor          Preflight: binaries and host memory

Config: ~/.modelport/config.yaml
Logs:   ~/.modelport/logs/`,
	Version: Version,
}

func init() {
	rootCmd.AddCommand(commands.UpCmd)
	rootCmd.AddCommand(commands.PullCmd)
	rootCmd.AddCommand(commands.AddCmd)
	rootCmd.AddCommand(commands.RemoveCmd)
	rootCmd.AddCommand(commands.ListCmd)
	rootCmd.AddCommand(commands.AuthCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.DoctorCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
