package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"testprobe/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid configuration).
	ExitCodeError = 1
)

// configPath is the directory config.LoadConfig reads config.yaml from.
// Empty means the current working directory.
var configPath string

// debug enables verbose (debug-level) logging across the probe.
var debug bool

// rootCmd is the entry point for the probe CLI.
var rootCmd = &cobra.Command{
	Use:   "testprobe",
	Short: "Orchestrate end-to-end Kafka test scenarios",
	Long: `testprobe drives end-to-end test scenarios against Kafka: it stages
Gherkin features and a topic directive from object storage, resolves
per-topic credentials through a vault pipeline, starts producer and
consumer streams, and runs the scenarios to completion.

Use 'testprobe serve' to start the queue controller's HTTP front door.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the CLI's entry point, called from main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "testprobe version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "directory containing config.yaml (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug-level logging")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if debug {
			level = logging.LevelDebug
		}
		logging.InitForCLI(level, os.Stderr)
	}

	rootCmd.AddCommand(newVersionCmd())
}
