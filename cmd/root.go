// Package cmd implements the gateway's command-line surface: serving the
// HTTP dispatcher, and inspecting a resolved profile's tools and prompts
// without standing up a server. Grounded on the teacher's cmd package
// structure (one file per subcommand, a shared rootCmd in root.go).
package cmd

import (
	"os"

	"mcpgateway/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid config, connection failure).
	ExitCodeError = 1
)

// defaultConfigPath is the fallback config file location for every
// subcommand's --config flag.
const defaultConfigPath = "gateway.yaml"

// debug enables verbose logging across every subcommand.
var debug bool

// rootCmd is the base command for the gateway binary.
var rootCmd = &cobra.Command{
	Use:   "mcpgateway",
	Short: "A single MCP endpoint that aggregates multiple upstream MCP servers into curated profiles",
	Long: `mcpgateway resolves named profiles — curated selections of tools and
prompts drawn from one or more upstream MCP servers, or from other profiles —
and serves each one as a single streaming-HTTP MCP endpoint.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			logging.InitForCLI(logging.LevelDebug, os.Stdout)
		}
	},
}

// SetVersion sets the version reported by "mcpgateway version" and
// "mcpgateway --version".
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the CLI entry point, called from main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mcpgateway version %s\n" .Version}}`)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable verbose logging")
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newListToolsCmd())
	rootCmd.AddCommand(newListPromptsCmd())
	rootCmd.AddCommand(newCallCmd())
}
