// Command stepchat walks through a recipe one step at a time, by chat.
//
// Usage:
//
//	stepchat chat [--sample]      terminal chat
//	stepchat telegram             Telegram bot
//	stepchat mcp [--addr :8080]   MCP tool endpoint
//	stepchat serve                Telegram bot and MCP endpoint together
//	stepchat parse <url>          print a parsed recipe as JSON
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	envFile    string
	logFile    string
	verbose    bool
	quiet      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "stepchat",
		Short: "Walk through a recipe one step at a time, by chat",
		Long: `stepchat reads a recipe from an AllRecipes URL and answers questions
about it while you cook: "next", "go to step 3", "how much butter?",
"how long do I bake this?".

It runs as a terminal chat, a Telegram bot, or an MCP tool endpoint.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "stepchat.yaml", "YAML config file (optional)")
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file with credentials (optional)")
	pf.StringVar(&flags.logFile, "log-file", "", "file to write logs to (\"stderr\" for the console)")
	pf.BoolVar(&flags.verbose, "verbose", false, "enable debug logging")
	pf.BoolVar(&flags.quiet, "quiet", false, "disable all logging")

	rootCmd.AddCommand(
		newChatCmd(flags),
		newTelegramCmd(flags),
		newMCPCmd(flags),
		newServeCmd(flags),
		newParseCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "stepchat version %s\n", version)
			},
		},
	)
	return rootCmd
}
