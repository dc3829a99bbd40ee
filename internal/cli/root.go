// Package cli wires the cobra command tree: the chat REPL, the MCP tool
// server, and version.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version is stamped at build time.
var Version = "dev"

// rootOptions holds flags shared by all subcommands.
type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCmd creates the querypilot root command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "querypilot",
		Short: "Conversational SQL assistant for SQLite",
		Long: `querypilot turns natural-language requests into SQL and runs them
against SQLite databases through a fixed tool catalog.

Available subcommands:
  chat     Start an interactive chat session
  serve    Run the tool catalog as an MCP stdio server
  version  Print the version`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(opts.verbose)
		},
	}

	addRootFlags(cmd.PersistentFlags(), opts)

	cmd.AddCommand(newChatCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func addRootFlags(flags *pflag.FlagSet, opts *rootOptions) {
	flags.StringVar(&opts.configPath, "config", "", "Path to config file (default: ./querypilot.yaml)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "querypilot %s\n", Version)
		},
	}
}
