// Package cli provides the command-line interface for sidekick.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/raphaelgruber/sidekick/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configPath string
	dryRun     bool
)

// rootCmd runs the chat loop when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "sidekick",
	Short: "Conversational tracker for people, tasks and topics",
	Long: `Sidekick is a chat assistant that turns a conversation into structured
records. Describe who you work with, what needs doing and what you are
working on; once the assistant has the details it saves them to your
people, tasks and topics collections.

Type "exit" to quit. Unsaved conversation is discarded on exit.`,
	Version:       Version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print token usage per round and a summary on exit")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the config file")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "work on an in-memory copy of the records")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
