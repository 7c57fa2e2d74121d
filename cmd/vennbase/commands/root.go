// Package commands implements the vennbase CLI: one cobra subcommand
// per operation against a database directory.
package commands

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vennbase",
	Short: "Content-addressed binary blob store",
	Long: `vennbase stores arbitrary media records, grouped into partitions by
MIME type, behind a line-oriented TCP protocol.

Use "vennbase [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fsckCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(dedupeCmd)
}
