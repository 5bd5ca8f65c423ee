package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev" // Overwritten at build time

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{getenv: os.Getenv}
	rootCmd := &cobra.Command{
		Use:   "bizdiag",
		Short: "Strategic business diagnosis from the terminal",
		Long: `bizdiag walks a business symptom through diagnosis, process redesign and
impact estimation, and manages the resulting case repository.

It shares storage settings with the gateway (STORAGE_BACKEND, STORAGE_PATH,
DATABASE_URL) so cases saved here show up there and vice versa.`,
		SilenceUsage: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.storage, "storage", "", "storage backend (memory, file, sqlite, postgres)")
	pf.StringVar(&opts.storagePath, "storage-path", "", "file or sqlite storage location")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newDiagnoseCmd(opts),
		newCasesCmd(opts),
		newHistoryCmd(opts),
		newTodoCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bizdiag %s\n", version)
		},
	}
}
