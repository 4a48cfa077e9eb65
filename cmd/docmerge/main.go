package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "docmerge",
		Short: "docmerge - expand DOCX and XML templates",
		Long: `docmerge fills document templates with data. Loops are unrolled,
conditionals pruned and {{placeholders}} replaced, in DOCX packages or
plain XML files.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error, off)")

	rootCmd.AddCommand(newExpandCommand())
	rootCmd.AddCommand(newCommandsCommand())
	rootCmd.AddCommand(newMetadataCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
