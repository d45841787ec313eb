package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "coffer",
	Short:   "Coffer is an encrypted key-value store",
	Version: Version,
	Long: `An encrypted key-value store for secrets, tokens and other sensitive data.
Values are sealed with AES-256-GCM and kept in a local database file.
Complete documentation is available at https://github.com/cofferlabs/coffer`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
