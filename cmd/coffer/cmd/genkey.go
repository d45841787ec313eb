package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cofferlabs/coffer/crypto"
)

var genkeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "Generate a new 256-bit key in exportable form",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := crypto.GenerateKey()
		if err != nil {
			return err
		}
		defer key.Wipe()

		encoded, err := crypto.ExportKey(key)
		if err != nil {
			return err
		}
		fmt.Println(encoded)
		fmt.Fprintln(os.Stderr, color.CyanString("→")+" export "+color.YellowString("COFFER_KEY")+"=<key> to use it")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(genkeyCmd)
}
