package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <key>",
	Short: "Remove a stored value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		if err := store.Remove(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println(color.GreenString("✓") + " removed " + color.YellowString(args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
