package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cofferlabs/coffer/keep"
)

var getVersion int

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Retrieve a stored value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		var opts []keep.Option
		if cmd.Flags().Changed("version") {
			opts = append(opts, keep.WithVersion(getVersion))
		}

		var value json.RawMessage
		found, err := store.Get(cmd.Context(), args[0], &value, opts...)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%q not found", args[0])
		}
		fmt.Println(formatValue(value))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().IntVar(&getVersion, "version", 0, "Require this version tag; mismatches remove the value")
}
