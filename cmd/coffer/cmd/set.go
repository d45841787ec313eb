package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cofferlabs/coffer/keep"
)

var (
	setTTL     time.Duration
	setVersion int
	setPlain   bool
)

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a value under a key",
	Long: `Store a value under a key. The value is parsed as JSON when possible,
otherwise it is stored as a plain string.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		var opts []keep.Option
		if setTTL > 0 {
			opts = append(opts, keep.WithTTL(setTTL))
		}
		if cmd.Flags().Changed("version") {
			opts = append(opts, keep.WithVersion(setVersion))
		}
		if setPlain {
			opts = append(opts, keep.WithoutEncryption())
		}

		if err := store.Set(cmd.Context(), args[0], parseValue(args[1]), opts...); err != nil {
			return err
		}
		fmt.Println(color.GreenString("✓") + " stored " + color.YellowString(args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setCmd)
	setCmd.Flags().DurationVar(&setTTL, "ttl", 0, "Expire the value after this duration (e.g. 30m, 24h)")
	setCmd.Flags().IntVar(&setVersion, "version", 0, "Tag the value with a version number")
	setCmd.Flags().BoolVar(&setPlain, "plain", false, "Store the value without encryption")
}
