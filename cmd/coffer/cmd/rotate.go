package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cofferlabs/coffer/crypto"
	"github.com/cofferlabs/coffer/keep"
)

var (
	rotatePassword   string
	rotateKeyStr     string
	rotateSession    bool
	rotateIterations int
)

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Re-encrypt all stored values under a new key",
	Long: `Re-encrypt all stored values under a new key. The store is opened with
the current COFFER_PASSWORD or COFFER_KEY, then every readable entry is
rewritten under the key selected by the flags. Update the environment to
match afterwards or the rewritten entries will not be readable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := rotateTarget()
		if err != nil {
			return err
		}

		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		if err := store.RotateKey(cmd.Context(), target); err != nil {
			return err
		}
		fmt.Println(color.GreenString("✓") + " key rotated, entries re-encrypted")
		if target.Mode != keep.KeyModeSession {
			fmt.Println(color.CyanString("→") + " update " + color.YellowString("COFFER_PASSWORD") + " or " + color.YellowString("COFFER_KEY") + " to match the new key")
		}
		return nil
	},
}

func rotateTarget() (keep.Config, error) {
	switch {
	case rotatePassword != "":
		return keep.Config{
			Mode:       keep.KeyModePassword,
			Password:   rotatePassword,
			Iterations: rotateIterations,
		}, nil
	case rotateKeyStr != "":
		key, err := crypto.ImportKey(rotateKeyStr)
		if err != nil {
			return keep.Config{}, fmt.Errorf("--key is not a valid exported key: %w", err)
		}
		return keep.Config{Mode: keep.KeyModeProvided, Key: key}, nil
	case rotateSession:
		return keep.Config{Mode: keep.KeyModeSession}, nil
	default:
		return keep.Config{}, errors.New("specify --password, --key or --session for the new key")
	}
}

func init() {
	rootCmd.AddCommand(rotateCmd)
	rotateCmd.Flags().StringVar(&rotatePassword, "password", "", "Derive the new key from this password")
	rotateCmd.Flags().StringVar(&rotateKeyStr, "key", "", "Use this exported key (base64)")
	rotateCmd.Flags().BoolVar(&rotateSession, "session", false, "Use a throwaway session key")
	rotateCmd.Flags().IntVar(&rotateIterations, "iterations", 0, "PBKDF2 iteration count for --password (0 uses the default)")
}
