package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/cofferlabs/coffer/crypto"
	"github.com/cofferlabs/coffer/internal/config"
	"github.com/cofferlabs/coffer/keep"
	"github.com/cofferlabs/coffer/storage/bolt"
)

// openStore assembles an initialized store from the environment
// configuration. The returned closer discards the key and releases the
// database file.
func openStore(ctx context.Context) (*keep.Store, func(), error) {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	backend, err := bolt.Open(cfg.DBPath, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store database: %w", err)
	}

	store := keep.New(keep.WithDurable(backend), keep.WithLogger(logger))
	closeStore := func() {
		store.Destroy()
		_ = backend.Close()
	}

	keyCfg, err := keyConfig(cfg)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	if err := store.Initialize(ctx, keyCfg); err != nil {
		closeStore()
		return nil, nil, err
	}
	return store, closeStore, nil
}

// keyConfig maps the environment configuration onto a key mode. A password
// wins over an exported key; with neither set, a throwaway session key is
// generated and values stored encrypted are unreadable by later runs.
func keyConfig(cfg *config.Config) (keep.Config, error) {
	switch {
	case cfg.Password != "":
		return keep.Config{
			Mode:       keep.KeyModePassword,
			Password:   cfg.Password,
			Iterations: cfg.Iterations,
		}, nil
	case cfg.Key != "":
		key, err := crypto.ImportKey(cfg.Key)
		if err != nil {
			return keep.Config{}, fmt.Errorf("COFFER_KEY is not a valid exported key: %w", err)
		}
		return keep.Config{Mode: keep.KeyModeProvided, Key: key}, nil
	default:
		fmt.Fprintln(os.Stderr, color.YellowString("!")+" no COFFER_PASSWORD or COFFER_KEY set, using a throwaway session key")
		return keep.Config{Mode: keep.KeyModeSession}, nil
	}
}
