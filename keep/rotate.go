package keep

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cofferlabs/coffer/internal/util"
)

// RotateKey re-encrypts every live entry in the selected tier under a new
// key established from cfg, preserving each entry's metadata. Entries that
// are expired or unreadable under the outgoing key are dropped, and
// entries stored in clear are carried over unchanged.
//
// Rotation is not atomic. If a rewrite fails partway, entries already
// rewritten are readable under the new key and the remainder will fall out
// lazily on read. The store is left on the new key either way, so
// encrypted entries in tiers outside the selected one become unreadable
// unless they are rotated too.
func (s *Store) RotateKey(ctx context.Context, cfg Config, opts ...Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o := applyOptions(opts)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	backend := s.backendFor(o.storage)

	namespaced, err := s.ownedKeysLocked(backend)
	if err != nil {
		return err
	}

	type entry struct {
		key  string
		item storedItem
		raw  json.RawMessage
	}
	entries := make([]entry, 0, len(namespaced))
	defer func() {
		for _, e := range entries {
			util.WipeBytes(e.raw)
		}
	}()
	for _, nk := range namespaced {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := logicalKey(nk)
		item, raw, ok := s.readItemLocked(backend, key, callOptions{})
		if !ok {
			continue
		}
		entries = append(entries, entry{key: key, item: *item, raw: raw})
	}

	if err := s.initializeLocked(cfg); err != nil {
		return fmt.Errorf("rotating key: %w", err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := s.sealItemLocked(&e.item, e.raw)
		if err != nil {
			return fmt.Errorf("resealing %q: %w", e.key, err)
		}
		if err := backend.Set(namespacedKey(e.key), string(data)); err != nil {
			return fmt.Errorf("rewriting %q: %w", e.key, err)
		}
	}
	return nil
}
