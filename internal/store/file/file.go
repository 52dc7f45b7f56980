// Package file implements the standalone-mode document store: one JSON file
// per record under a kind-named directory. Writes are atomic (temp file +
// rename). There are no cross-document transactions.
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nextlevelbuilder/leadclaw/internal/store"
)

// NewStores creates all stores rooted at dir.
func NewStores(dir string) (*store.Stores, error) {
	for _, kind := range []string{"tenants", "channels", "campaigns", "leads", "agents"} {
		if err := os.MkdirAll(filepath.Join(dir, kind), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	cursors, err := newCursorFile(filepath.Join(dir, "cursors.json"))
	if err != nil {
		return nil, err
	}

	return &store.Stores{
		Tenants:   &tenantStore{docs: docDir{filepath.Join(dir, "tenants")}},
		Channels:  &channelStore{docs: docDir{filepath.Join(dir, "channels")}},
		Campaigns: &campaignStore{docs: docDir{filepath.Join(dir, "campaigns")}},
		Leads:     &leadStore{docs: docDir{filepath.Join(dir, "leads")}},
		Roster:    &rosterStore{docs: docDir{filepath.Join(dir, "agents")}},
		Cursors:   cursors,
	}, nil
}

// docDir reads and writes JSON documents in one directory.
type docDir struct {
	dir string
}

func sanitizeKey(key string) string {
	key = strings.ReplaceAll(key, ":", "_")
	key = strings.ReplaceAll(key, "|", "_")
	key = strings.ReplaceAll(key, "/", "_")
	return key
}

func (d docDir) path(key string) string {
	return filepath.Join(d.dir, sanitizeKey(key)+".json")
}

// read unmarshals the document for key into v. Returns store.ErrNotFound
// for a missing document.
func (d docDir) read(key string, v interface{}) error {
	data, err := os.ReadFile(d.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// write persists v atomically: temp file, fsync, rename.
func (d docDir) write(key string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(d.dir, "doc-*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	tmp.Close()

	if err := os.Rename(tmpPath, d.path(key)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	cleanup = false
	return nil
}

// each calls fn with the raw bytes of every document in the directory.
// Unreadable or malformed documents are skipped.
func (d docDir) each(fn func(data []byte)) error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", d.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(d.dir, e.Name()))
		if err != nil {
			continue
		}
		fn(data)
	}
	return nil
}
