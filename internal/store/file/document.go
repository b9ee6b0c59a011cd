// Package file implements the JSON-document stores used in standalone mode.
//
// Every store follows the same read-modify-write cycle: the document is read
// from disk at the start of each operation, mutated in memory, and fully
// rewritten before the operation returns. There is no append log and no
// partial patch format. Two processes writing the same document race with
// last-write-wins semantics.
package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// loadDocument decodes the JSON document at path into v.
// A missing or unreadable file leaves v untouched so callers see an empty store.
// A file that does not decode is renamed to <path>.corrupt-<utc stamp> so the
// next save cannot overwrite it.
func loadDocument(name, path string, v any) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn(name+": failed to read store, using empty document", "path", path, "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		aside := path + ".corrupt-" + time.Now().UTC().Format("20060102T150405.000000000Z")
		if rerr := os.Rename(path, aside); rerr != nil {
			slog.Error(name+": corrupt store, could not move it aside", "path", path, "error", err, "rename_error", rerr)
			return
		}
		slog.Error(name+": corrupt store moved aside, using empty document", "path", path, "moved_to", aside, "error", err)
	}
}

// saveDocument rewrites the whole document at path.
func saveDocument(name, path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		slog.Error(name+": failed to create dir", "error", err)
		return fmt.Errorf("create store dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		slog.Error(name+": failed to marshal store", "error", err)
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		slog.Error(name+": failed to write store", "error", err)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		slog.Error(name+": failed to replace store", "error", err)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// fileSafe maps a workspace id onto a filename fragment.
func fileSafe(s string) string {
	return unsafeFileChars.ReplaceAllString(s, "-")
}
