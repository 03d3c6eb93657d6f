// Package store owns the persisted state: the synced order cache, the
// manual order store, the completion log and the user-curated sequence,
// each a single JSON document guarded by its own mutex, plus the
// optional SQL completion-event archive.
//
// Cross-store atomicity is not guaranteed; the tracker's reconciliation
// pass tolerates a crash between two saves.
package store

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// readJSONFile decodes path into v. Returns false when the file does
// not exist yet.
func readJSONFile(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, eris.Wrapf(err, "store: read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, eris.Wrapf(err, "store: decode %s", path)
	}
	return true, nil
}

// writeJSONFile writes v to path atomically (tmp file + rename) so a
// crash mid-write never leaves a truncated document. Unicode is kept
// unescaped to match the historical on-disk format.
func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "store: create dir for %s", path)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrapf(err, "store: encode %s", path)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return eris.Wrapf(err, "store: write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrapf(err, "store: rename %s", tmp)
	}
	return nil
}
