// Package ledger persists the set of announcement identifiers that
// have already been delivered.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// stateFile is the on-disk shape. Order inside processed reflects
// commit order, which keeps diffs readable.
type stateFile struct {
	Processed []string `json:"processed"`
}

// FileLedger stores processed identifiers in a JSON file. Every commit
// is persisted immediately through a temp-file rename, so a crash
// between items never loses a committed id.
type FileLedger struct {
	mu    sync.Mutex
	path  string
	ids   map[string]struct{}
	order []string
}

// OpenFile loads the ledger at path, creating an empty one when the
// file does not exist yet.
func OpenFile(path string) (*FileLedger, error) {
	l := &FileLedger{path: path, ids: make(map[string]struct{})}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", path, err)
	}

	var state stateFile
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode ledger %s: %w", path, err)
	}
	for _, id := range state.Processed {
		if _, dup := l.ids[id]; dup {
			continue
		}
		l.ids[id] = struct{}{}
		l.order = append(l.order, id)
	}
	return l, nil
}

// Contains reports whether id was already committed.
func (l *FileLedger) Contains(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[id]
	return ok, nil
}

// Commit records id and persists. Recommitting a known id is a no-op.
func (l *FileLedger) Commit(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.ids[id]; ok {
		return nil
	}
	l.ids[id] = struct{}{}
	l.order = append(l.order, id)
	return l.persistLocked()
}

// persistLocked writes the state through a sibling temp file and
// renames it into place. Callers hold l.mu.
func (l *FileLedger) persistLocked() error {
	data, err := json.MarshalIndent(stateFile{Processed: l.order}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("ledger temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close ledger temp: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace ledger %s: %w", l.path, err)
	}
	return nil
}
