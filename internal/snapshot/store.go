package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound signals that no prior snapshot exists for an entity. It is a
// control-flow signal (the bootstrap case), not a failure.
var ErrNotFound = errors.New("snapshot not found")

// Store persists one snapshot file per tracked entity under a single
// directory. Writes are full replacements: identities absent from the new
// snapshot are dropped, which is what makes removals detectable.
type Store struct {
	dir string
}

// NewStore points the store at its snapshots directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the snapshot file location for an entity key.
func (s *Store) Path(entityKey string) string {
	return filepath.Join(s.dir, entityKey+".json")
}

// Load reads the stored snapshot for an entity, or ErrNotFound.
func (s *Store) Load(entityKey string) (*Snapshot, error) {
	raw, err := os.ReadFile(s.Path(entityKey))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read snapshot %s: %w", entityKey, err)
	}

	snap := New()
	if err := json.Unmarshal(raw, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", entityKey, err)
	}

	return snap, nil
}

// Save atomically replaces the entity's snapshot: the content is written to
// a temporary file in the same directory and renamed into place, so a crash
// mid-write never leaves a truncated snapshot at the final path.
func (s *Store) Save(entityKey string, snap *Snapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshots dir: %w", err)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", entityKey, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+entityKey+"-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot %s: %w", entityKey, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.Path(entityKey)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace snapshot %s: %w", entityKey, err)
	}

	return nil
}

// List reports the tracked-identity count per entity key, for status views.
func (s *Store) List() (map[string]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	result := map[string]int{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key := strings.TrimSuffix(name, ".json")
		snap, err := s.Load(key)
		if err != nil {
			continue
		}
		result[key] = snap.Len()
	}

	return result, nil
}
