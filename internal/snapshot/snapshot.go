package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Snapshot is the last-observed mapping from document identity to its
// human-readable label for one entity. Insertion order is preserved so that
// change reports list filings in the order the source returned them; the
// serialized form stays a plain JSON object, compatible with snapshot files
// written by earlier versions.
type Snapshot struct {
	ids    []string
	labels map[string]string
}

// New returns an empty snapshot.
func New() *Snapshot {
	return &Snapshot{labels: map[string]string{}}
}

// Set records an identity with its label. Re-setting an existing identity
// updates the label but keeps the original position.
func (s *Snapshot) Set(id, label string) {
	if s.labels == nil {
		s.labels = map[string]string{}
	}
	if _, ok := s.labels[id]; !ok {
		s.ids = append(s.ids, id)
	}
	s.labels[id] = label
}

// Has reports whether the identity is present.
func (s *Snapshot) Has(id string) bool {
	_, ok := s.labels[id]
	return ok
}

// Label returns the label stored for an identity.
func (s *Snapshot) Label(id string) string {
	return s.labels[id]
}

// Len is the number of tracked identities.
func (s *Snapshot) Len() int {
	return len(s.ids)
}

// IDs returns identities in insertion order.
func (s *Snapshot) IDs() []string {
	return s.ids
}

// MarshalJSON writes the snapshot as a JSON object in insertion order.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range s.ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(s.labels[id])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping the key order found in the file.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	s.ids = nil
	s.labels = map[string]string{}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read snapshot object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("snapshot must be a JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read snapshot key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("snapshot key is not a string: %v", keyTok)
		}

		var label string
		if err := dec.Decode(&label); err != nil {
			return fmt.Errorf("read label for %s: %w", key, err)
		}

		s.Set(key, label)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("close snapshot object: %w", err)
	}

	return nil
}
