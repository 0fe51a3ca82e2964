package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DecodeSnapshot parses a JSON object into a Snapshot. Numbers are kept as
// json.Number so large ids survive. Empty input and JSON null yield nil.
func DecodeSnapshot(raw []byte) (Snapshot, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var s Snapshot
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

// DecodeRelated parses a JSON object of side-loaded snapshots keyed by
// relation. Unknown keys and null values are dropped. A relation that is not
// an object is reported in the error while the others are still returned.
func DecodeRelated(raw []byte) (map[Relation]Snapshot, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var parts map[string]json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, fmt.Errorf("decode related: %w", err)
	}
	out := make(map[Relation]Snapshot, len(parts))
	var errs []error
	for key, part := range parts {
		rel := Relation(key)
		if !rel.IsValid() {
			continue
		}
		snap, err := DecodeSnapshot(part)
		if err != nil {
			errs = append(errs, fmt.Errorf("related %s: %w", key, err))
			continue
		}
		if snap != nil {
			out[rel] = snap
		}
	}
	return out, errors.Join(errs...)
}
