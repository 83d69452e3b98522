package snapshot

import (
	"encoding/json"
	"fmt"
)

// CurrentVersion is the snapshot layout this package writes.
//
//   - 1: {"styles": [...], "settings": [...]}, no version field.
//   - 2: adds "whitelist" and "version".
const CurrentVersion = 2

// document is the on-disk layout. Every table is a list of [key, value]
// pairs keyed by the guild id string.
type document struct {
	Version   int                     `json:"version"`
	Styles    []pair[string]          `json:"styles"`
	Settings  []pair[settingsRecord]  `json:"settings"`
	Whitelist []pair[whitelistRecord] `json:"whitelist"`
}

type settingsRecord struct {
	Space string `json:"space,omitempty"`
	Type  string `json:"type,omitempty"`
}

type whitelistRecord struct {
	AddedBy      string `json:"addedBy"`
	AddedAt      int64  `json:"addedAt"`   // unix ms
	ExpiresAt    int64  `json:"expiresAt"` // unix ms
	DurationDays int    `json:"durationDays"`
}

type pair[V any] struct {
	Key   string
	Value V
}

func (p pair[V]) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Key, p.Value})
}

func (p *pair[V]) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("expected a [key, value] pair, got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Key); err != nil {
		return fmt.Errorf("pair key: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Value); err != nil {
		return fmt.Errorf("pair value: %w", err)
	}
	return nil
}

// migrations upgrade a raw document from the version in the key to the next
// one.
var migrations = map[int]func(doc map[string]json.RawMessage){
	1: func(doc map[string]json.RawMessage) {
		if _, ok := doc["whitelist"]; !ok {
			doc["whitelist"] = json.RawMessage("[]")
		}
	},
}

func documentVersion(doc map[string]json.RawMessage) (int, error) {
	raw, ok := doc["version"]
	if !ok {
		return 1, nil
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("invalid version field: %w", err)
	}
	if v < 1 {
		return 0, fmt.Errorf("invalid version %d", v)
	}
	return v, nil
}

func migrate(doc map[string]json.RawMessage, from int) {
	for v := from; v < CurrentVersion; v++ {
		if m, ok := migrations[v]; ok {
			m(doc)
		}
	}
}
