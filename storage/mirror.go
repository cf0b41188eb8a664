package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go-health-certificates/models"
)

const (
	mirrorRecordsKey = "certificates"
	mirrorStatsKey   = "certificateStats"
)

// LocalMirror is the best-effort fallback store: a single JSON file holding
// a serialized record list under a fixed key. It is process-local and is
// never reconciled with the remote store.
type LocalMirror struct {
	path  string
	mutex sync.Mutex
}

func NewLocalMirror(path string) *LocalMirror {
	return &LocalMirror{path: path}
}

func (m *LocalMirror) load() (map[string]json.RawMessage, error) {
	payload, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mirror file: %w", err)
	}

	entries := map[string]json.RawMessage{}
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse mirror file: %w", err)
	}
	return entries, nil
}

func (m *LocalMirror) store(key string, value any) error {
	entries, err := m.load()
	if err != nil {
		// A corrupt mirror file is not worth failing a write over,
		// start over with a fresh one.
		entries = map[string]json.RawMessage{}
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal mirror entry %s: %w", key, err)
	}
	entries[key] = payload

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal mirror file: %w", err)
	}
	if err := os.WriteFile(m.path, out, 0o600); err != nil {
		return fmt.Errorf("failed to write mirror file: %w", err)
	}
	return nil
}

// ReadRecords returns the mirrored record list. A missing file or missing
// key reads as an empty list.
func (m *LocalMirror) ReadRecords() ([]StoredRecord, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	entries, err := m.load()
	if err != nil {
		return nil, err
	}

	raw, ok := entries[mirrorRecordsKey]
	if !ok {
		return []StoredRecord{}, nil
	}

	var records []StoredRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to parse mirrored records: %w", err)
	}
	return records, nil
}

// WriteRecords replaces the mirrored record list.
func (m *LocalMirror) WriteRecords(records []StoredRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.store(mirrorRecordsKey, records)
}

// WriteStats overwrites the mirrored statistics snapshot.
func (m *LocalMirror) WriteStats(stats models.Statistics) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.store(mirrorStatsKey, stats)
}
