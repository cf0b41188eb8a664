package storage

import (
	"context"
	"errors"
	"log/slog"

	"go-health-certificates/models"
)

// StoreAdapter wraps the remote record store with the local mirror
// fallback. Remote write failures are absorbed here: the caller of Put
// never sees them. The two backends are deliberately not reconciled; the
// mirror keeps the tool usable when the remote store is unreachable.
type StoreAdapter struct {
	store  RecordStore
	mirror *LocalMirror
}

func NewStoreAdapter(store RecordStore, mirror *LocalMirror) *StoreAdapter {
	return &StoreAdapter{store: store, mirror: mirror}
}

// Put writes the record to the remote store. On failure the record is
// appended to the local mirror list instead, tagged with the same key.
// Never returns an error.
func (a *StoreAdapter) Put(ctx context.Context, key string, record models.CertificateRecord) {
	if err := a.store.Put(ctx, key, record); err == nil {
		return
	} else {
		slog.Warn("Remote store write failed, falling back to local mirror", "key", key, "error", err)
	}

	records, err := a.mirror.ReadRecords()
	if err != nil {
		slog.Error("Failed to read local mirror, starting a fresh list", "error", err)
		records = []StoredRecord{}
	}
	records = append(records, StoredRecord{Key: key, CertificateRecord: record})
	if err := a.mirror.WriteRecords(records); err != nil {
		slog.Error("Failed to write record to local mirror", "key", key, "error", err)
	}
}

// GetById asks the remote store for the record under key. The three
// outcomes are kept distinct: found, explicitly absent, or the call failed.
func (a *StoreAdapter) GetById(ctx context.Context, key string) (models.CertificateRecord, bool, error) {
	record, err := a.store.GetById(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return models.CertificateRecord{}, false, nil
	}
	if err != nil {
		return models.CertificateRecord{}, false, err
	}
	return record, true, nil
}

// ScanAll returns every remote record with its store key attached.
// Fallback path only: O(collection size).
func (a *StoreAdapter) ScanAll(ctx context.Context) ([]StoredRecord, error) {
	return a.store.ScanAll(ctx)
}

// DeleteById removes the record from the remote store. The caller is
// responsible for also calling RemoveFromMirror so the backends do not
// diverge further.
func (a *StoreAdapter) DeleteById(ctx context.Context, key string) error {
	return a.store.DeleteById(ctx, key)
}

// RemoveFromMirror drops every mirrored record whose key or embedded
// identifier equals key.
func (a *StoreAdapter) RemoveFromMirror(key string) error {
	records, err := a.mirror.ReadRecords()
	if err != nil {
		return err
	}

	kept := records[:0]
	for _, record := range records {
		if record.Key == key || record.Identifier == key {
			continue
		}
		kept = append(kept, record)
	}
	return a.mirror.WriteRecords(kept)
}

// ReadMirror exposes the raw mirrored record list.
func (a *StoreAdapter) ReadMirror() ([]StoredRecord, error) {
	return a.mirror.ReadRecords()
}

// WriteMirror replaces the raw mirrored record list.
func (a *StoreAdapter) WriteMirror(records []StoredRecord) error {
	return a.mirror.WriteRecords(records)
}

// PutStats overwrites the singleton statistics document, falling back to
// the mirror when the remote store is unreachable. Like Put, failures are
// absorbed.
func (a *StoreAdapter) PutStats(ctx context.Context, stats models.Statistics) {
	if err := a.store.PutStats(ctx, stats); err == nil {
		return
	} else {
		slog.Warn("Remote statistics write failed, falling back to local mirror", "error", err)
	}

	if err := a.mirror.WriteStats(stats); err != nil {
		slog.Error("Failed to write statistics to local mirror", "error", err)
	}
}
