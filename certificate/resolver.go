package certificate

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go-health-certificates/models"
	"go-health-certificates/storage"
)

// ErrNotFound is returned when an identifier is absent from the remote
// store and the local mirror alike.
var ErrNotFound = errors.New("certificate not found")

// Resolver retrieves certificate records by identifier. Resolution runs a
// strict three-step fallback chain, one attempt per step:
//
//  1. direct remote lookup by store key,
//  2. full remote scan matching the store key or the embedded identifier
//     field (tolerates records stored under a key that is not their
//     logical identifier),
//  3. the same dual-field scan over the local mirror.
//
// The linear scans are acceptable only because collections stay small;
// this is an admin tool, not a consumer-scale index.
type Resolver struct {
	adapter *storage.StoreAdapter
}

func NewResolver(adapter *storage.StoreAdapter) *Resolver {
	return &Resolver{adapter: adapter}
}

// Resolve returns the first record matching id, or ErrNotFound once all
// three steps miss. A failing step is logged and falls through to the
// next one; only a full miss surfaces to the caller.
func (r *Resolver) Resolve(ctx context.Context, id string) (models.CertificateRecord, error) {
	record, found, err := r.adapter.GetById(ctx, id)
	if err != nil {
		slog.Warn("Direct certificate lookup failed, falling back to full scan", "certificate_id", id, "error", err)
	}
	if found {
		return record, nil
	}

	stored, err := r.adapter.ScanAll(ctx)
	if err != nil {
		slog.Warn("Certificate scan failed, falling back to local mirror", "certificate_id", id, "error", err)
	}
	if match, ok := matchRecord(stored, id); ok {
		return match, nil
	}

	mirrored, err := r.adapter.ReadMirror()
	if err != nil {
		slog.Warn("Local mirror read failed", "certificate_id", id, "error", err)
	}
	if match, ok := matchRecord(mirrored, id); ok {
		return match, nil
	}

	return models.CertificateRecord{}, ErrNotFound
}

func matchRecord(records []storage.StoredRecord, id string) (models.CertificateRecord, bool) {
	for _, record := range records {
		if record.Key == id || record.Identifier == id {
			return record.CertificateRecord, true
		}
	}
	return models.CertificateRecord{}, false
}

// ListAll loads every record, newest first, with statuses re-derived from
// their expiry dates at call time. The remote scan falls back to the local
// mirror when the store is unreachable.
func (r *Resolver) ListAll(ctx context.Context, now time.Time) ([]storage.StoredRecord, error) {
	records, err := r.adapter.ScanAll(ctx)
	if err != nil {
		slog.Warn("Certificate scan failed, listing from local mirror", "error", err)
		records, err = r.adapter.ReadMirror()
		if err != nil {
			return nil, err
		}
	}

	for i := range records {
		records[i].Status = DeriveStatus(records[i].ExpiryDate, now)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Filter narrows a record list to entries whose name, id number or
// certificate number contains the query, case-insensitively.
func Filter(records []storage.StoredRecord, query string) []storage.StoredRecord {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return records
	}

	matched := []storage.StoredRecord{}
	for _, record := range records {
		if strings.Contains(strings.ToLower(record.SubjectName), query) ||
			strings.Contains(strings.ToLower(record.SubjectIdNumber), query) ||
			strings.Contains(strings.ToLower(record.CertificateNumber), query) {
			matched = append(matched, record)
		}
	}
	return matched
}
