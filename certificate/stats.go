package certificate

import (
	"time"

	"go-health-certificates/models"
	"go-health-certificates/storage"
)

// ComputeStatistics recomputes the aggregate counters from live expiry
// dates, ignoring any persisted status snapshots.
func ComputeStatistics(records []storage.StoredRecord, now time.Time) models.Statistics {
	stats := models.Statistics{
		Total:       len(records),
		LastUpdated: now,
	}
	for _, record := range records {
		switch DeriveStatus(record.ExpiryDate, now) {
		case models.StatusActive:
			stats.Active++
		case models.StatusExpiring:
			stats.Expiring++
		}
	}
	return stats
}
