package certificate

import (
	"math"
	"time"

	"go-health-certificates/models"
)

// Records expiring within this many days are classified as "expiring".
const expiringWindowDays = 30

// DeriveStatus classifies a certificate by its expiry date relative to
// now. A record expiring today counts as expiring, not expired. The
// persisted status on a record is a creation-time snapshot of this value;
// anything shown to a reader should call this again with the current time.
func DeriveStatus(expiry, now time.Time) models.Status {
	if expiry.IsZero() {
		return models.StatusUnknown
	}

	daysUntilExpiry := int(math.Ceil(expiry.Sub(now).Hours() / 24))
	switch {
	case daysUntilExpiry < 0:
		return models.StatusExpired
	case daysUntilExpiry <= expiringWindowDays:
		return models.StatusExpiring
	default:
		return models.StatusActive
	}
}
