package certificate

import (
	"testing"
	"time"

	"go-health-certificates/models"

	"github.com/stretchr/testify/require"
)

func TestDeriveStatusBoundaries(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		daysFrom int
		expected models.Status
	}{
		{"one day past expiry", -1, models.StatusExpired},
		{"long expired", -400, models.StatusExpired},
		{"expires today", 0, models.StatusExpiring},
		{"last day of the expiring window", 30, models.StatusExpiring},
		{"just outside the expiring window", 31, models.StatusActive},
		{"far future", 365, models.StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expiry := now.AddDate(0, 0, tt.daysFrom)
			require.Equal(t, tt.expected, DeriveStatus(expiry, now))
		})
	}
}

func TestDeriveStatusExpiredEarlierToday(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	// A certificate that expired a few hours ago still rounds up to
	// zero days, which is the expiring bucket rather than expired.
	expiry := now.Add(-3 * time.Hour)
	require.Equal(t, models.StatusExpiring, DeriveStatus(expiry, now))
}

func TestDeriveStatusWithoutExpiryDate(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	require.Equal(t, models.StatusUnknown, DeriveStatus(time.Time{}, now))
}
