package certificate

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const suffixLength = 9

// NewCertificateId builds a certificate identifier from a millisecond
// timestamp and a short random alphanumeric suffix. Collisions are
// accepted as negligible; there is no uniqueness check against the store.
func NewCertificateId(now time.Time) string {
	return fmt.Sprintf("CERT_%d_%s", now.UnixMilli(), randomSuffix(suffixLength))
}

func randomSuffix(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// a fixed suffix rather than an unusable identifier.
		slog.Error("failed to read random bytes for identifier suffix", "error", err)
		return strings.Repeat("0", length)
	}
	for i, b := range buf {
		buf[i] = suffixAlphabet[int(b)%len(suffixAlphabet)]
	}
	return string(buf)
}
