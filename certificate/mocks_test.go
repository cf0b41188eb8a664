package certificate

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sync/atomic"
	"testing"

	"go-health-certificates/models"
	"go-health-certificates/storage"

	"github.com/stretchr/testify/require"
)

// Compile-time check to ensure SpyRecordStore implements RecordStore.
var _ storage.RecordStore = (*SpyRecordStore)(nil)

var errStoreDown = errors.New("record store unreachable")

// SpyRecordStore is a hand-rolled RecordStore double with pluggable
// behavior and call counters.
type SpyRecordStore struct {
	PutFunc      func(ctx context.Context, key string, record models.CertificateRecord) error
	GetByIdFunc  func(ctx context.Context, key string) (models.CertificateRecord, error)
	ScanAllFunc  func(ctx context.Context) ([]storage.StoredRecord, error)
	DeleteFunc   func(ctx context.Context, key string) error
	PutStatsFunc func(ctx context.Context, stats models.Statistics) error

	PutCallCount      int32
	ScanAllCallCount  int32
	PutStatsCallCount int32
}

func (s *SpyRecordStore) Put(ctx context.Context, key string, record models.CertificateRecord) error {
	atomic.AddInt32(&s.PutCallCount, 1)
	if s.PutFunc != nil {
		return s.PutFunc(ctx, key, record)
	}
	return nil
}

func (s *SpyRecordStore) GetById(ctx context.Context, key string) (models.CertificateRecord, error) {
	if s.GetByIdFunc != nil {
		return s.GetByIdFunc(ctx, key)
	}
	return models.CertificateRecord{}, storage.ErrNotFound
}

func (s *SpyRecordStore) ScanAll(ctx context.Context) ([]storage.StoredRecord, error) {
	atomic.AddInt32(&s.ScanAllCallCount, 1)
	if s.ScanAllFunc != nil {
		return s.ScanAllFunc(ctx)
	}
	return []storage.StoredRecord{}, nil
}

func (s *SpyRecordStore) DeleteById(ctx context.Context, key string) error {
	if s.DeleteFunc != nil {
		return s.DeleteFunc(ctx, key)
	}
	return nil
}

func (s *SpyRecordStore) PutStats(ctx context.Context, stats models.Statistics) error {
	atomic.AddInt32(&s.PutStatsCallCount, 1)
	if s.PutStatsFunc != nil {
		return s.PutStatsFunc(ctx, stats)
	}
	return nil
}

// newFailingStore returns a store where every remote call fails, to force
// the mirror fallback paths.
func newFailingStore() *SpyRecordStore {
	return &SpyRecordStore{
		PutFunc: func(context.Context, string, models.CertificateRecord) error {
			return errStoreDown
		},
		GetByIdFunc: func(context.Context, string) (models.CertificateRecord, error) {
			return models.CertificateRecord{}, errStoreDown
		},
		ScanAllFunc: func(context.Context) ([]storage.StoredRecord, error) {
			return nil, errStoreDown
		},
		DeleteFunc: func(context.Context, string) error {
			return errStoreDown
		},
		PutStatsFunc: func(context.Context, models.Statistics) error {
			return errStoreDown
		},
	}
}

func newTestAdapter(t *testing.T, store storage.RecordStore) *storage.StoreAdapter {
	t.Helper()
	mirror := storage.NewLocalMirror(t.TempDir() + "/mirror.json")
	return storage.NewStoreAdapter(store, mirror)
}

// makeTestPhoto renders a small JPEG and returns it base64 encoded.
func makeTestPhoto(t *testing.T, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func validForm(t *testing.T) models.CertificateForm {
	t.Helper()
	return models.CertificateForm{
		SubjectName:       "Ahmed Al-Harbi",
		SubjectIdNumber:   "1023456789",
		Gender:            "male",
		Nationality:       "Saudi",
		Profession:        "Food handler",
		LicenseNumber:     "LIC-2045",
		CertificateNumber: "HC-88321",
		IssueDate:         "2025-06-01",
		ExpiryDate:        "2026-06-01",
		IssueDateHijri:    "1446-12-05",
		ExpiryDateHijri:   "1447-12-16",
		Photo:             makeTestPhoto(t, 32, 32),
	}
}
