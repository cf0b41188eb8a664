package storage

import (
	"context"
	"testing"
	"time"

	"go-health-certificates/models"

	"github.com/stretchr/testify/require"
)

func TestInMemoryRecordStoreRoundtrip(t *testing.T) {
	store := NewInMemoryRecordStore()
	ctx := context.Background()

	record := sampleRecord("CERT_20_aaaaaaaaa")
	require.NoError(t, store.Put(ctx, record.Identifier, record))

	stored, err := store.GetById(ctx, record.Identifier)
	require.NoError(t, err)
	require.Equal(t, record.Identifier, stored.Identifier)
	require.Equal(t, record.SubjectName, stored.SubjectName)
}

func TestInMemoryRecordStoreNotFound(t *testing.T) {
	store := NewInMemoryRecordStore()

	_, err := store.GetById(context.Background(), "CERT_0_missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryRecordStoreScanAllSorted(t *testing.T) {
	store := NewInMemoryRecordStore()
	ctx := context.Background()

	for _, id := range []string{"CERT_23_c", "CERT_21_a", "CERT_22_b"} {
		require.NoError(t, store.Put(ctx, id, sampleRecord(id)))
	}

	records, err := store.ScanAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "CERT_21_a", records[0].Key)
	require.Equal(t, "CERT_22_b", records[1].Key)
	require.Equal(t, "CERT_23_c", records[2].Key)
}

func TestInMemoryRecordStoreDelete(t *testing.T) {
	store := NewInMemoryRecordStore()
	ctx := context.Background()

	record := sampleRecord("CERT_24_ddddddddd")
	require.NoError(t, store.Put(ctx, record.Identifier, record))
	require.NoError(t, store.DeleteById(ctx, record.Identifier))

	_, err := store.GetById(ctx, record.Identifier)
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent record is not an error.
	require.NoError(t, store.DeleteById(ctx, record.Identifier))
}

func TestInMemoryRecordStorePutStats(t *testing.T) {
	store := NewInMemoryRecordStore()

	stats := models.Statistics{Total: 7, Active: 5, Expiring: 2, LastUpdated: time.Now()}
	require.NoError(t, store.PutStats(context.Background(), stats))
	require.Equal(t, 7, store.Stats.Total)
	require.Equal(t, 5, store.Stats.Active)
	require.Equal(t, 2, store.Stats.Expiring)
}
