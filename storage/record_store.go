package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go-health-certificates/models"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when the store explicitly reports a record as
// absent, as opposed to the store call itself failing.
var ErrNotFound = errors.New("record not found")

// StoredRecord pairs a record with the key it is stored under. The key and
// the embedded identifier field usually agree, but records written before
// the identifier-field convention may drift, so both are kept.
type StoredRecord struct {
	Key string `json:"id"`
	models.CertificateRecord
}

// RecordStore is the remote document store, reduced to the four operations
// the portal needs: get, set, delete and query-all, plus the singleton
// statistics document.
type RecordStore interface {
	// Put writes the record under the given key, overwriting any
	// previous value.
	Put(ctx context.Context, key string, record models.CertificateRecord) error

	// GetById retrieves the record stored under key. Returns ErrNotFound
	// when the store reports the key as absent; any other error means the
	// call itself failed.
	GetById(ctx context.Context, key string) (models.CertificateRecord, error)

	// ScanAll returns every record with its store key attached. O(collection
	// size); fallback path only, not for routine lookups.
	ScanAll(ctx context.Context) ([]StoredRecord, error)

	// DeleteById removes the record stored under key.
	DeleteById(ctx context.Context, key string) error

	// PutStats overwrites the singleton statistics document.
	PutStats(ctx context.Context, stats models.Statistics) error
}

// ------------------------------------------------------------------------------

type RedisRecordStore struct {
	client    *redis.Client
	namespace string
}

func NewRedisRecordStore(client *redis.Client, namespace string) *RedisRecordStore {
	return &RedisRecordStore{client: client, namespace: namespace}
}

func (s *RedisRecordStore) certificateKey(key string) string {
	return fmt.Sprintf("%s:certificate:%s", s.namespace, key)
}

func (s *RedisRecordStore) statsKey() string {
	return fmt.Sprintf("%s:system:statistics", s.namespace)
}

func (s *RedisRecordStore) Put(ctx context.Context, key string, record models.CertificateRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", key, err)
	}
	return s.client.Set(ctx, s.certificateKey(key), payload, 0).Err()
}

func (s *RedisRecordStore) GetById(ctx context.Context, key string) (models.CertificateRecord, error) {
	payload, err := s.client.Get(ctx, s.certificateKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return models.CertificateRecord{}, ErrNotFound
	}
	if err != nil {
		return models.CertificateRecord{}, err
	}

	var record models.CertificateRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return models.CertificateRecord{}, fmt.Errorf("failed to unmarshal record %s: %w", key, err)
	}
	return record, nil
}

func (s *RedisRecordStore) ScanAll(ctx context.Context) ([]StoredRecord, error) {
	prefix := fmt.Sprintf("%s:certificate:", s.namespace)

	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan certificate keys: %w", err)
	}

	records := []StoredRecord{}
	for _, fullKey := range keys {
		payload, err := s.client.Get(ctx, fullKey).Result()
		if errors.Is(err, redis.Nil) {
			// Expired or deleted between scan and get.
			continue
		}
		if err != nil {
			return nil, err
		}

		var record models.CertificateRecord
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record %s: %w", fullKey, err)
		}
		records = append(records, StoredRecord{
			Key:               strings.TrimPrefix(fullKey, prefix),
			CertificateRecord: record,
		})
	}
	return records, nil
}

func (s *RedisRecordStore) DeleteById(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.certificateKey(key)).Err()
}

func (s *RedisRecordStore) PutStats(ctx context.Context, stats models.Statistics) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal statistics: %w", err)
	}
	return s.client.Set(ctx, s.statsKey(), payload, 0).Err()
}

// ------------------------------------------------------------------------------

type InMemoryRecordStore struct {
	Records map[string]models.CertificateRecord
	Stats   models.Statistics
	mutex   sync.Mutex
}

func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{
		Records: make(map[string]models.CertificateRecord),
	}
}

func (s *InMemoryRecordStore) Put(ctx context.Context, key string, record models.CertificateRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Records[key] = record
	return nil
}

func (s *InMemoryRecordStore) GetById(ctx context.Context, key string) (models.CertificateRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if record, ok := s.Records[key]; ok {
		return record, nil
	}
	return models.CertificateRecord{}, ErrNotFound
}

func (s *InMemoryRecordStore) ScanAll(ctx context.Context) ([]StoredRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	records := []StoredRecord{}
	for key, record := range s.Records {
		records = append(records, StoredRecord{Key: key, CertificateRecord: record})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records, nil
}

func (s *InMemoryRecordStore) DeleteById(ctx context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.Records, key)
	return nil
}

func (s *InMemoryRecordStore) PutStats(ctx context.Context, stats models.Statistics) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Stats = stats
	return nil
}
