package piivault

import (
	"bytes"
	"context"
	"fmt"
	"sync"
)

// NewTestKeyMaterial returns key material derived from a fixed development
// key. Test use only; the key is public by definition.
func NewTestKeyMaterial() (*KeyMaterial, error) {
	return NewKeyMaterial(Config{
		MasterKey: bytes.Repeat([]byte{0x42}, MinMasterKeyLength),
	})
}

// InMemoryRecordStore is a RecordStore for tests. It enforces the
// (tenant, field_name, hash) uniqueness constraint atomically under a
// mutex, which is exactly the capability the contract demands of real
// stores, so the check-then-insert race behaves the same way it does
// against SQLite or Postgres.
type InMemoryRecordStore struct {
	mu      sync.Mutex
	records map[string]*StoragePayload // tenant/id -> payload
	hashes  map[string]bool            // tenant/field/hash -> taken
}

func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{
		records: make(map[string]*StoragePayload),
		hashes:  make(map[string]bool),
	}
}

func (s *InMemoryRecordStore) FindByHash(ctx context.Context, tenant TenantScope, fieldName string, hash []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hashes[hashKey(tenant, fieldName, hash)], nil
}

func (s *InMemoryRecordStore) Insert(ctx context.Context, payload *StoragePayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordKey := fmt.Sprintf("%s/%s", payload.Tenant, payload.ID)
	if _, exists := s.records[recordKey]; exists {
		return fmt.Errorf("%w: record id '%s'", ErrDuplicateRecord, payload.ID)
	}
	for _, lk := range payload.LookupKeys {
		if s.hashes[hashKey(payload.Tenant, lk.FieldName, lk.Hash)] {
			return NewDuplicateRecordError(payload.Tenant, lk.FieldName)
		}
	}

	s.records[recordKey] = payload
	for _, lk := range payload.LookupKeys {
		s.hashes[hashKey(payload.Tenant, lk.FieldName, lk.Hash)] = true
	}
	return nil
}

func (s *InMemoryRecordStore) GetByID(ctx context.Context, tenant TenantScope, id string) (*StoragePayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, ok := s.records[fmt.Sprintf("%s/%s", tenant, id)]
	if !ok {
		return nil, fmt.Errorf("%w: record '%s' in clinic '%s'", ErrNotFound, id, tenant)
	}
	return payload, nil
}

func hashKey(tenant TenantScope, fieldName string, hash []byte) string {
	return fmt.Sprintf("%s/%s/%x", tenant, fieldName, hash)
}

// InMemoryBlobStore is a BlobStore for tests.
type InMemoryBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewInMemoryBlobStore() *InMemoryBlobStore {
	return &InMemoryBlobStore{objects: make(map[string][]byte)}
}

func (s *InMemoryBlobStore) Put(ctx context.Context, bucket, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[bucket+"/"+key] = stored
	return nil
}

func (s *InMemoryBlobStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("%w: blob '%s' in bucket '%s'", ErrNotFound, key, bucket)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
