package piivault

import "context"

// RecordIndex is the minimal lookup surface DuplicateDetector needs: a
// tenant-scoped equality probe over stored LookupKey hashes.
//
// The probe must be backed by an index for performance, but the index is not
// what makes duplicate prevention correct; the uniqueness constraint on
// (tenant, field_name, hash) is. See RecordStore.Insert.
type RecordIndex interface {
	// FindByHash reports whether any record in the tenant carries a
	// LookupKey with the given field name and hash. Implementations never
	// see plaintext: the caller has already normalized and hashed.
	FindByHash(ctx context.Context, tenant TenantScope, fieldName string, hash []byte) (bool, error)
}

// RecordStore is the contract for the external record store collaborator.
//
// Required capability: a uniqueness constraint on (tenant, field_name, hash)
// across lookup keys. The DuplicateDetector pre-check and a subsequent
// Insert are two separate operations with no lock held between them, so two
// concurrent registrations for the same value can both pass the pre-check;
// the constraint is the authoritative guard and must hold atomically.
//
// Implementations:
//   - SQLite: github.com/hengadev/piivault/providers/sqlite.Store
//   - In-memory (testing): piivault.InMemoryRecordStore
type RecordStore interface {
	RecordIndex

	// Insert durably persists a payload together with its lookup keys.
	// A uniqueness-constraint violation must surface as an error satisfying
	// IsConflict (wrap ErrDuplicateRecord), distinguishable from any other
	// write failure; Registrar relies on that distinction to translate the
	// race loser into the same conflict outcome as the pre-check.
	Insert(ctx context.Context, payload *StoragePayload) error

	// GetByID retrieves a payload by tenant and record id. A missing record
	// is an error satisfying IsNotFound, not a nil payload.
	GetByID(ctx context.Context, tenant TenantScope, id string) (*StoragePayload, error)
}

// BlobStore is the contract for the external blob store collaborator.
// It only ever sees ciphertext; BlobPipeline encrypts before Put and
// decrypts after Get.
//
// Implementations:
//   - AWS S3: github.com/hengadev/piivault/providers/s3.Store
//   - In-memory (testing): piivault.InMemoryBlobStore
type BlobStore interface {
	// Put stores an object. Overwrites are allowed; BlobPipeline generates
	// fresh random keys so they do not occur in practice.
	Put(ctx context.Context, bucket, key string, data []byte) error

	// Get retrieves an object. A missing object is an error satisfying
	// IsNotFound, so callers can tell "file missing" from "file present
	// but unreadable with the current key".
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}
