package piivault

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// BlobMetadata is caller-supplied description of a stored payload. The
// content type is carried here, never derived from the ciphertext.
type BlobMetadata struct {
	ContentType string
	FileName    string
}

// BlobHandle identifies one stored, encrypted blob. Callers persist the
// handle (typically on the owning record) and present it back to Fetch.
type BlobHandle struct {
	Bucket      string
	Key         string
	ContentType string
}

// BlobPipeline orchestrates encrypt-then-store and fetch-then-decrypt for
// binary assets (signature and selfie images). The blob store collaborator
// only ever holds ciphertext.
type BlobPipeline struct {
	cipher *BlobCipher
	store  BlobStore
	bucket string
}

// NewBlobPipeline wires a BlobCipher over the key material and the injected
// blob store. All objects go into the given bucket, keyed per tenant.
func NewBlobPipeline(km *KeyMaterial, store BlobStore, bucket string) (*BlobPipeline, error) {
	if bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", ErrInvalidConfiguration)
	}
	cipher, err := NewBlobCipher(km)
	if err != nil {
		return nil, err
	}
	return &BlobPipeline{cipher: cipher, store: store, bucket: bucket}, nil
}

// Store encrypts the payload as a single opaque plaintext and hands the
// ciphertext to the blob store under a fresh random key prefixed with the
// tenant, returning the handle the caller needs for Fetch.
func (p *BlobPipeline) Store(ctx context.Context, tenant TenantScope, data []byte, meta BlobMetadata) (BlobHandle, error) {
	encrypted, err := p.cipher.Encrypt(data)
	if err != nil {
		return BlobHandle{}, err
	}

	key := fmt.Sprintf("%s/%s", tenant, uuid.New().String())
	if err := p.store.Put(ctx, p.bucket, key, encrypted); err != nil {
		return BlobHandle{}, fmt.Errorf("storing blob '%s': %w", key, err)
	}

	return BlobHandle{
		Bucket:      p.bucket,
		Key:         key,
		ContentType: meta.ContentType,
	}, nil
}

// Fetch retrieves the ciphertext for a handle and decrypts it. A handle
// that was never stored fails with IsNotFound; ciphertext that is present
// but fails authentication with the current key fails with
// IsDecryptionError. The two are never conflated.
func (p *BlobPipeline) Fetch(ctx context.Context, handle BlobHandle) ([]byte, error) {
	encrypted, err := p.store.Get(ctx, handle.Bucket, handle.Key)
	if err != nil {
		return nil, err
	}
	return p.cipher.Decrypt(encrypted)
}
