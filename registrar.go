package piivault

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Registrar orchestrates the create and read paths around the codec:
// duplicate pre-check, encode, insert, and decode on the way back out.
//
// The pre-check and the insert are two separate store operations with no
// lock between them, so the sequence is inherently racy under concurrent
// registrations for the same value. Registrar does not pretend otherwise:
// when the store's uniqueness constraint rejects the insert, the violation
// is translated into the same ErrDuplicateRecord outcome the pre-check
// would have produced, so exactly one of two racing registrations succeeds
// and the other sees an ordinary conflict.
type Registrar struct {
	codec    *RecordCodec
	detector *DuplicateDetector
	store    RecordStore
}

// NewRegistrar wires a codec and detector over the shared key material and
// the injected record store.
func NewRegistrar(km *KeyMaterial, schema Schema, store RecordStore) (*Registrar, error) {
	codec, err := NewRecordCodec(km, schema)
	if err != nil {
		return nil, err
	}
	return &Registrar{
		codec:    codec,
		detector: NewDuplicateDetector(km, store),
		store:    store,
	}, nil
}

// Check exposes the duplicate pre-check on its own, for callers that want
// to validate a form before committing anything.
func (r *Registrar) Check(ctx context.Context, tenant TenantScope, candidate CandidateValues) (DuplicateCheck, error) {
	return r.detector.Check(ctx, tenant, candidate)
}

// Register creates a record: pre-check, encode, insert. A record id is
// assigned when the caller supplies none. Conflicts, whether caught by the
// pre-check or by the store constraint, come back as errors satisfying
// IsConflict, alongside the check result so callers can tell the user which
// value collided.
func (r *Registrar) Register(ctx context.Context, raw RawRecord) (*StoragePayload, DuplicateCheck, error) {
	candidate := CandidateValues{
		Phone: raw.Fields[FieldPhone],
		Email: raw.Fields[FieldEmail],
		Name:  raw.Fields[FieldFullName],
	}

	check, err := r.detector.Check(ctx, raw.Tenant, candidate)
	if err != nil {
		return nil, DuplicateCheck{}, err
	}
	if check.IsDuplicate {
		field := FieldFullName
		if check.PhoneExists {
			field = FieldPhone
		} else if raw.Fields[FieldEmail] != "" {
			field = FieldEmail
		}
		return nil, check, NewDuplicateRecordError(raw.Tenant, field)
	}

	if raw.ID == "" {
		raw.ID = uuid.New().String()
	}

	payload, err := r.codec.Encode(raw)
	if err != nil {
		return nil, check, err
	}

	if err := r.store.Insert(ctx, payload); err != nil {
		// The race loser: another registration committed the same hash
		// between our pre-check and this insert. Same outcome as a
		// pre-check hit.
		if errors.Is(err, ErrDuplicateRecord) {
			check.IsDuplicate = true
			return nil, check, err
		}
		return nil, check, fmt.Errorf("inserting %s record: %w", r.codec.Schema().Entity, err)
	}

	return payload, check, nil
}

// Get reads a record back: fetch by id, decrypt every stored field. Missing
// records satisfy IsNotFound; an unreadable field fails the whole decode
// with a *RecordDecodeError.
func (r *Registrar) Get(ctx context.Context, tenant TenantScope, id string) (RawRecord, error) {
	payload, err := r.store.GetByID(ctx, tenant, id)
	if err != nil {
		return RawRecord{}, err
	}
	return r.codec.Decode(payload)
}
