package piivault

import (
	"context"
	"fmt"
)

// CandidateValues carries the raw, un-normalized values a registration wants
// to check. Empty values are skipped: an absent email is not a match for
// other absent emails.
type CandidateValues struct {
	Phone string
	Email string
	Name  string
}

// DuplicateCheck is the outcome of a probe. PhoneExists and
// NameOrEmailExists mirror the two signals registration surfaces to the
// user; IsDuplicate is their disjunction.
type DuplicateCheck struct {
	PhoneExists       bool
	NameOrEmailExists bool
	IsDuplicate       bool
}

// DuplicateDetector decides whether a candidate registrant already exists in
// a clinic using only lookup hashes. It never decrypts anything.
//
// The check is an optimistic, user-facing pre-check: it runs before a new
// record is committed and yields a friendly conflict message, but it is not
// the enforcement mechanism. Two concurrent registrations can both pass it;
// the record store's uniqueness constraint settles the race.
type DuplicateDetector struct {
	hasher *LookupHasher
	index  RecordIndex
}

func NewDuplicateDetector(km *KeyMaterial, index RecordIndex) *DuplicateDetector {
	return &DuplicateDetector{
		hasher: NewLookupHasher(km),
		index:  index,
	}
}

// Check normalizes and hashes each present candidate value with its purpose
// key and probes the record index within the tenant. Store errors pass
// through untranslated.
func (d *DuplicateDetector) Check(ctx context.Context, tenant TenantScope, candidate CandidateValues) (DuplicateCheck, error) {
	var result DuplicateCheck

	if candidate.Phone != "" {
		exists, err := d.probe(ctx, tenant, FieldPhone, PurposePhone, candidate.Phone)
		if err != nil {
			return DuplicateCheck{}, err
		}
		result.PhoneExists = exists
	}

	if candidate.Email != "" {
		exists, err := d.probe(ctx, tenant, FieldEmail, PurposeEmail, candidate.Email)
		if err != nil {
			return DuplicateCheck{}, err
		}
		result.NameOrEmailExists = exists
	}

	if candidate.Name != "" && !result.NameOrEmailExists {
		exists, err := d.probe(ctx, tenant, FieldFullName, PurposeName, candidate.Name)
		if err != nil {
			return DuplicateCheck{}, err
		}
		result.NameOrEmailExists = exists
	}

	result.IsDuplicate = result.PhoneExists || result.NameOrEmailExists
	return result, nil
}

func (d *DuplicateDetector) probe(ctx context.Context, tenant TenantScope, fieldName string, purpose HashPurpose, raw string) (bool, error) {
	hash, err := d.hasher.Hash(purpose, raw)
	if err != nil {
		return false, err
	}
	exists, err := d.index.FindByHash(ctx, tenant, fieldName, hash)
	if err != nil {
		return false, fmt.Errorf("probing %s in clinic '%s': %w", fieldName, tenant, err)
	}
	return exists, nil
}
