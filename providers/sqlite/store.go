// Package sqlite provides a piivault.RecordStore backed by SQLite.
//
// It carries the one capability the core cannot provide itself: the
// authoritative uniqueness constraint on (clinic_id, field_name, hash) that
// settles the check-then-insert race between concurrent registrations.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/hengadev/piivault"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS records (
	clinic_id  TEXT NOT NULL,
	record_id  TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (clinic_id, record_id)
);

CREATE TABLE IF NOT EXISTS lookup_keys (
	clinic_id  TEXT NOT NULL,
	record_id  TEXT NOT NULL,
	field_name TEXT NOT NULL,
	hash       BLOB NOT NULL,
	UNIQUE (clinic_id, field_name, hash)
);

CREATE INDEX IF NOT EXISTS idx_lookup_keys_probe
	ON lookup_keys (clinic_id, field_name, hash);
`

// Store implements piivault.RecordStore over a SQLite database. Records are
// stored as JSON payloads (ciphertext fields base64-encoded); lookup keys
// live in their own table so the uniqueness constraint and the probe index
// cover exactly (clinic_id, field_name, hash).
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (creating if necessary) a SQLite database at path and applies
// the schema. A busy timeout keeps concurrent registrations queueing instead
// of failing immediately on lock contention.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening record store at '%s': %w", path, err)
	}
	return New(db, logger)
}

// New wraps an existing database handle and applies the schema.
func New(db *sql.DB, logger zerolog.Logger) (*Store, error) {
	if _, err := db.Exec(schemaDDL); err != nil {
		return nil, fmt.Errorf("applying record store schema: %w", err)
	}
	logger.Debug().Msg("record store schema ready")
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// FindByHash probes the lookup_keys index for an exact hash match within the
// clinic.
func (s *Store) FindByHash(ctx context.Context, tenant piivault.TenantScope, fieldName string, hash []byte) (bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM lookup_keys
		WHERE clinic_id = ? AND field_name = ? AND hash = ?
		LIMIT 1
	`, string(tenant), fieldName, hash)

	var one int
	err := row.Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probing lookup key: %w", err)
	}
	return true, nil
}

// Insert persists the payload and its lookup keys in one transaction.
// A unique-constraint violation on any lookup key rolls the whole insert
// back and surfaces as piivault.ErrDuplicateRecord, which is how the loser
// of a concurrent registration race learns it lost.
func (s *Store) Insert(ctx context.Context, payload *piivault.StoragePayload) error {
	log := s.logger.With().Str("clinic", string(payload.Tenant)).Str("record", payload.ID).Logger()

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (clinic_id, record_id, payload) VALUES (?, ?, ?)
	`, string(payload.Tenant), payload.ID, string(encoded))
	if err != nil {
		return translateConstraint(err, payload, "record_id")
	}

	for _, lk := range payload.LookupKeys {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO lookup_keys (clinic_id, record_id, field_name, hash) VALUES (?, ?, ?, ?)
		`, string(payload.Tenant), payload.ID, lk.FieldName, lk.Hash)
		if err != nil {
			return translateConstraint(err, payload, lk.FieldName)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing insert: %w", err)
	}
	log.Debug().Int("lookup_keys", len(payload.LookupKeys)).Msg("record inserted")
	return nil
}

// GetByID retrieves a stored payload by clinic and record id.
func (s *Store) GetByID(ctx context.Context, tenant piivault.TenantScope, id string) (*piivault.StoragePayload, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT payload FROM records WHERE clinic_id = ? AND record_id = ?
	`, string(tenant), id)

	var encoded string
	err := row.Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: record '%s' in clinic '%s'", piivault.ErrNotFound, id, tenant)
	}
	if err != nil {
		return nil, fmt.Errorf("reading record: %w", err)
	}

	var payload piivault.StoragePayload
	if err := json.Unmarshal([]byte(encoded), &payload); err != nil {
		return nil, fmt.Errorf("unmarshaling record '%s': %w", id, err)
	}
	return &payload, nil
}

// translateConstraint maps SQLite unique-constraint violations to the
// conflict outcome and leaves every other driver error untouched.
func translateConstraint(err error, payload *piivault.StoragePayload, fieldName string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return piivault.NewDuplicateRecordError(payload.Tenant, fieldName)
		}
	}
	return fmt.Errorf("unexpected DB error: %w", err)
}
