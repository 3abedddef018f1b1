package piivault_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/piivault"
)

func newTestRegistrar(t *testing.T) (*piivault.Registrar, *piivault.InMemoryRecordStore) {
	t.Helper()
	km, err := piivault.NewTestKeyMaterial()
	require.NoError(t, err)
	store := piivault.NewInMemoryRecordStore()
	registrar, err := piivault.NewRegistrar(km, piivault.PatientSchema(), store)
	require.NoError(t, err)
	return registrar, store
}

func TestRegistrarRegistrationScenario(t *testing.T) {
	ctx := context.Background()
	registrar, _ := newTestRegistrar(t)

	record := piivault.RawRecord{
		Tenant: "clinic-a",
		Fields: map[string]string{
			piivault.FieldFullName: "John Doe",
			piivault.FieldPhone:    "6591234567",
			piivault.FieldEmail:    "john@example.com",
		},
	}

	// First registration in clinic A succeeds and gets an id assigned.
	payload, check, err := registrar.Register(ctx, record)
	require.NoError(t, err)
	assert.False(t, check.IsDuplicate)
	assert.NotEmpty(t, payload.ID)

	// Immediate re-registration of the same phone in clinic A conflicts.
	_, check, err = registrar.Register(ctx, record)
	assert.True(t, piivault.IsConflict(err), "expected conflict, got %v", err)
	assert.True(t, check.IsDuplicate)
	assert.True(t, check.PhoneExists)

	// The same phone in clinic B is a different tenant: no collision.
	recordB := record
	recordB.Tenant = "clinic-b"
	_, check, err = registrar.Register(ctx, recordB)
	require.NoError(t, err)
	assert.False(t, check.IsDuplicate)
}

func TestRegistrarGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	registrar, _ := newTestRegistrar(t)

	payload, _, err := registrar.Register(ctx, piivault.RawRecord{
		Tenant: "clinic-a",
		Fields: map[string]string{
			piivault.FieldFullName: "Jane Doe",
			piivault.FieldPhone:    "6598765432",
			piivault.FieldDOB:      "1985-12-24",
		},
		Attributes: map[string]string{"status": "active"},
	})
	require.NoError(t, err)

	read, err := registrar.Get(ctx, "clinic-a", payload.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", read.Fields[piivault.FieldFullName])
	assert.Equal(t, "6598765432", read.Fields[piivault.FieldPhone])
	assert.Equal(t, "1985-12-24", read.Fields[piivault.FieldDOB])
	assert.Equal(t, "active", read.Attributes["status"])

	_, err = registrar.Get(ctx, "clinic-a", "no-such-id")
	assert.True(t, piivault.IsNotFound(err))

	// Records do not leak across tenants on the read path either.
	_, err = registrar.Get(ctx, "clinic-b", payload.ID)
	assert.True(t, piivault.IsNotFound(err))
}

// blindPrecheckStore reports every probe as a miss while still enforcing
// the uniqueness constraint on insert. This forces Register down the path
// the race loser takes: pre-check passes, insert collides.
type blindPrecheckStore struct {
	*piivault.InMemoryRecordStore
}

func (s blindPrecheckStore) FindByHash(ctx context.Context, tenant piivault.TenantScope, fieldName string, hash []byte) (bool, error) {
	return false, nil
}

func TestRegistrarConstraintViolationBecomesConflict(t *testing.T) {
	ctx := context.Background()
	km, err := piivault.NewTestKeyMaterial()
	require.NoError(t, err)
	store := piivault.NewInMemoryRecordStore()
	registrar, err := piivault.NewRegistrar(km, piivault.PatientSchema(), blindPrecheckStore{store})
	require.NoError(t, err)

	// Simulate a racing registration that committed between pre-check and
	// insert.
	registerPatient(t, store, "clinic-a", "racer", "Someone Else", "6591234567", "")

	_, _, err = registrar.Register(ctx, piivault.RawRecord{
		Tenant: "clinic-a",
		Fields: map[string]string{
			piivault.FieldFullName: "Zara Chen",
			piivault.FieldPhone:    "+65 9123 4567",
			piivault.FieldEmail:    "zara@example.com",
		},
	})
	assert.True(t, piivault.IsConflict(err), "constraint violation must surface as the same conflict outcome, got %v", err)
}

func TestRegistrarConcurrentSamePhone(t *testing.T) {
	ctx := context.Background()
	registrar, _ := newTestRegistrar(t)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = registrar.Register(ctx, piivault.RawRecord{
				Tenant: "clinic-a",
				Fields: map[string]string{
					piivault.FieldPhone: "6591234567",
				},
			})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.True(t, piivault.IsConflict(err), "losers must see a conflict, got %v", err)
	}
	assert.Equal(t, 1, successes, "exactly one concurrent registration may succeed")
}

func TestRegistrarCheckOnly(t *testing.T) {
	ctx := context.Background()
	registrar, store := newTestRegistrar(t)

	registerPatient(t, store, "clinic-a", "p1", "John Doe", "6591234567", "john@example.com")

	check, err := registrar.Check(ctx, "clinic-a", piivault.CandidateValues{Phone: "6591234567"})
	require.NoError(t, err)
	assert.True(t, check.PhoneExists)

	// Check alone commits nothing: a fresh value stays registrable.
	check, err = registrar.Check(ctx, "clinic-a", piivault.CandidateValues{Phone: "6500000000"})
	require.NoError(t, err)
	assert.False(t, check.IsDuplicate)
	_, _, err = registrar.Register(ctx, piivault.RawRecord{
		Tenant: "clinic-a",
		Fields: map[string]string{piivault.FieldPhone: "6500000000"},
	})
	require.NoError(t, err)
}
