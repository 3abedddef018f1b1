package piivault_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/piivault"
)

func TestLoadSchema(t *testing.T) {
	doc := `
entity: patient
fields:
  - name: full_name
    sensitive: true
    hashed: true
    purpose: name
  - name: phone
    sensitive: true
    hashed: true
    purpose: phone
  - name: dob
    sensitive: true
  - name: status
`
	schema, err := piivault.LoadSchema(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "patient", schema.Entity)
	require.Len(t, schema.Fields, 4)
	assert.Equal(t, piivault.PurposeName, schema.Fields[0].Purpose)
	assert.False(t, schema.Fields[3].Sensitive)
}

func TestLoadSchemaRejectsUnknownKeys(t *testing.T) {
	doc := `
entity: patient
fields:
  - name: phone
    sensitive: true
    encrypted: true
`
	_, err := piivault.LoadSchema(strings.NewReader(doc))
	assert.ErrorIs(t, err, piivault.ErrInvalidSchema)
}

func TestSchemaValidate(t *testing.T) {
	tests := []struct {
		name   string
		schema piivault.Schema
	}{
		{
			name:   "missing entity",
			schema: piivault.Schema{Fields: []piivault.FieldSpec{{Name: "phone", Sensitive: true}}},
		},
		{
			name:   "no fields",
			schema: piivault.Schema{Entity: "patient"},
		},
		{
			name: "empty field name",
			schema: piivault.Schema{Entity: "patient", Fields: []piivault.FieldSpec{
				{Name: "", Sensitive: true},
			}},
		},
		{
			name: "duplicate field name",
			schema: piivault.Schema{Entity: "patient", Fields: []piivault.FieldSpec{
				{Name: "phone", Sensitive: true},
				{Name: "phone", Sensitive: true},
			}},
		},
		{
			name: "hashed but not sensitive",
			schema: piivault.Schema{Entity: "patient", Fields: []piivault.FieldSpec{
				{Name: "phone", Hashed: true, Purpose: piivault.PurposePhone},
			}},
		},
		{
			name: "hashed with unknown purpose",
			schema: piivault.Schema{Entity: "patient", Fields: []piivault.FieldSpec{
				{Name: "phone", Sensitive: true, Hashed: true, Purpose: "fingerprint"},
			}},
		},
		{
			name: "hashed with no purpose",
			schema: piivault.Schema{Entity: "patient", Fields: []piivault.FieldSpec{
				{Name: "phone", Sensitive: true, Hashed: true},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			assert.ErrorIs(t, err, piivault.ErrInvalidSchema)
			assert.True(t, piivault.IsConfigurationError(err))
		})
	}
}

func TestSchemaValidateReportsAllProblems(t *testing.T) {
	schema := piivault.Schema{
		Fields: []piivault.FieldSpec{
			{Name: "phone", Hashed: true},
			{Name: "phone", Sensitive: true},
		},
	}
	err := schema.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity")
	assert.Contains(t, err.Error(), "phone")
}

func TestPatientSchemaIsValid(t *testing.T) {
	require.NoError(t, piivault.PatientSchema().Validate())
}
