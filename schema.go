package piivault

import (
	"fmt"
	"io"

	"github.com/hengadev/errsx"
	"gopkg.in/yaml.v3"
)

// FieldSpec declares how one field of an entity is handled by RecordCodec.
// Adding a sensitive field to an entity is a one-line schema change, not a
// new hand-written encrypt/decrypt block.
type FieldSpec struct {
	// Name is the field's storage attribute name.
	Name string `yaml:"name"`

	// Sensitive fields are encrypted into StoredFields; non-sensitive
	// fields pass through as plaintext attributes.
	Sensitive bool `yaml:"sensitive"`

	// Hashed fields additionally get a LookupKey so they stay searchable
	// for equality. Only meaningful on sensitive fields.
	Hashed bool `yaml:"hashed"`

	// Purpose selects the normalization rule and the hash key for a hashed
	// field. Required when Hashed is true.
	Purpose HashPurpose `yaml:"purpose,omitempty"`
}

// Schema is the declared shape of one entity, consumed by RecordCodec.
type Schema struct {
	Entity string      `yaml:"entity"`
	Fields []FieldSpec `yaml:"fields"`
}

// Validate checks the schema for internal consistency. All problems are
// reported at once.
func (s Schema) Validate() error {
	errs := make(errsx.Map)

	if s.Entity == "" {
		errs.Set("entity", "entity name is required")
	}
	if len(s.Fields) == 0 {
		errs.Set("fields", "at least one field is required")
	}

	seen := make(map[string]bool, len(s.Fields))
	for _, field := range s.Fields {
		if field.Name == "" {
			errs.Set("field name", "field name must not be empty")
			continue
		}
		if seen[field.Name] {
			errs.Set(fmt.Sprintf("field '%s'", field.Name), "duplicate field name")
		}
		seen[field.Name] = true

		if field.Hashed && !field.Sensitive {
			errs.Set(fmt.Sprintf("field '%s'", field.Name), "hashed fields must be sensitive")
		}
		if field.Hashed {
			if _, err := normalizerFor(field.Purpose); err != nil {
				errs.Set(fmt.Sprintf("field '%s'", field.Name),
					fmt.Sprintf("hashed field needs a known purpose, got '%s'", field.Purpose))
			}
		}
	}

	if err := errs.AsError(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	return nil
}

// LoadSchema reads and validates a YAML schema document:
//
//	entity: patient
//	fields:
//	  - name: full_name
//	    sensitive: true
//	    hashed: true
//	    purpose: name
//	  - name: status
func LoadSchema(r io.Reader) (Schema, error) {
	var schema Schema
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&schema); err != nil {
		return Schema{}, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	if err := schema.Validate(); err != nil {
		return Schema{}, err
	}
	return schema, nil
}

// PatientSchema is the built-in schema for clinic patient records: phone,
// email and name are searchable for duplicate detection, dob and address are
// encrypted only.
func PatientSchema() Schema {
	return Schema{
		Entity: "patient",
		Fields: []FieldSpec{
			{Name: FieldFullName, Sensitive: true, Hashed: true, Purpose: PurposeName},
			{Name: FieldPhone, Sensitive: true, Hashed: true, Purpose: PurposePhone},
			{Name: FieldEmail, Sensitive: true, Hashed: true, Purpose: PurposeEmail},
			{Name: FieldDOB, Sensitive: true},
			{Name: FieldAddress, Sensitive: true},
		},
	}
}
