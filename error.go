package dynoitem

import (
	"errors"
	"fmt"
)

// ErrInvalidType is returned when an attribute value holds a different member
// variant than the one expected by the target Go type, such as decoding a
// BOOL attribute into a string field.
var ErrInvalidType = errors.New("invalid attribute type")

// ErrInvalidFormat is returned when an attribute value holds the expected
// member variant but its contents cannot be converted to the target Go type,
// such as decoding {"N": "abc"} into an integer field.
var ErrInvalidFormat = errors.New("invalid attribute format")

// MissingFieldError is returned when a required field's wire name is absent
// from the item being decoded. Name holds the effective wire name, after any
// rename directive is applied.
type MissingFieldError struct {
	Name string
}

func (e MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %s", e.Name)
}

// SchemaError reports an invalid schema declaration, such as duplicate key
// directives or a flatten directive combined with another option. It is
// raised once when a schema is derived, never during marshal or unmarshal
// calls.
type SchemaError struct {
	// Type is the name of the type whose schema failed to derive.
	Type string
	// Field is the Go field or union variant at fault, if any.
	Field string
	// Reason describes the validation failure.
	Reason string
}

func (e SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema %s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("schema %s: field %s: %s", e.Type, e.Field, e.Reason)
}

func schemaErrorf(typ, field, format string, args ...any) error {
	return SchemaError{Type: typ, Field: field, Reason: fmt.Sprintf(format, args...)}
}
