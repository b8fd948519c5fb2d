package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaIndexNotFound marks a raw value whose property index is not
	// part of the class schema. The value is dropped during decode.
	ErrSchemaIndexNotFound = errors.New("schema index not found")

	// ErrUnsupportedBoolean is returned when a value is neither a bool, a
	// string nor a number and so cannot be read as a boolean.
	ErrUnsupportedBoolean = errors.New("unsupported boolean representation")

	// ErrUnknownPropertyType is returned for a declared type name outside
	// the known set.
	ErrUnknownPropertyType = errors.New("unknown property type name")

	// ErrExpectedArray is returned when a vector property is given a value
	// that is not a slice or array.
	ErrExpectedArray = errors.New("expected array for vector property")
)

// FieldError reports a failure to convert a single field. It unwraps to
// one of the sentinel errors above.
type FieldError struct {
	Field    string
	Index    int
	TypeName string
	Err      error
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("property %d (%s): %v", e.Index, e.TypeName, e.Err)
	}
	return fmt.Sprintf("field %q (index %d, %s): %v", e.Field, e.Index, e.TypeName, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }
