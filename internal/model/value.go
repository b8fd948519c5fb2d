package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TypedValue is an encoded property value ready for submission. Value is
// the plain value after type-directed coercion: bool or []bool for the
// Bool variants, nil for None and the caller's representation (numeric
// string, number or text) for everything else.
type TypedValue struct {
	Type  PropertyType
	Value any
}

// MarshalJSON encodes v in the tagged form {"<Variant>": value}.
func (v TypedValue) MarshalJSON() ([]byte, error) {
	if !v.Type.Valid() {
		return nil, fmt.Errorf("marshal typed value: invalid property type %d", int(v.Type))
	}
	return json.Marshal(map[string]any{v.Type.String(): v.Value})
}

// UnmarshalJSON decodes the tagged form {"<Variant>": value}. The value is
// kept as decoded, with numbers as json.Number.
func (v *TypedValue) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("typed value: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("typed value: expected exactly one variant key, got %d", len(tagged))
	}
	for name, payload := range tagged {
		t, ok := ParsePropertyType(name)
		if !ok {
			return fmt.Errorf("typed value: unknown property type %q", name)
		}
		var value any
		dec := json.NewDecoder(bytes.NewReader(payload))
		dec.UseNumber()
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("typed value %s: %w", name, err)
		}
		v.Type = t
		v.Value = value
	}
	return nil
}

// Assignment is one entry of an entity update: a typed value for the
// property at InClassIndex.
type Assignment struct {
	InClassIndex uint16     `json:"in_class_index"`
	Value        TypedValue `json:"value"`
}
