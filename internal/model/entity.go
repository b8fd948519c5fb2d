package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
)

// RawValue is a property value as read from the chain. Value holds the
// runtime representation: string for Text, *big.Int for integer and
// Internal variants, bool for Bool, []any for vectors and nil for None.
type RawValue struct {
	Type  PropertyType
	Value any
}

// PropertyValue assigns a raw value to an in-class property index.
type PropertyValue struct {
	InClassIndex uint16   `json:"in_class_index"`
	Value        RawValue `json:"value"`
}

// RawEntity is an entity record as returned by a chain query.
type RawEntity struct {
	ClassID       uint64          `json:"class_id"`
	SchemaIndexes []uint16        `json:"in_class_schema_indexes"`
	ID            uint64          `json:"id"`
	Values        []PropertyValue `json:"values"`
}

// MarshalJSON encodes v in the tagged form {"<Variant>": value}.
func (v RawValue) MarshalJSON() ([]byte, error) {
	if !v.Type.Valid() {
		return nil, fmt.Errorf("marshal raw value: invalid property type %d", int(v.Type))
	}
	return json.Marshal(map[string]any{v.Type.String(): v.Value})
}

// UnmarshalJSON decodes the tagged form {"<Variant>": value}. Integer
// variants accept either a JSON number or a numeric string.
func (v *RawValue) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("raw value: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("raw value: expected exactly one variant key, got %d", len(tagged))
	}
	for name, payload := range tagged {
		t, ok := ParsePropertyType(name)
		if !ok {
			return fmt.Errorf("raw value: unknown property type %q", name)
		}
		var generic any
		dec := json.NewDecoder(bytes.NewReader(payload))
		dec.UseNumber()
		if err := dec.Decode(&generic); err != nil {
			return fmt.Errorf("raw value %s: %w", name, err)
		}
		value, err := NormalizeRawValue(t, generic)
		if err != nil {
			return fmt.Errorf("raw value %s: %w", name, err)
		}
		v.Type = t
		v.Value = value
	}
	return nil
}

// NormalizeRawValue converts a generically decoded value (from JSON or
// CBOR) into the runtime representation used by RawValue for type t.
func NormalizeRawValue(t PropertyType, in any) (any, error) {
	if t == TypeNone {
		return nil, nil
	}
	if t.IsVec() {
		items, ok := in.([]any)
		if !ok {
			return nil, fmt.Errorf("expected array, got %T", in)
		}
		out := make([]any, len(items))
		for i, item := range items {
			elem, err := NormalizeRawValue(t.Elem(), item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = elem
		}
		return out, nil
	}
	switch t {
	case TypeBool:
		b, ok := in.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", in)
		}
		return b, nil
	case TypeText:
		s, ok := in.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", in)
		}
		return s, nil
	}
	return ParseInteger(in)
}

// ParseInteger converts a JSON number, numeric string or Go integer into a
// *big.Int.
func ParseInteger(in any) (*big.Int, error) {
	var s string
	switch x := in.(type) {
	case *big.Int:
		if x == nil {
			return nil, fmt.Errorf("expected integer, got nil")
		}
		return new(big.Int).Set(x), nil
	case big.Int:
		return new(big.Int).Set(&x), nil
	case json.Number:
		s = x.String()
	case string:
		s = x
	case int:
		return big.NewInt(int64(x)), nil
	case int64:
		return big.NewInt(x), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	default:
		return nil, fmt.Errorf("expected integer, got %T", in)
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}

// Metadata keys of a PlainEntity in its JSON form.
const (
	KeyClassID       = "classId"
	KeySchemaIndexes = "inClassSchemaIndexes"
	KeyID            = "id"
)

// PlainEntity is the field-name keyed form of an entity. Fields holds the
// decoded property values; an absent key means the property is not set.
// ClassID and ID are int64, so raw ids above MaxID do not survive the
// conversion.
type PlainEntity struct {
	ClassID              int64
	InClassSchemaIndexes []int
	ID                   int64
	Fields               map[string]any
}

// MarshalJSON flattens the metadata and the fields into a single object.
func (p PlainEntity) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Fields)+3)
	for k, v := range p.Fields {
		out[k] = v
	}
	indexes := p.InClassSchemaIndexes
	if indexes == nil {
		indexes = []int{}
	}
	out[KeyClassID] = p.ClassID
	out[KeySchemaIndexes] = indexes
	out[KeyID] = p.ID
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON. Numbers in Fields are kept
// as json.Number.
func (p *PlainEntity) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("plain entity: %w", err)
	}

	*p = PlainEntity{Fields: make(map[string]any, len(raw))}
	for k, v := range raw {
		switch k {
		case KeyClassID:
			n, err := jsonInt(v)
			if err != nil {
				return fmt.Errorf("plain entity %s: %w", k, err)
			}
			p.ClassID = n
		case KeyID:
			n, err := jsonInt(v)
			if err != nil {
				return fmt.Errorf("plain entity %s: %w", k, err)
			}
			p.ID = n
		case KeySchemaIndexes:
			items, ok := v.([]any)
			if !ok {
				return fmt.Errorf("plain entity %s: expected array, got %T", k, v)
			}
			p.InClassSchemaIndexes = make([]int, len(items))
			for i, item := range items {
				n, err := jsonInt(item)
				if err != nil {
					return fmt.Errorf("plain entity %s[%d]: %w", k, i, err)
				}
				p.InClassSchemaIndexes[i] = int(n)
			}
		default:
			p.Fields[k] = v
		}
	}
	return nil
}

func jsonInt(v any) (int64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected number, got %T", v)
	}
	return n.Int64()
}
