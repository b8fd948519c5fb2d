package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rcliao/entity-codec/internal/model"
)

// Typed wraps an EntityCodec for a known plain entity shape T. T is usually
// a struct whose json tags name the codec's fields and, optionally, the
// classId, inClassSchemaIndexes and id metadata keys.
type Typed[T any] struct {
	*EntityCodec
}

// NewTyped builds a Typed codec for schema.
func NewTyped[T any](schema *model.ClassSchema, opts ...Option) *Typed[T] {
	return &Typed[T]{EntityCodec: New(schema, opts...)}
}

// Decode decodes raw into a T via its plain entity form.
func (c *Typed[T]) Decode(raw *model.RawEntity) (T, error) {
	var out T
	data, err := json.Marshal(c.ToPlainObject(raw))
	if err != nil {
		return out, fmt.Errorf("decode entity %d: %w", raw.ID, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode entity %d: %w", raw.ID, err)
	}
	return out, nil
}

// DecodeAll decodes each raw entity in order, skipping nil entries.
func (c *Typed[T]) DecodeAll(raws []*model.RawEntity) ([]T, error) {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		if raw == nil {
			continue
		}
		v, err := c.Decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Encode encodes the fields of v that v's JSON form carries. Fields left
// out by omitempty are not part of the update.
func (c *Typed[T]) Encode(v T) (Update, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Update{}, fmt.Errorf("encode update: %w", err)
	}
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return Update{}, fmt.Errorf("encode update: %w", err)
	}
	return c.ToSubstrateUpdate(fields), nil
}
