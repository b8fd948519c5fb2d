// Package codec converts between index-keyed on-chain entity records and
// plain objects keyed by field name.
//
// An EntityCodec is built once per entity class from its schema. Decoding
// never fails: values whose index is not in the schema are dropped.
// Encoding is best-effort per field: a field that cannot be encoded is
// reported as a diagnostic and left out, the remaining fields are still
// returned.
package codec

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/rcliao/entity-codec/internal/model"
)

type fieldInfo struct {
	index    int
	typeName string
}

// EntityCodec converts entities of a single class. It is immutable after
// New returns and safe for concurrent use.
type EntityCodec struct {
	classID uint64
	fields  map[string]fieldInfo
	names   []string
	logger  *slog.Logger
	wide    bool
}

// AnyEntityCodec is an EntityCodec used where the plain entity shape is not
// known statically. See Typed for the statically shaped form.
type AnyEntityCodec = EntityCodec

// Option configures an EntityCodec.
type Option func(*EntityCodec)

// WithLogger sets the logger that receives encode diagnostics. The default
// is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *EntityCodec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithWideIntegers keeps integers outside the int64 range as *big.Int
// instead of approximating them with float64.
func WithWideIntegers() Option {
	return func(c *EntityCodec) { c.wide = true }
}

// New builds the name/index map for schema. Property i of the schema gets
// in-class index i. Properties past model.MaxProperties cannot be addressed
// by a u16 index and are left out. It panics if schema is nil.
func New(schema *model.ClassSchema, opts ...Option) *EntityCodec {
	if schema == nil {
		panic("codec: nil class schema")
	}
	props := schema.Properties[:min(len(schema.Properties), model.MaxProperties)]
	c := &EntityCodec{
		classID: schema.ID,
		fields:  make(map[string]fieldInfo, len(props)),
		names:   make([]string, len(props)),
		logger:  slog.Default(),
	}
	for i, p := range props {
		name := FieldName(p.Name)
		c.fields[name] = fieldInfo{index: i, typeName: p.TypeName}
		c.names[i] = name
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClassID returns the id of the class the codec was built for.
func (c *EntityCodec) ClassID() uint64 { return c.classID }

// Fields returns the field names in index order.
func (c *EntityCodec) Fields() []string { return slices.Clone(c.names) }

// IndexOfField returns the in-class index of a field name.
func (c *EntityCodec) IndexOfField(name string) (int, bool) {
	f, ok := c.fields[name]
	return f.index, ok
}

// FieldAt returns the field name at an in-class index.
func (c *EntityCodec) FieldAt(index int) (string, bool) {
	if index < 0 || index >= len(c.names) {
		return "", false
	}
	return c.names[index], true
}

// TypeOfField returns the declared type name of a field.
func (c *EntityCodec) TypeOfField(name string) (string, bool) {
	f, ok := c.fields[name]
	return f.typeName, ok
}

// ToPlainObject decodes raw into a plain entity.
func (c *EntityCodec) ToPlainObject(raw *model.RawEntity) model.PlainEntity {
	plain, dropped := c.Decode(raw)
	for _, d := range dropped {
		c.logger.Debug("dropped property value", "class", raw.ClassID, "entity", raw.ID, "index", d.Index)
	}
	return plain
}

// Decode decodes raw into a plain entity and also reports the values that
// were dropped because their index is not part of the schema. Each dropped
// value yields a *FieldError wrapping ErrSchemaIndexNotFound.
func (c *EntityCodec) Decode(raw *model.RawEntity) (model.PlainEntity, []*FieldError) {
	plain := model.PlainEntity{
		ClassID:              int64(raw.ClassID),
		InClassSchemaIndexes: make([]int, len(raw.SchemaIndexes)),
		ID:                   int64(raw.ID),
		Fields:               make(map[string]any, len(raw.Values)),
	}
	for i, idx := range raw.SchemaIndexes {
		plain.InClassSchemaIndexes[i] = int(idx)
	}

	var dropped []*FieldError
	for _, pv := range raw.Values {
		name, ok := c.FieldAt(int(pv.InClassIndex))
		if !ok {
			dropped = append(dropped, &FieldError{
				Index:    int(pv.InClassIndex),
				TypeName: pv.Value.Type.String(),
				Err:      ErrSchemaIndexNotFound,
			})
			continue
		}
		if v, ok := DecodeValue(pv.Value.Value, c.wide); ok {
			plain.Fields[name] = v
		}
	}
	return plain, dropped
}

// ToPlainObjects decodes each raw entity in order. Nil entries are skipped.
func (c *EntityCodec) ToPlainObjects(raws []*model.RawEntity) []model.PlainEntity {
	out := make([]model.PlainEntity, 0, len(raws))
	for _, raw := range raws {
		if raw == nil {
			continue
		}
		out = append(out, c.ToPlainObject(raw))
	}
	return out
}

// Update is the result of encoding a partial plain entity.
type Update struct {
	// Assignments holds the encoded fields ordered by in-class index.
	Assignments []model.Assignment `json:"assignments"`
	// Diagnostics holds one entry per field that could not be encoded.
	Diagnostics []*FieldError `json:"-"`
}

// Err joins the diagnostics into a single error, or returns nil.
func (u Update) Err() error {
	errs := make([]error, len(u.Diagnostics))
	for i, d := range u.Diagnostics {
		errs[i] = d
	}
	return errors.Join(errs...)
}

// ToSubstrateUpdate encodes the known fields of update. Keys that are not
// field names of the class are ignored. A field that fails to encode is
// logged, recorded in Diagnostics and left out of Assignments.
func (c *EntityCodec) ToSubstrateUpdate(update map[string]any) Update {
	u := Update{Assignments: []model.Assignment{}}
	for name, value := range update {
		f, ok := c.fields[name]
		if !ok {
			continue
		}
		tv, err := EncodeValue(f.typeName, value)
		if err != nil {
			d := &FieldError{Field: name, Index: f.index, TypeName: f.typeName, Err: err}
			c.logger.Warn("skipping field in entity update",
				"class", c.classID, "field", name, "index", f.index, "type", f.typeName, "error", err)
			u.Diagnostics = append(u.Diagnostics, d)
			continue
		}
		u.Assignments = append(u.Assignments, model.Assignment{InClassIndex: uint16(f.index), Value: tv})
	}
	slices.SortFunc(u.Assignments, func(a, b model.Assignment) int {
		return int(a.InClassIndex) - int(b.InClassIndex)
	})
	slices.SortFunc(u.Diagnostics, func(a, b *FieldError) int { return a.Index - b.Index })
	return u
}
