// Package registry holds the process-wide CBOR type registry for property
// values. Every property type variant is bound to a CBOR tag number so that
// stored values and queued updates are self-describing.
//
// Setup must be called once during startup before values are marshalled.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/fxamacker/cbor/v2"

	"github.com/rcliao/entity-codec/internal/model"
)

// CBOR tag numbers. Variant tags are TagVariantBase plus the variant's
// ordinal in model.PropertyTypes.
const (
	TagValues      uint64 = 61000
	TagAssignments uint64 = 61001
	TagVariantBase uint64 = 61100
)

var (
	// ErrRegistration is returned when the type registry cannot be built.
	ErrRegistration = errors.New("type registration failed")

	// ErrNotRegistered is returned by Default when Setup has not run or
	// has failed.
	ErrNotRegistered = errors.New("type registry not set up")
)

// wireValue is a property index paired with a tagged, pre-encoded value.
type wireValue struct {
	_     struct{} `cbor:",toarray"`
	Index uint16
	Value cbor.RawMessage
}

type valueList []wireValue

type assignmentList []wireValue

// Registry maps property type variants to CBOR tags and carries the
// encoder and decoder modes configured with them.
type Registry struct {
	enc    cbor.EncMode
	dec    cbor.DecMode
	tags   map[model.PropertyType]uint64
	byTag  map[uint64]model.PropertyType
	byName map[string]model.PropertyType
}

// New registers the given variants. It fails with ErrRegistration if a
// variant is invalid or registered twice.
func New(types []model.PropertyType) (*Registry, error) {
	r := &Registry{
		tags:   make(map[model.PropertyType]uint64, len(types)),
		byTag:  make(map[uint64]model.PropertyType, len(types)),
		byName: make(map[string]model.PropertyType, len(types)),
	}
	for _, t := range types {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: invalid variant %d", ErrRegistration, int(t))
		}
		name := t.String()
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("%w: variant %s registered twice", ErrRegistration, name)
		}
		num := TagVariantBase + uint64(t)
		r.tags[t] = num
		r.byTag[num] = t
		r.byName[name] = t
	}

	tags := cbor.NewTagSet()
	required := cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired}
	if err := tags.Add(required, reflect.TypeOf(valueList(nil)), TagValues); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistration, err)
	}
	if err := tags.Add(required, reflect.TypeOf(assignmentList(nil)), TagAssignments); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistration, err)
	}

	var err error
	encOptions := cbor.CoreDetEncOptions()
	r.enc, err = encOptions.EncModeWithTags(tags)
	if err != nil {
		return nil, fmt.Errorf("%w: encoder: %v", ErrRegistration, err)
	}
	r.dec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecModeWithTags(tags)
	if err != nil {
		return nil, fmt.Errorf("%w: decoder: %v", ErrRegistration, err)
	}
	return r, nil
}

// Tag returns the CBOR tag number bound to t.
func (r *Registry) Tag(t model.PropertyType) (uint64, bool) {
	num, ok := r.tags[t]
	return num, ok
}

// Lookup returns the variant registered under a variant name.
func (r *Registry) Lookup(name string) (model.PropertyType, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// MarshalValues encodes raw property values.
func (r *Registry) MarshalValues(values []model.PropertyValue) ([]byte, error) {
	list := make(valueList, len(values))
	for i, pv := range values {
		data, err := r.marshalTagged(pv.Value.Type, pv.Value.Value)
		if err != nil {
			return nil, fmt.Errorf("property %d: %w", pv.InClassIndex, err)
		}
		list[i] = wireValue{Index: pv.InClassIndex, Value: data}
	}
	return r.enc.Marshal(list)
}

// UnmarshalValues decodes the output of MarshalValues. Integer values come
// back as *big.Int, matching values read from JSON.
func (r *Registry) UnmarshalValues(data []byte) ([]model.PropertyValue, error) {
	var list valueList
	if err := r.dec.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("unmarshal values: %w", err)
	}
	out := make([]model.PropertyValue, len(list))
	for i, w := range list {
		t, content, err := r.unmarshalTagged(w.Value)
		if err != nil {
			return nil, fmt.Errorf("property %d: %w", w.Index, err)
		}
		v, err := model.NormalizeRawValue(t, content)
		if err != nil {
			return nil, fmt.Errorf("property %d: %w", w.Index, err)
		}
		out[i] = model.PropertyValue{InClassIndex: w.Index, Value: model.RawValue{Type: t, Value: v}}
	}
	return out, nil
}

// MarshalAssignments encodes an entity update.
func (r *Registry) MarshalAssignments(assignments []model.Assignment) ([]byte, error) {
	list := make(assignmentList, len(assignments))
	for i, a := range assignments {
		data, err := r.marshalTagged(a.Value.Type, a.Value.Value)
		if err != nil {
			return nil, fmt.Errorf("property %d: %w", a.InClassIndex, err)
		}
		list[i] = wireValue{Index: a.InClassIndex, Value: data}
	}
	return r.enc.Marshal(list)
}

// UnmarshalAssignments decodes the output of MarshalAssignments. Bool
// vectors come back as []bool; other values keep their decoded CBOR form.
func (r *Registry) UnmarshalAssignments(data []byte) ([]model.Assignment, error) {
	var list assignmentList
	if err := r.dec.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("unmarshal assignments: %w", err)
	}
	out := make([]model.Assignment, len(list))
	for i, w := range list {
		t, content, err := r.unmarshalTagged(w.Value)
		if err != nil {
			return nil, fmt.Errorf("property %d: %w", w.Index, err)
		}
		if t == model.TypeBoolVec {
			content, err = boolSlice(content)
			if err != nil {
				return nil, fmt.Errorf("property %d: %w", w.Index, err)
			}
		}
		out[i] = model.Assignment{InClassIndex: w.Index, Value: model.TypedValue{Type: t, Value: content}}
	}
	return out, nil
}

func (r *Registry) marshalTagged(t model.PropertyType, v any) (cbor.RawMessage, error) {
	num, ok := r.tags[t]
	if !ok {
		return nil, fmt.Errorf("variant %s is not registered", t)
	}
	return r.enc.Marshal(cbor.Tag{Number: num, Content: v})
}

func (r *Registry) unmarshalTagged(data cbor.RawMessage) (model.PropertyType, any, error) {
	var tag cbor.RawTag
	if err := r.dec.Unmarshal(data, &tag); err != nil {
		return 0, nil, err
	}
	t, ok := r.byTag[tag.Number]
	if !ok {
		return 0, nil, fmt.Errorf("unknown variant tag %d", tag.Number)
	}
	var content any
	if err := r.dec.Unmarshal(tag.Content, &content); err != nil {
		return 0, nil, err
	}
	return t, content, nil
}

func boolSlice(in any) ([]bool, error) {
	items, ok := in.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", in)
	}
	out := make([]bool, len(items))
	for i, item := range items {
		b, ok := item.(bool)
		if !ok {
			return nil, fmt.Errorf("element %d: expected bool, got %T", i, item)
		}
		out[i] = b
	}
	return out, nil
}

type setupResult struct {
	registry *Registry
	err      error
}

var (
	setupOnce sync.Once
	current   atomic.Pointer[setupResult]
)

// Setup builds the process-wide registry from every known variant. It runs
// the registration at most once; later calls return the first result. A
// failure is logged and returned but never panics.
func Setup(logger *slog.Logger) error {
	setupOnce.Do(func() {
		if logger == nil {
			logger = slog.Default()
		}
		r, err := New(model.PropertyTypes())
		current.Store(&setupResult{registry: r, err: err})
		if err != nil {
			logger.Error("property type registration failed", "error", err)
			return
		}
		logger.Debug("registered property types", "variants", len(r.tags))
	})
	return current.Load().err
}

// Default returns the registry built by Setup.
func Default() (*Registry, error) {
	res := current.Load()
	switch {
	case res == nil:
		return nil, ErrNotRegistered
	case res.err != nil:
		return nil, fmt.Errorf("%w: %v", ErrNotRegistered, res.err)
	}
	return res.registry, nil
}
