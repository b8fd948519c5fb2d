package codec

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/rcliao/entity-codec/internal/model"
)

// EncodeValue converts a plain value into the typed value for the declared
// type name. It fails with ErrUnknownPropertyType for names outside the
// known set, ErrUnsupportedBoolean for values that cannot be read as a
// boolean and ErrExpectedArray when a vector type is given a non-array.
func EncodeValue(typeName string, value any) (model.TypedValue, error) {
	t, ok := model.ParsePropertyType(typeName)
	if !ok {
		return model.TypedValue{}, fmt.Errorf("%w: %q", ErrUnknownPropertyType, typeName)
	}

	switch t {
	case model.TypeNone,
		model.TypeUint16, model.TypeUint32, model.TypeUint64,
		model.TypeInt16, model.TypeInt32, model.TypeInt64,
		model.TypeText, model.TypeInternal:
		return model.TypedValue{Type: t, Value: value}, nil

	case model.TypeBool:
		b, err := ParseBool(value)
		if err != nil {
			return model.TypedValue{}, err
		}
		return model.TypedValue{Type: t, Value: b}, nil

	case model.TypeBoolVec:
		items, err := toSlice(value)
		if err != nil {
			return model.TypedValue{}, err
		}
		out := make([]bool, len(items))
		for i, item := range items {
			b, err := ParseBool(item)
			if err != nil {
				return model.TypedValue{}, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = b
		}
		return model.TypedValue{Type: t, Value: out}, nil

	case model.TypeUint16Vec, model.TypeUint32Vec, model.TypeUint64Vec,
		model.TypeInt16Vec, model.TypeInt32Vec, model.TypeInt64Vec,
		model.TypeTextVec, model.TypeInternalVec:
		items, err := toSlice(value)
		if err != nil {
			return model.TypedValue{}, err
		}
		return model.TypedValue{Type: t, Value: items}, nil
	}

	// Reached only if a variant is added to model without a case above.
	return model.TypedValue{}, fmt.Errorf("%w: %q has no encoder", ErrUnknownPropertyType, typeName)
}

// ParseBool reads a boolean from a bool, a string or a number. Strings and
// numbers are true when their lower-cased string form is "true", "yes" or
// "1" and false otherwise.
func ParseBool(value any) (bool, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	s, ok := scalarString(value)
	if !ok {
		return false, fmt.Errorf("%w: %T", ErrUnsupportedBoolean, value)
	}
	switch strings.ToLower(s) {
	case "true", "yes", "1":
		return true, nil
	}
	return false, nil
}

// scalarString returns the string form of a string or numeric value.
func scalarString(value any) (string, bool) {
	switch x := value.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case *big.Int:
		if x == nil {
			return "", false
		}
		return x.String(), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.String:
		return rv.String(), true
	}
	return "", false
}

func toSlice(value any) ([]any, error) {
	if items, ok := value.([]any); ok {
		return items, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: %T", ErrExpectedArray, value)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
