package codec

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
)

// DecodeValue converts a raw value's runtime representation into a plain
// value. The second result is false when the value is absent (nil), in
// which case the field must be left out of the plain object.
//
// Integers that fit in an int64 decode to int64. Larger ones decode to a
// float64 approximation unless wide is set, in which case they are kept as
// *big.Int.
func DecodeValue(raw any, wide bool) (any, bool) {
	if raw != nil {
		if rv := reflect.ValueOf(raw); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, false
		}
	}

	switch x := raw.(type) {
	case nil:
		return nil, false
	case string:
		return x, true
	case bool:
		return x, true
	case *big.Int:
		return decodeBig(x, wide), true
	case big.Int:
		return decodeBig(&x, wide), true
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return decodeBig(new(big.Int).SetUint64(x), wide), true
		}
		return int64(x), true
	case []any:
		return decodeSlice(len(x), func(i int) any { return x[i] }, wide), true
	case fmt.Stringer:
		return x.String(), true
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}, true
		}
		return decodeSlice(rv.Len(), func(i int) any { return rv.Index(i).Interface() }, wide), true
	}
	return fmt.Sprint(raw), true
}

// decodeSlice decodes each element in turn. Absent elements become nil so
// that positions are preserved.
func decodeSlice(n int, at func(int) any, wide bool) []any {
	out := make([]any, n)
	for i := range out {
		if v, ok := DecodeValue(at(i), wide); ok {
			out[i] = v
		}
	}
	return out
}

func decodeBig(x *big.Int, wide bool) any {
	if x.IsInt64() {
		return x.Int64()
	}
	if wide {
		return new(big.Int).Set(x)
	}
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}
