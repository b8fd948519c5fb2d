// Package model defines the entity, schema and property value types shared
// by the codec, registry and store.
package model

// PropertyType is one variant of the closed set of on-chain property types.
type PropertyType int

const (
	TypeNone PropertyType = iota
	TypeBool
	TypeUint16
	TypeUint32
	TypeUint64
	TypeInt16
	TypeInt32
	TypeInt64
	TypeText
	TypeInternal
	TypeBoolVec
	TypeUint16Vec
	TypeUint32Vec
	TypeUint64Vec
	TypeInt16Vec
	TypeInt32Vec
	TypeInt64Vec
	TypeTextVec
	TypeInternalVec

	numPropertyTypes
)

var propertyTypeNames = [numPropertyTypes]string{
	TypeNone:        "None",
	TypeBool:        "Bool",
	TypeUint16:      "Uint16",
	TypeUint32:      "Uint32",
	TypeUint64:      "Uint64",
	TypeInt16:       "Int16",
	TypeInt32:       "Int32",
	TypeInt64:       "Int64",
	TypeText:        "Text",
	TypeInternal:    "Internal",
	TypeBoolVec:     "BoolVec",
	TypeUint16Vec:   "Uint16Vec",
	TypeUint32Vec:   "Uint32Vec",
	TypeUint64Vec:   "Uint64Vec",
	TypeInt16Vec:    "Int16Vec",
	TypeInt32Vec:    "Int32Vec",
	TypeInt64Vec:    "Int64Vec",
	TypeTextVec:     "TextVec",
	TypeInternalVec: "InternalVec",
}

var propertyTypesByName = func() map[string]PropertyType {
	m := make(map[string]PropertyType, numPropertyTypes)
	for t, name := range propertyTypeNames {
		m[name] = PropertyType(t)
	}
	return m
}()

// PropertyTypes returns every known property type in declaration order.
func PropertyTypes() []PropertyType {
	types := make([]PropertyType, numPropertyTypes)
	for i := range types {
		types[i] = PropertyType(i)
	}
	return types
}

// ParsePropertyType resolves a declared type name such as "Uint32Vec".
// Names are case-sensitive.
func ParsePropertyType(name string) (PropertyType, bool) {
	t, ok := propertyTypesByName[name]
	return t, ok
}

// Valid reports whether t is one of the known variants.
func (t PropertyType) Valid() bool {
	return t >= 0 && t < numPropertyTypes
}

func (t PropertyType) String() string {
	if !t.Valid() {
		return "PropertyType(invalid)"
	}
	return propertyTypeNames[t]
}

// IsVec reports whether t is a vector variant.
func (t PropertyType) IsVec() bool {
	return t >= TypeBoolVec && t <= TypeInternalVec
}

// IsInteger reports whether t (or its element type, for vectors) is an
// integer or an internal entity reference.
func (t PropertyType) IsInteger() bool {
	switch t.Elem() {
	case TypeUint16, TypeUint32, TypeUint64, TypeInt16, TypeInt32, TypeInt64, TypeInternal:
		return true
	}
	return false
}

// Elem returns the scalar element type of a vector variant, or t itself.
func (t PropertyType) Elem() PropertyType {
	if t.IsVec() {
		return t - TypeBoolVec + TypeBool
	}
	return t
}
