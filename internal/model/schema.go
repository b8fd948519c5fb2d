package model

import "math"

// Limits imposed by the wire and plain forms. In-class indexes are u16, and
// class and entity ids are rendered as int64 in plain entities.
const (
	MaxProperties = math.MaxUint16 + 1
	MaxID         = math.MaxInt64
)

// PropertyDescriptor describes one property of an entity class as
// published in chain metadata.
type PropertyDescriptor struct {
	Name     string `json:"name" yaml:"name"`
	TypeName string `json:"type" yaml:"type"`
}

// ClassSchema is the ordered property list of an entity class. The position
// of a descriptor in Properties is its in-class index, so at most
// MaxProperties descriptors are addressable.
type ClassSchema struct {
	ID         uint64               `json:"id" yaml:"id"`
	Name       string               `json:"name,omitempty" yaml:"name,omitempty"`
	Properties []PropertyDescriptor `json:"properties" yaml:"properties"`
}
