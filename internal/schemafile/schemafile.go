// Package schemafile reads class schemas, raw entity snapshots and partial
// updates from files.
package schemafile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/entity-codec/internal/codec"
	"github.com/rcliao/entity-codec/internal/model"
)

// ParseSchema decodes a class schema from YAML (JSON is accepted as YAML)
// and checks every declared type name.
func ParseSchema(data []byte) (*model.ClassSchema, error) {
	var schema model.ClassSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parsing class schema: %w", err)
	}
	if err := Validate(&schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

// Validate checks that every property has a name and a known type name
// and that no two properties share a field name. It also rejects class ids
// above model.MaxID and more than model.MaxProperties properties.
func Validate(schema *model.ClassSchema) error {
	if schema.ID > model.MaxID {
		return fmt.Errorf("class %d: id exceeds %d", schema.ID, uint64(model.MaxID))
	}
	if len(schema.Properties) > model.MaxProperties {
		return fmt.Errorf("class %d: %d properties exceed the %d addressable by a u16 index", schema.ID, len(schema.Properties), model.MaxProperties)
	}
	seen := make(map[string]int, len(schema.Properties))
	for i, p := range schema.Properties {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("class %d property %d: name is required", schema.ID, i)
		}
		if _, ok := model.ParsePropertyType(p.TypeName); !ok {
			return fmt.Errorf("class %d property %d (%s): %w: %q", schema.ID, i, p.Name, codec.ErrUnknownPropertyType, p.TypeName)
		}
		field := codec.FieldName(p.Name)
		if prev, dup := seen[field]; dup {
			return fmt.Errorf("class %d: properties %d and %d both map to field %q", schema.ID, prev, i, field)
		}
		seen[field] = i
	}
	return nil
}

// LoadSchema reads and parses a class schema file.
func LoadSchema(path string) (*model.ClassSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	schema, err := ParseSchema(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return schema, nil
}

// ParseEntities decodes raw entities from JSONC. The document may be a
// single entity object or an array of them.
func ParseEntities(data []byte) ([]model.RawEntity, error) {
	stripped := bytes.TrimSpace(jsonc.ToJSON(data))
	if len(stripped) == 0 {
		return nil, nil
	}
	var entities []model.RawEntity
	if stripped[0] == '{' {
		var entity model.RawEntity
		if err := json.Unmarshal(stripped, &entity); err != nil {
			return nil, fmt.Errorf("parsing entity: %w", err)
		}
		entities = []model.RawEntity{entity}
	} else if err := json.Unmarshal(stripped, &entities); err != nil {
		return nil, fmt.Errorf("parsing entities: %w", err)
	}
	for i, e := range entities {
		if e.ClassID > model.MaxID || e.ID > model.MaxID {
			return nil, fmt.Errorf("entity %d: class %d id %d exceeds %d", i, e.ClassID, e.ID, uint64(model.MaxID))
		}
	}
	return entities, nil
}

// ParseUpdate decodes a partial plain entity from JSONC. Numbers are kept
// as json.Number so integer fields are not rounded through float64.
func ParseUpdate(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	var update map[string]any
	if err := dec.Decode(&update); err != nil {
		return nil, fmt.Errorf("parsing update: %w", err)
	}
	if update == nil {
		update = map[string]any{}
	}
	return update, nil
}
