package schemafile

import (
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rcliao/entity-codec/internal/codec"
	"github.com/rcliao/entity-codec/internal/model"
)

const channelYAML = `
id: 3
name: Channel
properties:
  - name: Handle
    type: Text
  - name: Is Public
    type: Bool
  - name: Owner
    type: Internal
`

func TestParseSchema(t *testing.T) {
	schema, err := ParseSchema([]byte(channelYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := &model.ClassSchema{
		ID:   3,
		Name: "Channel",
		Properties: []model.PropertyDescriptor{
			{Name: "Handle", TypeName: "Text"},
			{Name: "Is Public", TypeName: "Bool"},
			{Name: "Owner", TypeName: "Internal"},
		},
	}
	if diff := cmp.Diff(want, schema); diff != "" {
		t.Errorf("schema mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSchemaJSON(t *testing.T) {
	schema, err := ParseSchema([]byte(`{"id": 1, "properties": [{"name": "Title", "type": "Text"}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if schema.ID != 1 || len(schema.Properties) != 1 {
		t.Errorf("unexpected schema: %+v", schema)
	}
}

func TestParseSchemaRejects(t *testing.T) {
	_, err := ParseSchema([]byte("id: 1\nproperties:\n  - name: Poster\n    type: Image\n"))
	if !errors.Is(err, codec.ErrUnknownPropertyType) {
		t.Errorf("expected ErrUnknownPropertyType, got %v", err)
	}

	_, err = ParseSchema([]byte("id: 1\nproperties:\n  - name: Full Name\n    type: Text\n  - name: full_name\n    type: Text\n"))
	if err == nil {
		t.Error("expected colliding field names to be rejected")
	}

	_, err = ParseSchema([]byte("id: 1\nproperties:\n  - type: Text\n"))
	if err == nil {
		t.Error("expected missing name to be rejected")
	}
}

func TestLoadSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channel.yaml")
	if err := os.WriteFile(path, []byte(channelYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	schema, err := LoadSchema(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if schema.Name != "Channel" {
		t.Errorf("expected Channel, got %q", schema.Name)
	}

	if _, err := LoadSchema(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseEntities(t *testing.T) {
	doc := `[
		// channel snapshot
		{
			"class_id": 3,
			"in_class_schema_indexes": [0],
			"id": 10,
			"values": [
				{"in_class_index": 0, "value": {"Text": "cats"}},
				{"in_class_index": 2, "value": {"Internal": "18446744073709551615"}},
				{"in_class_index": 1, "value": {"Bool": true}},
			],
		},
	]`
	entities, err := ParseEntities([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(entities))
	}
	e := entities[0]
	if e.ClassID != 3 || e.ID != 10 || len(e.Values) != 3 {
		t.Fatalf("unexpected entity: %+v", e)
	}
	owner, ok := e.Values[1].Value.Value.(*big.Int)
	if !ok || owner.String() != "18446744073709551615" {
		t.Errorf("expected big owner id, got %#v", e.Values[1].Value.Value)
	}

	single, err := ParseEntities([]byte(`{"class_id": 3, "id": 11, "values": []}`))
	if err != nil || len(single) != 1 || single[0].ID != 11 {
		t.Errorf("expected single entity 11, got %+v, %v", single, err)
	}

	if _, err := ParseEntities([]byte(`[{"values": [{"in_class_index": 0, "value": {"Float": 1}}]}]`)); err == nil {
		t.Error("expected unknown variant to be rejected")
	}
}

func TestParseUpdate(t *testing.T) {
	update, err := ParseUpdate([]byte(`{
		"handle": "dogs", // new handle
		"subscriberCount": 12345678901234567890,
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := map[string]any{"handle": "dogs", "subscriberCount": json.Number("12345678901234567890")}
	if diff := cmp.Diff(want, update); diff != "" {
		t.Errorf("update mismatch (-want +got):\n%s", diff)
	}

	empty, err := ParseUpdate([]byte("null"))
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("expected empty update, got %v, %v", empty, err)
	}
}

func TestValidateLimits(t *testing.T) {
	if err := Validate(&model.ClassSchema{ID: model.MaxID + 1}); err == nil {
		t.Error("expected class id above MaxID to be rejected")
	}

	props := make([]model.PropertyDescriptor, model.MaxProperties+1)
	for i := range props {
		props[i] = model.PropertyDescriptor{Name: "Title", TypeName: "Text"}
	}
	err := Validate(&model.ClassSchema{ID: 1, Properties: props})
	if err == nil || !strings.Contains(err.Error(), "u16 index") {
		t.Errorf("expected too many properties to be rejected, got %v", err)
	}
}

func TestParseEntitiesRejectsWideIDs(t *testing.T) {
	_, err := ParseEntities([]byte(`{"class_id": 3, "id": 18446744073709551615, "values": []}`))
	if err == nil {
		t.Error("expected id above MaxID to be rejected")
	}
}
