package codec

import (
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rcliao/entity-codec/internal/model"
)

type channel struct {
	ClassID         int64    `json:"classId"`
	ID              int64    `json:"id"`
	Handle          string   `json:"handle,omitempty"`
	IsPublic        *bool    `json:"isPublic,omitempty"`
	SubscriberCount int64    `json:"subscriberCount,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

func TestTypedDecode(t *testing.T) {
	c := NewTyped[channel](channelSchema(), WithLogger(quietLogger()))

	raw := &model.RawEntity{
		ClassID: 3,
		ID:      11,
		Values: []model.PropertyValue{
			{InClassIndex: 0, Value: model.RawValue{Type: model.TypeText, Value: "music"}},
			{InClassIndex: 1, Value: model.RawValue{Type: model.TypeBool, Value: false}},
			{InClassIndex: 2, Value: model.RawValue{Type: model.TypeUint32, Value: big.NewInt(88)}},
			{InClassIndex: 4, Value: model.RawValue{Type: model.TypeTextVec, Value: []any{"jazz"}}},
		},
	}

	got, err := c.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	public := false
	want := channel{ClassID: 3, ID: 11, Handle: "music", IsPublic: &public, SubscriberCount: 88, Tags: []string{"jazz"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded mismatch (-want +got):\n%s", diff)
	}

	all, err := c.DecodeAll([]*model.RawEntity{raw, nil, {ClassID: 3, ID: 12}})
	if err != nil {
		t.Fatalf("decode all: %v", err)
	}
	if len(all) != 2 || all[1].ID != 12 {
		t.Errorf("expected 2 entities ending with id 12, got %+v", all)
	}
}

func TestTypedEncode(t *testing.T) {
	c := NewTyped[channel](channelSchema(), WithLogger(quietLogger()))

	public := true
	u, err := c.Encode(channel{ClassID: 3, ID: 11, Handle: "news", IsPublic: &public, SubscriberCount: 5})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(u.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %v", u.Err())
	}

	var indexes []uint16
	for _, a := range u.Assignments {
		indexes = append(indexes, a.InClassIndex)
	}
	if diff := cmp.Diff([]uint16{0, 1, 2}, indexes); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}
	if u.Assignments[1].Value.Value != true {
		t.Errorf("expected isPublic true, got %#v", u.Assignments[1].Value.Value)
	}
}
