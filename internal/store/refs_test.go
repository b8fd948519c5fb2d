package store

import (
	"context"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rcliao/entity-codec/internal/model"
)

func TestReferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.PutEntity(ctx, video(1, "a", 5, 2, 3))
	s.PutEntity(ctx, video(2, "b", 5, 1))

	refs, err := s.References(ctx, 7, 1)
	if err != nil {
		t.Fatalf("references: %v", err)
	}
	wantOut := []Reference{
		{FromClass: 7, FromID: 1, Index: 1, ToID: 5},
		{FromClass: 7, FromID: 1, Index: 3, ToID: 2},
		{FromClass: 7, FromID: 1, Index: 3, ToID: 3},
	}
	if diff := cmp.Diff(wantOut, refs.Outgoing); diff != "" {
		t.Errorf("outgoing mismatch (-want +got):\n%s", diff)
	}
	wantIn := []Reference{{FromClass: 7, FromID: 2, Index: 3, ToID: 1}}
	if diff := cmp.Diff(wantIn, refs.Incoming); diff != "" {
		t.Errorf("incoming mismatch (-want +got):\n%s", diff)
	}
}

func TestReferencesReplacedOnUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.PutEntity(ctx, video(1, "a", 5, 2))
	s.PutEntity(ctx, video(1, "a", 6))

	refs, err := s.References(ctx, 7, 1)
	if err != nil {
		t.Fatalf("references: %v", err)
	}
	if len(refs.Outgoing) != 1 || refs.Outgoing[0].ToID != 6 {
		t.Errorf("expected only the new channel reference, got %+v", refs.Outgoing)
	}

	incoming, _ := s.References(ctx, 7, 2)
	if len(incoming.Incoming) != 0 {
		t.Errorf("expected stale reference to be removed, got %+v", incoming.Incoming)
	}
}

func TestIncomingReferencesMatchIDAcrossClasses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.PutEntity(ctx, video(1, "a", 40))
	s.PutEntity(ctx, &model.RawEntity{
		ClassID: 8,
		ID:      3,
		Values: []model.PropertyValue{
			{InClassIndex: 0, Value: model.RawValue{Type: model.TypeInternal, Value: big.NewInt(40)}},
		},
	})

	refs, err := s.References(ctx, 2, 40)
	if err != nil {
		t.Fatalf("references: %v", err)
	}
	if len(refs.Outgoing) != 0 {
		t.Errorf("expected no outgoing references, got %+v", refs.Outgoing)
	}
	want := []Reference{
		{FromClass: 7, FromID: 1, Index: 1, ToID: 40},
		{FromClass: 8, FromID: 3, Index: 0, ToID: 40},
	}
	if diff := cmp.Diff(want, refs.Incoming); diff != "" {
		t.Errorf("incoming mismatch (-want +got):\n%s", diff)
	}
}
