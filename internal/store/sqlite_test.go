package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rcliao/entity-codec/internal/codec"
	"github.com/rcliao/entity-codec/internal/model"
	"github.com/rcliao/entity-codec/internal/registry"
)

func TestMain(m *testing.M) {
	if err := registry.Setup(slog.Default()); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var bigCmp = cmp.Comparer(func(a, b *big.Int) bool { return a.Cmp(b) == 0 })

func videoSchema() *model.ClassSchema {
	return &model.ClassSchema{
		ID:   7,
		Name: "Video",
		Properties: []model.PropertyDescriptor{
			{Name: "Title", TypeName: "Text"},
			{Name: "Channel", TypeName: "Internal"},
			{Name: "Duration", TypeName: "Uint32"},
			{Name: "Related", TypeName: "InternalVec"},
		},
	}
}

func video(id uint64, title string, channel int64, related ...int64) *model.RawEntity {
	rel := make([]any, len(related))
	for i, r := range related {
		rel[i] = big.NewInt(r)
	}
	return &model.RawEntity{
		ClassID:       7,
		SchemaIndexes: []uint16{0},
		ID:            id,
		Values: []model.PropertyValue{
			{InClassIndex: 0, Value: model.RawValue{Type: model.TypeText, Value: title}},
			{InClassIndex: 1, Value: model.RawValue{Type: model.TypeInternal, Value: big.NewInt(channel)}},
			{InClassIndex: 3, Value: model.RawValue{Type: model.TypeInternalVec, Value: rel}},
		},
	}
}

func TestPutAndGetClass(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.PutClass(ctx, videoSchema()); err != nil {
		t.Fatalf("put class: %v", err)
	}
	got, err := s.GetClass(ctx, 7)
	if err != nil {
		t.Fatalf("get class: %v", err)
	}
	if diff := cmp.Diff(videoSchema(), got); diff != "" {
		t.Errorf("schema mismatch (-want +got):\n%s", diff)
	}

	// Replacing a class rewrites its properties.
	smaller := &model.ClassSchema{ID: 7, Name: "Video v2", Properties: []model.PropertyDescriptor{{Name: "Title", TypeName: "Text"}}}
	if err := s.PutClass(ctx, smaller); err != nil {
		t.Fatalf("replace class: %v", err)
	}
	got, _ = s.GetClass(ctx, 7)
	if diff := cmp.Diff(smaller, got); diff != "" {
		t.Errorf("replaced schema mismatch (-want +got):\n%s", diff)
	}
}

func TestGetClassNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetClass(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListClasses(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.PutClass(ctx, videoSchema())
	s.PutClass(ctx, &model.ClassSchema{ID: 2, Name: "Channel"})
	s.PutEntity(ctx, video(1, "a", 5))

	classes, err := s.ListClasses(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(classes) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(classes))
	}
	if classes[0].ID != 2 || classes[1].ID != 7 {
		t.Errorf("expected classes ordered by id, got %d, %d", classes[0].ID, classes[1].ID)
	}
	if classes[1].Properties != 4 || classes[1].Entities != 1 {
		t.Errorf("expected 4 properties and 1 entity, got %+v", classes[1])
	}
}

func TestPutAndGetEntity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	want := video(10, "Intro", 5, 11, 12)
	if err := s.PutEntity(ctx, want); err != nil {
		t.Fatalf("put entity: %v", err)
	}
	got, err := s.GetEntity(ctx, 7, 10)
	if err != nil {
		t.Fatalf("get entity: %v", err)
	}
	if diff := cmp.Diff(want, got, bigCmp); diff != "" {
		t.Errorf("entity mismatch (-want +got):\n%s", diff)
	}

	// Upsert replaces the snapshot.
	if err := s.PutEntity(ctx, video(10, "Intro (edited)", 5)); err != nil {
		t.Fatalf("replace entity: %v", err)
	}
	got, _ = s.GetEntity(ctx, 7, 10)
	if got.Values[0].Value.Value != "Intro (edited)" {
		t.Errorf("expected edited title, got %v", got.Values[0].Value.Value)
	}

	if _, err := s.GetEntity(ctx, 7, 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoredEntityDecodes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.PutClass(ctx, videoSchema())
	s.PutEntity(ctx, video(10, "Intro", 5, 11))

	schema, _ := s.GetClass(ctx, 7)
	raw, _ := s.GetEntity(ctx, 7, 10)
	plain := codec.New(schema).ToPlainObject(raw)

	want := map[string]any{"title": "Intro", "channel": int64(5), "related": []any{int64(11)}}
	if diff := cmp.Diff(want, plain.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestListEntities(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.PutEntity(ctx, video(3, "c", 1))
	s.PutEntity(ctx, video(1, "a", 1))
	s.PutEntity(ctx, video(2, "b", 1))
	s.PutEntity(ctx, &model.RawEntity{ClassID: 8, ID: 1})

	all, err := s.ListEntities(ctx, ListParams{ClassID: 7})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3, got %d", len(all))
	}
	for i, e := range all {
		if e.ID != uint64(i+1) {
			t.Errorf("expected id %d at position %d, got %d", i+1, i, e.ID)
		}
	}

	limited, _ := s.ListEntities(ctx, ListParams{ClassID: 7, Limit: 2})
	if len(limited) != 2 {
		t.Errorf("expected 2 with limit, got %d", len(limited))
	}
}

func TestQueueAndListUpdates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := codec.New(videoSchema(), codec.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	u := c.ToSubstrateUpdate(map[string]any{"title": "New", "duration": "90", "related": "not-a-list"})

	q, err := s.QueueUpdate(ctx, QueueParams{ClassID: 7, EntityID: 10, Update: u})
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if q.ID == "" {
		t.Error("expected non-empty ID")
	}
	if len(q.Diagnostics) != 1 {
		t.Errorf("expected 1 diagnostic, got %v", q.Diagnostics)
	}

	s.QueueUpdate(ctx, QueueParams{ClassID: 8, EntityID: 1, Update: codec.Update{}})

	updates, err := s.ListUpdates(ctx, 7)
	if err != nil {
		t.Fatalf("list updates: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("expected 1 update for class 7, got %d", len(updates))
	}
	if diff := cmp.Diff(u.Assignments, updates[0].Assignments); diff != "" {
		t.Errorf("assignments mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(q.Diagnostics, updates[0].Diagnostics); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}

	all, _ := s.ListUpdates(ctx, 0)
	if len(all) != 2 {
		t.Errorf("expected 2 updates overall, got %d", len(all))
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)

	src.PutClass(ctx, videoSchema())
	src.PutEntity(ctx, video(1, "a", 5))
	src.PutEntity(ctx, video(2, "b", 5, 1))

	snap, err := src.ExportAll(ctx, 0)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(snap.Classes) != 1 || len(snap.Entities) != 2 {
		t.Fatalf("expected 1 class and 2 entities, got %d and %d", len(snap.Classes), len(snap.Entities))
	}

	dst := newTestStore(t)
	n, err := dst.Import(ctx, snap)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 imported, got %d", n)
	}
	again, _ := dst.ExportAll(ctx, 0)
	if diff := cmp.Diff(snap, again, bigCmp); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	none, _ := src.ExportAll(ctx, 99)
	if len(none.Classes) != 0 || len(none.Entities) != 0 {
		t.Errorf("expected empty export for unknown class, got %+v", none)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	s.PutClass(ctx, videoSchema())
	s.PutEntity(ctx, video(1, "a", 5, 6))
	s.QueueUpdate(ctx, QueueParams{ClassID: 7, EntityID: 1})

	st, err := s.Stats(ctx, path)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalClasses != 1 || st.TotalEntities != 1 || st.TotalRefs != 2 || st.PendingUpdates != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if len(st.Classes) != 1 || st.Classes[0].Updates != 1 {
		t.Errorf("unexpected class stats: %+v", st.Classes)
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

func TestListUpdatesCorruptDiagnostics(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := codec.New(videoSchema(), codec.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	q, err := s.QueueUpdate(ctx, QueueParams{ClassID: 7, EntityID: 1, Update: c.ToSubstrateUpdate(map[string]any{"related": 1})})
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE updates SET diagnostics = 'not json' WHERE id = ?`, q.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := s.ListUpdates(ctx, 7); err == nil || !strings.Contains(err.Error(), q.ID) {
		t.Errorf("expected diagnostics error naming %s, got %v", q.ID, err)
	}
}
