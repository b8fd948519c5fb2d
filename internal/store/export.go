package store

import (
	"context"

	"github.com/rcliao/entity-codec/internal/model"
)

// Snapshot is the portable form of a store's classes and entities.
type Snapshot struct {
	Classes  []model.ClassSchema `json:"classes"`
	Entities []model.RawEntity   `json:"entities"`
}

// ExportAll returns every stored class and entity, optionally restricted to
// a single class. A zero classID exports everything.
func (s *SQLiteStore) ExportAll(ctx context.Context, classID uint64) (*Snapshot, error) {
	snap := &Snapshot{Classes: []model.ClassSchema{}, Entities: []model.RawEntity{}}

	summaries, err := s.ListClasses(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range summaries {
		if classID != 0 && c.ID != classID {
			continue
		}
		schema, err := s.GetClass(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		snap.Classes = append(snap.Classes, *schema)
	}

	query := `SELECT class_id, id, schema_indexes, vals FROM entities`
	var args []interface{}
	if classID != 0 {
		query += ` WHERE class_id = ?`
		args = append(args, int64(classID))
	}
	query += ` ORDER BY class_id, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		e, err := s.scanEntity(rows)
		if err != nil {
			return nil, err
		}
		snap.Entities = append(snap.Entities, *e)
	}
	return snap, rows.Err()
}

// Import stores the classes and entities of a snapshot, replacing existing
// rows with the same ids. It returns the number of entities imported.
func (s *SQLiteStore) Import(ctx context.Context, snap *Snapshot) (int, error) {
	for i := range snap.Classes {
		if err := s.PutClass(ctx, &snap.Classes[i]); err != nil {
			return 0, err
		}
	}
	imported := 0
	for i := range snap.Entities {
		if err := s.PutEntity(ctx, &snap.Entities[i]); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
