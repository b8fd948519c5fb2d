package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath         string       `json:"db_path"`
	DBSizeBytes    int64        `json:"db_size_bytes"`
	TotalClasses   int          `json:"total_classes"`
	TotalEntities  int          `json:"total_entities"`
	TotalRefs      int          `json:"total_references"`
	PendingUpdates int          `json:"pending_updates"`
	Classes        []ClassStats `json:"classes"`
}

// ClassStats holds per-class counts.
type ClassStats struct {
	ClassID  uint64 `json:"class_id"`
	Entities int    `json:"entities"`
	Updates  int    `json:"updates"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	// DB file size
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM classes`).Scan(&st.TotalClasses)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`).Scan(&st.TotalEntities)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entity_refs`).Scan(&st.TotalRefs)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM updates`).Scan(&st.PendingUpdates)

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id,
		       (SELECT COUNT(*) FROM entities e WHERE e.class_id = c.id) AS cnt,
		       (SELECT COUNT(*) FROM updates u WHERE u.class_id = c.id)
		FROM classes c ORDER BY cnt DESC, c.id`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var cs ClassStats
		var id int64
		rows.Scan(&id, &cs.Entities, &cs.Updates)
		cs.ClassID = uint64(id)
		st.Classes = append(st.Classes, cs)
	}

	return st, nil
}
