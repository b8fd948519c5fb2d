package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/entity-codec/internal/model"
	"github.com/rcliao/entity-codec/internal/registry"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	registry *registry.Registry
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
// registry.Setup must have been called first.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	reg, err := registry.Default()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db, registry: reg}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS classes (
		id          INTEGER PRIMARY KEY,
		name        TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS class_properties (
		class_id    INTEGER NOT NULL REFERENCES classes(id) ON DELETE CASCADE,
		idx         INTEGER NOT NULL,
		name        TEXT NOT NULL,
		type_name   TEXT NOT NULL,
		PRIMARY KEY (class_id, idx)
	);

	CREATE TABLE IF NOT EXISTS entities (
		class_id        INTEGER NOT NULL,
		id              INTEGER NOT NULL,
		schema_indexes  TEXT NOT NULL,
		vals            BLOB NOT NULL,
		updated_at      TEXT NOT NULL,
		PRIMARY KEY (class_id, id)
	);

	CREATE TABLE IF NOT EXISTS entity_refs (
		from_class  INTEGER NOT NULL,
		from_id     INTEGER NOT NULL,
		idx         INTEGER NOT NULL,
		to_id       INTEGER NOT NULL,
		PRIMARY KEY (from_class, from_id, idx, to_id)
	);
	CREATE INDEX IF NOT EXISTS idx_refs_to ON entity_refs(to_id);

	CREATE TABLE IF NOT EXISTS updates (
		id           TEXT PRIMARY KEY,
		class_id     INTEGER NOT NULL,
		entity_id    INTEGER NOT NULL,
		assignments  BLOB NOT NULL,
		diagnostics  TEXT,
		created_at   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_updates_class ON updates(class_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) PutClass(ctx context.Context, schema *model.ClassSchema) error {
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO classes (id, name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		int64(schema.ID), schema.Name, now)
	if err != nil {
		return fmt.Errorf("insert class: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM class_properties WHERE class_id = ?`, int64(schema.ID)); err != nil {
		return fmt.Errorf("clear properties: %w", err)
	}
	for i, p := range schema.Properties {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO class_properties (class_id, idx, name, type_name) VALUES (?, ?, ?, ?)`,
			int64(schema.ID), i, p.Name, p.TypeName)
		if err != nil {
			return fmt.Errorf("insert property %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetClass(ctx context.Context, id uint64) (*model.ClassSchema, error) {
	schema := &model.ClassSchema{ID: id, Properties: []model.PropertyDescriptor{}}
	err := s.db.QueryRowContext(ctx, `SELECT name FROM classes WHERE id = ?`, int64(id)).Scan(&schema.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("class %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, type_name FROM class_properties WHERE class_id = ? ORDER BY idx`, int64(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p model.PropertyDescriptor
		if err := rows.Scan(&p.Name, &p.TypeName); err != nil {
			return nil, err
		}
		schema.Properties = append(schema.Properties, p)
	}
	return schema, rows.Err()
}

func (s *SQLiteStore) ListClasses(ctx context.Context) ([]ClassSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.created_at,
		       (SELECT COUNT(*) FROM class_properties p WHERE p.class_id = c.id),
		       (SELECT COUNT(*) FROM entities e WHERE e.class_id = c.id)
		FROM classes c ORDER BY c.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []ClassSummary
	for rows.Next() {
		var c ClassSummary
		var id int64
		var createdAt string
		if err := rows.Scan(&id, &c.Name, &createdAt, &c.Properties, &c.Entities); err != nil {
			return nil, err
		}
		c.ID = uint64(id)
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

func (s *SQLiteStore) PutEntity(ctx context.Context, e *model.RawEntity) error {
	vals, err := s.registry.MarshalValues(e.Values)
	if err != nil {
		return fmt.Errorf("encode entity %d: %w", e.ID, err)
	}
	indexes := e.SchemaIndexes
	if indexes == nil {
		indexes = []uint16{}
	}
	indexesJSON, err := json.Marshal(indexes)
	if err != nil {
		return fmt.Errorf("encode entity %d schema indexes: %w", e.ID, err)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO entities (class_id, id, schema_indexes, vals, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(class_id, id) DO UPDATE SET
		   schema_indexes = excluded.schema_indexes, vals = excluded.vals, updated_at = excluded.updated_at`,
		int64(e.ClassID), int64(e.ID), string(indexesJSON), vals, now)
	if err != nil {
		return fmt.Errorf("insert entity: %w", err)
	}

	if err := putReferences(ctx, tx, e); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetEntity(ctx context.Context, classID, id uint64) (*model.RawEntity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT class_id, id, schema_indexes, vals FROM entities WHERE class_id = ? AND id = ?`,
		int64(classID), int64(id))
	e, err := s.scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %d/%d: %w", classID, id, ErrNotFound)
	}
	return e, err
}

func (s *SQLiteStore) ListEntities(ctx context.Context, p ListParams) ([]*model.RawEntity, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT class_id, id, schema_indexes, vals FROM entities
		 WHERE class_id = ? ORDER BY id LIMIT ?`, int64(p.ClassID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []*model.RawEntity
	for rows.Next() {
		e, err := s.scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (s *SQLiteStore) QueueUpdate(ctx context.Context, p QueueParams) (*QueuedUpdate, error) {
	blob, err := s.registry.MarshalAssignments(p.Update.Assignments)
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}

	q := &QueuedUpdate{
		ID:          ulid.Make().String(),
		ClassID:     p.ClassID,
		EntityID:    p.EntityID,
		Assignments: p.Update.Assignments,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	var diagnostics *string
	if len(p.Update.Diagnostics) > 0 {
		for _, d := range p.Update.Diagnostics {
			q.Diagnostics = append(q.Diagnostics, d.Error())
		}
		b, err := json.Marshal(q.Diagnostics)
		if err != nil {
			return nil, fmt.Errorf("encode diagnostics: %w", err)
		}
		str := string(b)
		diagnostics = &str
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO updates (id, class_id, entity_id, assignments, diagnostics, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID, int64(q.ClassID), int64(q.EntityID), blob, diagnostics, q.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert update: %w", err)
	}
	return q, nil
}

func (s *SQLiteStore) ListUpdates(ctx context.Context, classID uint64) ([]QueuedUpdate, error) {
	query := `SELECT id, class_id, entity_id, assignments, diagnostics, created_at FROM updates`
	var args []interface{}
	if classID != 0 {
		query += ` WHERE class_id = ?`
		args = append(args, int64(classID))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var updates []QueuedUpdate
	for rows.Next() {
		var q QueuedUpdate
		var class, entity int64
		var blob []byte
		var diagnostics sql.NullString
		var createdAt string
		if err := rows.Scan(&q.ID, &class, &entity, &blob, &diagnostics, &createdAt); err != nil {
			return nil, err
		}
		q.ClassID, q.EntityID = uint64(class), uint64(entity)
		q.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		q.Assignments, err = s.registry.UnmarshalAssignments(blob)
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", q.ID, err)
		}
		if diagnostics.Valid {
			if err := json.Unmarshal([]byte(diagnostics.String), &q.Diagnostics); err != nil {
				return nil, fmt.Errorf("update %s diagnostics: %w", q.ID, err)
			}
		}
		updates = append(updates, q)
	}
	return updates, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (s *SQLiteStore) scanEntity(row scanner) (*model.RawEntity, error) {
	var classID, id int64
	var indexesJSON string
	var vals []byte
	if err := row.Scan(&classID, &id, &indexesJSON, &vals); err != nil {
		return nil, err
	}

	e := &model.RawEntity{ClassID: uint64(classID), ID: uint64(id)}
	if err := json.Unmarshal([]byte(indexesJSON), &e.SchemaIndexes); err != nil {
		return nil, fmt.Errorf("entity %d schema indexes: %w", id, err)
	}
	values, err := s.registry.UnmarshalValues(vals)
	if err != nil {
		return nil, fmt.Errorf("entity %d: %w", id, err)
	}
	e.Values = values
	return e, nil
}
