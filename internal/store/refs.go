package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/rcliao/entity-codec/internal/model"
)

// Reference is an Internal property value of one entity pointing at
// another entity.
type Reference struct {
	FromClass uint64 `json:"from_class"`
	FromID    uint64 `json:"from_id"`
	Index     uint16 `json:"in_class_index"`
	ToID      uint64 `json:"to_id"`
}

// References lists the references held by an entity and those pointing
// at its id. Incoming is matched on id alone.
type References struct {
	Outgoing []Reference `json:"outgoing"`
	Incoming []Reference `json:"incoming"`
}

// putReferences replaces the stored references of e with those found in
// its Internal and InternalVec values.
func putReferences(ctx context.Context, tx *sql.Tx, e *model.RawEntity) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM entity_refs WHERE from_class = ? AND from_id = ?`, int64(e.ClassID), int64(e.ID))
	if err != nil {
		return fmt.Errorf("clear refs: %w", err)
	}

	for _, pv := range e.Values {
		for _, to := range referencedIDs(pv.Value) {
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO entity_refs (from_class, from_id, idx, to_id) VALUES (?, ?, ?, ?)`,
				int64(e.ClassID), int64(e.ID), pv.InClassIndex, int64(to))
			if err != nil {
				return fmt.Errorf("insert ref: %w", err)
			}
		}
	}
	return nil
}

func referencedIDs(v model.RawValue) []uint64 {
	var ids []uint64
	add := func(x any) {
		if n, ok := x.(*big.Int); ok && n.IsUint64() {
			ids = append(ids, n.Uint64())
		}
	}
	switch v.Type {
	case model.TypeInternal:
		add(v.Value)
	case model.TypeInternalVec:
		items, _ := v.Value.([]any)
		for _, item := range items {
			add(item)
		}
	}
	return ids
}

// References returns the outgoing and incoming references of an entity.
// An Internal value holds only the target id, not its class, so Incoming
// lists every stored reference to id from any class. classID scopes
// Outgoing only.
func (s *SQLiteStore) References(ctx context.Context, classID, id uint64) (*References, error) {
	out, err := s.queryRefs(ctx,
		`SELECT from_class, from_id, idx, to_id FROM entity_refs
		 WHERE from_class = ? AND from_id = ? ORDER BY idx, to_id`, int64(classID), int64(id))
	if err != nil {
		return nil, err
	}
	in, err := s.queryRefs(ctx,
		`SELECT from_class, from_id, idx, to_id FROM entity_refs
		 WHERE to_id = ? ORDER BY from_class, from_id, idx`, int64(id))
	if err != nil {
		return nil, err
	}
	return &References{Outgoing: out, Incoming: in}, nil
}

func (s *SQLiteStore) queryRefs(ctx context.Context, query string, args ...interface{}) ([]Reference, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := []Reference{}
	for rows.Next() {
		var r Reference
		var fromClass, fromID, toID int64
		if err := rows.Scan(&fromClass, &fromID, &r.Index, &toID); err != nil {
			return nil, err
		}
		r.FromClass, r.FromID, r.ToID = uint64(fromClass), uint64(fromID), uint64(toID)
		refs = append(refs, r)
	}
	return refs, rows.Err()
}
