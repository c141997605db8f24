package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/canvasync/internal/engine"
)

// UpdateRecord is a stored update. Payload is kept as raw JSON because its
// shape depends on Kind.
type UpdateRecord struct {
	Session   string            `json:"session"`
	Seq       int64             `json:"seq"`
	Kind      engine.UpdateKind `json:"kind"`
	ElementID string            `json:"element_id,omitempty"`
	Payload   json.RawMessage   `json:"payload"`
}

// RebuildRecord is a stored rebuild report.
type RebuildRecord struct {
	Session string `json:"session"`
	engine.RebuildReport
}

// ListUpdates returns a session's updates in seq order.
func (s *Store) ListUpdates(ctx context.Context, session string) ([]UpdateRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session, seq, kind, element_id, payload
		FROM updates
		WHERE session = ?
		ORDER BY seq ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("list updates: %w", err)
	}
	defer rows.Close()

	var out []UpdateRecord
	for rows.Next() {
		var (
			rec     UpdateRecord
			kind    string
			payload string
		)
		if err := rows.Scan(&rec.Session, &rec.Seq, &kind, &rec.ElementID, &payload); err != nil {
			return nil, fmt.Errorf("scan update: %w", err)
		}
		rec.Kind = engine.UpdateKind(kind)
		rec.Payload = json.RawMessage(payload)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list updates: %w", err)
	}
	return out, nil
}

// ListElementUpdates returns the updates that touched one element, in seq
// order.
func (s *Store) ListElementUpdates(ctx context.Context, session, elementID string) ([]UpdateRecord, error) {
	all, err := s.ListUpdates(ctx, session)
	if err != nil {
		return nil, err
	}
	var out []UpdateRecord
	for _, rec := range all {
		if rec.ElementID == elementID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ListRebuilds returns a session's rebuild reports in generation order.
func (s *Store) ListRebuilds(ctx context.Context, session string) ([]RebuildRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session, generation, sample_time, materialized, skipped, order_ids
		FROM rebuilds
		WHERE session = ?
		ORDER BY generation ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("list rebuilds: %w", err)
	}
	defer rows.Close()

	var out []RebuildRecord
	for rows.Next() {
		var (
			rec            RebuildRecord
			skipped, order string
		)
		if err := rows.Scan(&rec.Session, &rec.Generation, &rec.SampleTime, &rec.Materialized, &skipped, &order); err != nil {
			return nil, fmt.Errorf("scan rebuild: %w", err)
		}
		if err := unmarshalJSON(skipped, &rec.Skipped); err != nil {
			return nil, fmt.Errorf("rebuild %d: %w", rec.Generation, err)
		}
		if err := unmarshalJSON(order, &rec.Order); err != nil {
			return nil, fmt.Errorf("rebuild %d: %w", rec.Generation, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rebuilds: %w", err)
	}
	return out, nil
}

// Sessions returns every journaled session id in ascending order.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session FROM rebuilds
		UNION
		SELECT session FROM updates
		ORDER BY 1 COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ErrNoSessions is returned by LatestSession on an empty journal.
var ErrNoSessions = errors.New("journal has no sessions")

// LatestSession returns the most recently started session.
func (s *Store) LatestSession(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT session FROM (
			SELECT session FROM rebuilds
			UNION
			SELECT session FROM updates
		)
		ORDER BY session COLLATE BINARY DESC
		LIMIT 1
	`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSessions
	}
	if err != nil {
		return "", fmt.Errorf("latest session: %w", err)
	}
	return id, nil
}
