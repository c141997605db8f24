package store

import (
	"context"
	"fmt"

	"github.com/roach88/canvasync/internal/engine"
)

var _ engine.Journal = (*Store)(nil)

// RecordRebuild inserts a rebuild report.
// Uses ON CONFLICT DO NOTHING for idempotency - a generation is recorded once.
func (s *Store) RecordRebuild(ctx context.Context, session string, r engine.RebuildReport) error {
	skipped := r.Skipped
	if skipped == nil {
		skipped = []engine.SkipReason{}
	}
	skippedJSON, err := marshalJSON(skipped)
	if err != nil {
		return fmt.Errorf("record rebuild: %w", err)
	}
	order := r.Order
	if order == nil {
		order = []string{}
	}
	orderJSON, err := marshalJSON(order)
	if err != nil {
		return fmt.Errorf("record rebuild: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rebuilds
		(session, generation, sample_time, materialized, skipped, order_ids)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		session,
		r.Generation,
		r.SampleTime,
		r.Materialized,
		skippedJSON,
		orderJSON,
	)
	if err != nil {
		return fmt.Errorf("record rebuild: %w", err)
	}
	return nil
}

// RecordUpdate inserts an outbound update.
// Uses ON CONFLICT DO NOTHING for idempotency - a seq is recorded once.
func (s *Store) RecordUpdate(ctx context.Context, session string, u engine.Update) error {
	payload, err := marshalJSON(u.Payload)
	if err != nil {
		return fmt.Errorf("record update: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO updates
		(session, seq, kind, element_id, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		session,
		u.Seq,
		string(u.Kind),
		u.ElementID,
		payload,
	)
	if err != nil {
		return fmt.Errorf("record update: %w", err)
	}
	return nil
}
