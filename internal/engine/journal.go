package engine

import "context"

// Journal records a session's rebuilds and outbound updates. Implemented by
// store.Store. Journal failures are logged and never block the engine.
type Journal interface {
	RecordRebuild(ctx context.Context, session string, r RebuildReport) error
	RecordUpdate(ctx context.Context, session string, u Update) error
}
