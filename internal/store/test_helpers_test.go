package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/canvasync/internal/engine"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testUpdate(seq int64, kind engine.UpdateKind, id string, payload any) engine.Update {
	return engine.Update{Seq: seq, Kind: kind, ElementID: id, Payload: payload}
}
