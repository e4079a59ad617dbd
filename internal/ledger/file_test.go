package ledger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileLedger_CommitSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gosi_state.json")
	ctx := context.Background()

	l, err := OpenFile(path)
	require.NoError(t, err)

	seen, err := l.Contains(ctx, "1001")
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, l.Commit(ctx, "1001"))
	require.NoError(t, l.Commit(ctx, "1002"))

	// A fresh open simulates the next run after a crash or restart.
	reopened, err := OpenFile(path)
	require.NoError(t, err)
	for _, id := range []string{"1001", "1002"} {
		seen, err := reopened.Contains(ctx, id)
		require.NoError(t, err)
		require.True(t, seen, id)
	}
	seen, err = reopened.Contains(ctx, "1003")
	require.NoError(t, err)
	require.False(t, seen)
}

func TestFileLedger_CommitIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gosi_state.json")
	ctx := context.Background()

	l, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, l.Commit(ctx, "1001"))
	require.NoError(t, l.Commit(ctx, "1001"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var state stateFile
	require.NoError(t, json.Unmarshal(data, &state))
	require.Equal(t, []string{"1001"}, state.Processed)
}

func TestFileLedger_PersistedShape(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gosi_state.json")
	l, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, l.Commit(context.Background(), "42"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"processed":["42"]}`, string(data))
}

func TestFileLedger_LoadsLegacyStateWithDuplicates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gosi_state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"processed":["1","2","1"]}`), 0o644))

	l, err := OpenFile(path)
	require.NoError(t, err)
	seen, err := l.Contains(context.Background(), "1")
	require.NoError(t, err)
	require.True(t, seen)
	require.Len(t, l.order, 2)
}

func TestFileLedger_RejectsCorruptState(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gosi_state.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := OpenFile(path)
	require.Error(t, err)
}

func TestMemoryLedger(t *testing.T) {
	t.Parallel()

	l := NewMemory()
	ctx := context.Background()

	seen, err := l.Contains(ctx, "x")
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, l.Commit(ctx, "x"))
	seen, err = l.Contains(ctx, "x")
	require.NoError(t, err)
	require.True(t, seen)
}
