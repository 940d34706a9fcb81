package eventstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
)

func newMemoryStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreAppendAndRetrieve(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()

	require.NoError(t, store.Append(ctx, "run-1", "TestEvent", []byte(`{"test":"data"}`), map[string]string{"key": "value"}))

	events, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "run-1", events[0].RunID())
	assert.Equal(t, "TestEvent", events[0].Type())
	assert.JSONEq(t, `{"test":"data"}`, string(events[0].Payload()))
	assert.Equal(t, "value", events[0].Metadata()["key"])
}

func TestStoreGetRangeAndRuns(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()
	now := time.Now()

	require.NoError(t, store.Append(ctx, "run-1", "E1", nil, nil))
	require.NoError(t, store.Append(ctx, "run-2", "E2", nil, nil))
	require.NoError(t, store.Append(ctx, "run-1", "E3", nil, nil))

	events, err := store.GetRange(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, events, 3)

	events, err = store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "E1", events[0].Type())
	assert.Equal(t, "E3", events[1].Type())
}

func TestStoreLatest(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()

	e, err := store.Latest(ctx, "Missing")
	require.NoError(t, err)
	assert.Nil(t, e)

	require.NoError(t, store.Append(ctx, "run-1", "Step", []byte(`{"n":1}`), nil))
	require.NoError(t, store.Append(ctx, "run-2", "Step", []byte(`{"n":2}`), nil))

	e, err = store.Latest(ctx, "Step")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "run-2", e.RunID())
}

func TestStorePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".buildmaster", "journal.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), "run-1", "E", nil, nil))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	events, err := store.GetByRunID(t.Context(), "run-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestStoreQueryAfterCloseIsJournalError(t *testing.T) {
	store, err := NewSQLiteStore(MemoryPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.GetByRunID(t.Context(), "run-1")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryJournal))
}
