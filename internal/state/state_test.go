package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertAndGetPage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := PageRecord{
		PageID:      "12345",
		Version:     3,
		Title:       "Getting Started",
		RelPath:     "Getting Started/index.md",
		ContentHash: "abc123",
		ExportedAt:  time.Now(),
	}
	require.NoError(t, s.UpsertPage(ctx, rec))

	got, found, err := s.GetPage(ctx, "12345")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, "Getting Started", got.Title)
	assert.Equal(t, "Getting Started/index.md", got.RelPath)
}

func TestGetPageNotFound(t *testing.T) {
	s := newTestStore(t)

	_, found, err := s.GetPage(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUpsertReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := PageRecord{PageID: "1", Version: 1, Title: "A", RelPath: "A.md", ContentHash: "h1", ExportedAt: time.Now()}
	require.NoError(t, s.UpsertPage(ctx, rec))

	rec.Version = 2
	rec.ContentHash = "h2"
	require.NoError(t, s.UpsertPage(ctx, rec))

	got, found, err := s.GetPage(ctx, "1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, "h2", got.ContentHash)

	all, err := s.ListPages(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStalePages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, s.UpsertPage(ctx, PageRecord{
			PageID: id, Version: 1, Title: id, RelPath: id + ".md", ContentHash: "h", ExportedAt: time.Now(),
		}))
	}

	stale, err := s.StalePages(ctx, map[string]struct{}{"1": {}, "3": {}})
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "2", stale[0].PageID)
}

func TestDeletePage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPage(ctx, PageRecord{
		PageID: "1", Version: 1, Title: "A", RelPath: "A.md", ContentHash: "h", ExportedAt: time.Now(),
	}))
	require.NoError(t, s.DeletePage(ctx, "1"))

	_, found, err := s.GetPage(ctx, "1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecordAndListEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordEvent(ctx, "job-1", "10", EventExported, ""))
	require.NoError(t, s.RecordEvent(ctx, "job-1", "11", EventSkipped, "version unchanged"))
	require.NoError(t, s.RecordEvent(ctx, "job-2", "10", EventFailed, "boom"))

	events, err := s.EventsByJob(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventExported, events[0].EventType)
	assert.Equal(t, "10", events[0].PageID)
	assert.Equal(t, EventSkipped, events[1].EventType)
	assert.Equal(t, "version unchanged", events[1].Detail)
}

func TestEventsByJobEmpty(t *testing.T) {
	s := newTestStore(t)

	events, err := s.EventsByJob(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, events)
}
