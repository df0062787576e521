// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/health-search/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seed(t *testing.T, store *SQLiteStore, queries ...string) {
	t.Helper()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, q := range queries {
		require.NoError(t, store.Record(context.Background(), Entry{
			Query:       q,
			Stage:       "research",
			ResultCount: i + 1,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

// --- SQLite ---

func TestSQLiteStore_RecordAndList(t *testing.T) {
	store := testStore(t)
	seed(t, store, "diabetes", "migraine", "asthma")

	entries, err := store.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "asthma", entries[0].Query)
	assert.Equal(t, "migraine", entries[1].Query)
	assert.Equal(t, 3, entries[0].ResultCount)
	assert.Len(t, entries[0].ID, 36)
	assert.Empty(t, entries[0].UserID)

	all, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteStore_ListEmpty(t *testing.T) {
	entries, err := testStore(t).List(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestSQLiteStore_KeepsUserAndTimestamp(t *testing.T) {
	store := testStore(t)
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, store.Record(context.Background(), Entry{
		ID: "fixed", UserID: "user-1", Query: "flu", Stage: "enhanced", CreatedAt: at,
	}))

	entries, err := store.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fixed", entries[0].ID)
	assert.Equal(t, "user-1", entries[0].UserID)
	assert.True(t, at.Equal(entries[0].CreatedAt))
}

func TestSQLiteStore_ListOrdersWithinSecond(t *testing.T) {
	store := testStore(t)
	base := time.Date(2026, 1, 1, 12, 0, 5, 0, time.UTC)
	for _, e := range []struct {
		query  string
		offset time.Duration
	}{
		{"whole second", 0},
		{"hundred millis", 100 * time.Millisecond},
		{"one twenty millis", 120 * time.Millisecond},
		{"half second", 500 * time.Millisecond},
	} {
		require.NoError(t, store.Record(context.Background(), Entry{
			Query: e.query, Stage: "research", CreatedAt: base.Add(e.offset),
		}))
	}

	entries, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	var got []string
	for _, e := range entries {
		got = append(got, e.Query)
	}
	assert.Equal(t, []string{"half second", "one twenty millis", "hundred millis", "whole second"}, got)
	assert.Equal(t, base.Add(500*time.Millisecond), entries[0].CreatedAt)
}

func TestSQLiteStore_DuplicateID(t *testing.T) {
	store := testStore(t)
	e := Entry{ID: "same", Query: "flu", Stage: "research"}
	require.NoError(t, store.Record(context.Background(), e))
	assert.Error(t, store.Record(context.Background(), e))
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	first, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Record(context.Background(), Entry{Query: "flu", Stage: "research"}))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer second.Close()
	entries, err := second.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSQLiteStore_Export(t *testing.T) {
	store := testStore(t)
	seed(t, store, "diabetes", "migraine")

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, store.Export(context.Background(), &buf, "yaml"))
		var got []Entry
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "diabetes", got[0].Query)
		assert.Contains(t, buf.String(), "result_count: 1")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, store.Export(context.Background(), &buf, "json"))
		var got []Entry
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "migraine", got[1].Query)
	})

	t.Run("unsupported", func(t *testing.T) {
		err := store.Export(context.Background(), &bytes.Buffer{}, "csv")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported format")
	})
}

// --- Supabase ---

type fakeSupabase struct {
	users    map[string]string
	inserted []searchHistoryRow
	tables   []string
	err      error
}

func (f *fakeSupabase) userID(token string) (string, error) {
	id, ok := f.users[token]
	if !ok {
		return "", errors.New("invalid JWT")
	}
	return id, nil
}

func (f *fakeSupabase) insert(table string, row any) error {
	if f.err != nil {
		return f.err
	}
	f.tables = append(f.tables, table)
	f.inserted = append(f.inserted, row.(searchHistoryRow))
	return nil
}

func TestSupabaseRecorder_ResolveUser(t *testing.T) {
	api := &fakeSupabase{users: map[string]string{"good-token": "4f2a"}}
	r := newSupabaseRecorder(api, "")

	id, err := r.ResolveUser(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "4f2a", id)

	_, err = r.ResolveUser(context.Background(), "bad-token")
	assert.ErrorContains(t, err, "invalid JWT")

	_, err = r.ResolveUser(context.Background(), "")
	assert.ErrorIs(t, err, ErrAnonymous)
}

func TestSupabaseRecorder_Record(t *testing.T) {
	api := &fakeSupabase{}
	r := newSupabaseRecorder(api, "")

	require.NoError(t, r.Record(context.Background(), Entry{UserID: "4f2a", Query: "diabetes", Stage: "enhanced"}))
	assert.Equal(t, []string{"search_history"}, api.tables)
	assert.Equal(t, []searchHistoryRow{{UserID: "4f2a", Query: "diabetes"}}, api.inserted)

	assert.ErrorIs(t, r.Record(context.Background(), Entry{Query: "diabetes"}), ErrAnonymous)
	assert.Len(t, api.inserted, 1)
}

func TestSupabaseRecorder_RecordError(t *testing.T) {
	api := &fakeSupabase{err: errors.New("permission denied")}
	r := newSupabaseRecorder(api, "custom_history")

	err := r.Record(context.Background(), Entry{UserID: "u", Query: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting into custom_history")
}

type stalledSupabase struct {
	release chan struct{}
}

func (s stalledSupabase) userID(string) (string, error) {
	<-s.release
	return "4f2a", nil
}

func (s stalledSupabase) insert(string, any) error {
	<-s.release
	return nil
}

func TestSupabaseRecorder_StalledCallsHonorDeadline(t *testing.T) {
	api := stalledSupabase{release: make(chan struct{})}
	t.Cleanup(func() { close(api.release) })
	r := newSupabaseRecorder(api, "")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.ResolveUser(ctx, "good-token")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = r.Record(ctx, Entry{UserID: "4f2a", Query: "diabetes"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

// --- Open ---

func TestOpen(t *testing.T) {
	rec, err := Open(types.HistoryConfig{Backend: types.HistoryNone})
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = Open(types.HistoryConfig{Backend: types.HistorySQLite, SQLitePath: filepath.Join(t.TempDir(), "h.db")})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.IsType(t, &SQLiteStore{}, rec)
	require.NoError(t, rec.Close())

	_, err = Open(types.HistoryConfig{Backend: "redis"})
	assert.Error(t, err)
}
