// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records processed queries. Two backends exist: a local
// SQLite database and the Supabase search_history table read by the web
// client's profile page.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/health-search/pkg/types"
)

// ErrAnonymous is returned by recorders that only store rows for a known user.
var ErrAnonymous = errors.New("history entry has no user")

// Entry is one processed query.
type Entry struct {
	ID          string    `json:"id" yaml:"id"`
	UserID      string    `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Query       string    `json:"query" yaml:"query"`
	Stage       string    `json:"stage" yaml:"stage"`
	ResultCount int       `json:"result_count" yaml:"result_count"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// withDefaults fills in a missing ID and timestamp.
func (e Entry) withDefaults() Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return e
}

// Recorder persists history entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	Close() error
}

// UserResolver maps a bearer token to a user ID. Recorders that store
// per-user rows implement it.
type UserResolver interface {
	ResolveUser(ctx context.Context, token string) (string, error)
}

// Open returns the recorder selected by cfg, or nil for the none backend.
func Open(cfg types.HistoryConfig) (Recorder, error) {
	switch cfg.Backend {
	case types.HistoryNone, "":
		return nil, nil
	case types.HistorySQLite:
		s, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case types.HistorySupabase:
		r, err := NewSupabaseRecorder(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Table)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}
