// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

const defaultTable = "search_history"

// supabaseAPI is the part of the Supabase client the recorder uses.
type supabaseAPI interface {
	userID(token string) (string, error)
	insert(table string, row any) error
}

type supabaseClient struct {
	client *supabase.Client
}

func (c supabaseClient) userID(token string) (string, error) {
	user, err := c.client.Auth.WithToken(token).GetUser()
	if err != nil {
		return "", err
	}
	return user.ID.String(), nil
}

func (c supabaseClient) insert(table string, row any) error {
	_, _, err := c.client.From(table).Insert(row, false, "", "minimal", "").Execute()
	return err
}

// SupabaseRecorder inserts {user_id, query} rows into the search_history
// table. Rows are only written for authenticated users.
type SupabaseRecorder struct {
	api   supabaseAPI
	table string
}

// NewSupabaseRecorder connects to the project at url using key.
func NewSupabaseRecorder(url, key, table string) (*SupabaseRecorder, error) {
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}
	return newSupabaseRecorder(supabaseClient{client: client}, table), nil
}

func newSupabaseRecorder(api supabaseAPI, table string) *SupabaseRecorder {
	if table == "" {
		table = defaultTable
	}
	return &SupabaseRecorder{api: api, table: table}
}

// ResolveUser returns the ID of the user the access token belongs to.
func (r *SupabaseRecorder) ResolveUser(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrAnonymous
	}
	id, err := bounded(ctx, func() (string, error) { return r.api.userID(token) })
	if err != nil {
		return "", fmt.Errorf("resolving user: %w", err)
	}
	if id == "" {
		return "", errors.New("resolving user: empty user id")
	}
	return id, nil
}

type searchHistoryRow struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
}

// Record inserts e, or returns ErrAnonymous when e has no user.
func (r *SupabaseRecorder) Record(ctx context.Context, e Entry) error {
	if e.UserID == "" {
		return ErrAnonymous
	}
	_, err := bounded(ctx, func() (struct{}, error) {
		return struct{}{}, r.api.insert(r.table, searchHistoryRow{UserID: e.UserID, Query: e.Query})
	})
	if err != nil {
		return fmt.Errorf("inserting into %s: %w", r.table, err)
	}
	return nil
}

// Close is a no-op; the client holds no resources.
func (r *SupabaseRecorder) Close() error { return nil }

// bounded runs call and returns its result, or ctx.Err() once ctx is done.
// The Supabase client calls take no context, so an abandoned call finishes
// in the background and its result is discarded.
func bounded[T any](ctx context.Context, call func() (T, error)) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
