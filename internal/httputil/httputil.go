// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the provider clients.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// MaxResponseBytes caps how much of a provider response is read.
const MaxResponseBytes = 8 << 20

// PostJSON marshals payload, POSTs it to url with a bearer token, and
// returns the raw response. The caller owns resp.Body. A single attempt is
// made; non-2xx responses are returned, not converted to errors.
func PostJSON(ctx context.Context, client *http.Client, url, token, userAgent string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}

// ReadBody reads at most limit bytes of resp.Body, then drains and closes
// it. A limit of zero or less uses MaxResponseBytes.
func ReadBody(resp *http.Response, limit int64) ([]byte, error) {
	defer DrainAndClose(resp)
	if limit <= 0 {
		limit = MaxResponseBytes
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

// DrainAndClose discards the rest of resp.Body so the connection can be reused.
func DrainAndClose(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseBytes))
	resp.Body.Close()
}
