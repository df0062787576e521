// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/health-search/internal/history"
	"github.com/pdiddy/health-search/internal/secrets"
	"github.com/pdiddy/health-search/pkg/types"
)

func testViper(t *testing.T) *viper.Viper {
	t.Helper()
	t.Setenv("LOVABLE_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")
	v := viper.New()
	setDefaults(v)
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, keys, err := loadConfig(testViper(t), nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.EqualValues(t, 64<<10, cfg.Server.MaxBodyBytes)

	r := cfg.Orchestrator.Research
	assert.Equal(t, "https://ai.gateway.lovable.dev/v1/chat/completions", r.URL)
	assert.Equal(t, "google/gemini-2.5-pro", r.Model)
	assert.InDelta(t, 0.3, r.Temperature, 1e-9)
	assert.Zero(t, r.MaxTokens)
	assert.Equal(t, 30*time.Second, r.Timeout)

	e := cfg.Orchestrator.Enhancement
	assert.Equal(t, "https://api.groq.com/openai/v1/chat/completions", e.URL)
	assert.Equal(t, "openai/gpt-oss-120b", e.Model)
	assert.InDelta(t, 0.2, e.Temperature, 1e-9)
	assert.Equal(t, 4096, e.MaxTokens)
	assert.EqualValues(t, 5, e.Breaker.ConsecutiveFailures)

	assert.Equal(t, types.ExtractGreedy, cfg.Orchestrator.Extraction)
	assert.Equal(t, types.HistoryNone, cfg.History.Backend)
	assert.Empty(t, keys.Research)
	assert.Empty(t, keys.Enhancement)
}

func TestLoadConfig_KeysFromSecretsAndEnv(t *testing.T) {
	v := testViper(t)
	loaded := map[string]string{
		secrets.ResearchKeyFile: "file-research",
		secrets.EnhanceKeyFile:  "file-enhance",
	}

	_, keys, err := loadConfig(v, loaded)
	require.NoError(t, err)
	assert.Equal(t, "file-research", keys.Research)
	assert.Equal(t, "file-enhance", keys.Enhancement)

	t.Setenv("LOVABLE_API_KEY", "env-research")
	_, keys, err = loadConfig(v, loaded)
	require.NoError(t, err)
	assert.Equal(t, "env-research", keys.Research)

	v.Set("enhancement_api_key", "explicit-enhance")
	_, keys, err = loadConfig(v, loaded)
	require.NoError(t, err)
	assert.Equal(t, "explicit-enhance", keys.Enhancement)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"bad extraction", "orchestrator.extraction", "lazy"},
		{"bad url", "orchestrator.research.url", "not a url"},
		{"missing model", "orchestrator.enhancement.model", ""},
		{"temperature out of range", "orchestrator.research.temperature", 3.5},
		{"zero timeout", "orchestrator.research.timeout", 0},
		{"unknown backend", "history.backend", "redis"},
		{"supabase without url", "history.backend", "supabase"},
		{"empty addr", "server.addr", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := testViper(t)
			v.Set(tt.key, tt.val)
			_, _, err := loadConfig(v, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestLoadConfig_SQLiteHistory(t *testing.T) {
	v := testViper(t)
	v.Set("history.backend", "sqlite")
	v.Set("history.sqlite_path", t.TempDir()+"/h.db")
	cfg, _, err := loadConfig(v, nil)
	require.NoError(t, err)
	assert.Equal(t, types.HistorySQLite, cfg.History.Backend)
}

func TestFormatHistoryList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatHistoryList(&buf, nil, false))
	assert.Equal(t, "No searches recorded.\n", buf.String())

	buf.Reset()
	entries := []history.Entry{{
		Query:       "what are the early warning signs of type 2 diabetes in adults",
		Stage:       "enhanced",
		ResultCount: 18,
		CreatedAt:   time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC),
	}}
	require.NoError(t, formatHistoryList(&buf, entries, false))
	out := buf.String()
	assert.Contains(t, out, "2026-05-01 09:30:00")
	assert.Contains(t, out, "enhanced")
	assert.Contains(t, out, "what are the early warning signs of t...")
	assert.Contains(t, out, "1 searches")
}
