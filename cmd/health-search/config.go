// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pdiddy/health-search/internal/research"
	"github.com/pdiddy/health-search/internal/secrets"
	"github.com/pdiddy/health-search/pkg/types"
)

const userAgent = "health-search/"

func setDefaults(v *viper.Viper) {
	v.SetDefault("secrets_dir", ".secrets/")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.max_body_bytes", 64<<10)

	v.SetDefault("orchestrator.extraction", string(types.ExtractGreedy))

	v.SetDefault("orchestrator.research.url", "https://ai.gateway.lovable.dev/v1/chat/completions")
	v.SetDefault("orchestrator.research.model", "google/gemini-2.5-pro")
	v.SetDefault("orchestrator.research.temperature", 0.3)
	v.SetDefault("orchestrator.research.timeout", 30*time.Second)

	v.SetDefault("orchestrator.enhancement.url", "https://api.groq.com/openai/v1/chat/completions")
	v.SetDefault("orchestrator.enhancement.model", "openai/gpt-oss-120b")
	v.SetDefault("orchestrator.enhancement.temperature", 0.2)
	v.SetDefault("orchestrator.enhancement.max_tokens", 4096)
	v.SetDefault("orchestrator.enhancement.timeout", 30*time.Second)
	v.SetDefault("orchestrator.enhancement.breaker.consecutive_failures", 5)
	v.SetDefault("orchestrator.enhancement.breaker.cooldown", time.Minute)

	v.SetDefault("history.backend", string(types.HistoryNone))
	v.SetDefault("history.sqlite_path", "data/history.db")
	v.SetDefault("history.table", "search_history")
}

// loadConfig assembles and validates the configuration from v and the
// loaded secrets.
func loadConfig(v *viper.Viper, loaded map[string]string) (types.Config, research.Keys, error) {
	ua := userAgent + version

	cfg := types.Config{
		Server: types.ServerConfig{
			Addr:         v.GetString("server.addr"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			MaxBodyBytes: v.GetInt64("server.max_body_bytes"),
		},
		Orchestrator: types.OrchestratorConfig{
			Research:   providerConfig(v, "orchestrator.research", ua),
			Extraction: types.ExtractionStrategy(v.GetString("orchestrator.extraction")),
			Enhancement: types.EnhancementConfig{
				ProviderConfig: providerConfig(v, "orchestrator.enhancement", ua),
				Breaker: types.BreakerConfig{
					ConsecutiveFailures: v.GetUint32("orchestrator.enhancement.breaker.consecutive_failures"),
					Cooldown:            v.GetDuration("orchestrator.enhancement.breaker.cooldown"),
				},
			},
		},
		History: types.HistoryConfig{
			Backend:     types.HistoryBackend(v.GetString("history.backend")),
			SQLitePath:  v.GetString("history.sqlite_path"),
			SupabaseURL: v.GetString("history.supabase_url"),
			SupabaseKey: secrets.Resolve(loaded, v.GetString("history.supabase_key"), secrets.SupabaseKeyFile, "SUPABASE_SERVICE_ROLE_KEY"),
			Table:       v.GetString("history.table"),
		},
	}

	keys := research.Keys{
		Research:    secrets.Resolve(loaded, v.GetString("research_api_key"), secrets.ResearchKeyFile, "LOVABLE_API_KEY"),
		Enhancement: secrets.Resolve(loaded, v.GetString("enhancement_api_key"), secrets.EnhanceKeyFile, "GROQ_API_KEY"),
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return types.Config{}, research.Keys{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, keys, nil
}

func providerConfig(v *viper.Viper, prefix, ua string) types.ProviderConfig {
	return types.ProviderConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   v.GetDuration(prefix + ".timeout"),
			UserAgent: ua,
		},
		URL:         v.GetString(prefix + ".url"),
		Model:       v.GetString(prefix + ".model"),
		Temperature: v.GetFloat64(prefix + ".temperature"),
		MaxTokens:   v.GetInt(prefix + ".max_tokens"),
	}
}
