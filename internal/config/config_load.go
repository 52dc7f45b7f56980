package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:             "0.0.0.0",
			Port:             18920,
			WebhookRateLimit: 60,
		},
		Transport: TransportConfig{
			TimeoutSeconds:    30,
			SendRatePerMinute: 20,
		},
		Generation: GenerationConfig{
			Provider:        "openai",
			Model:           "gpt-4o-mini",
			MaxTokens:       1024,
			Temperature:     0.7,
			TransferMarker:  "[[transfer]]",
			QualifiedMarker: "[[qualified]]",
		},
		Engage: EngageConfig{
			DebounceSeconds: 6,
			HistoryLimit:    20,
			ChunkDelayMinMs: 800,
			ChunkDelayMaxMs: 4000,
		},
		FollowUp: FollowUpConfig{
			IntervalMinutes:   5,
			WaitMinutes:       60,
			MaxNudges:         3,
			ReactivateMinutes: 720,
		},
		Campaigns: CampaignsConfig{
			CheckpointEvery: 5,
			MinDelaySeconds: 20,
			MaxDelaySeconds: 60,
		},
		Storage: StorageConfig{
			Dir: "~/.leadclaw/data",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error: defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	// Secrets (env only, never persisted)
	envStr("LEADCLAW_GATEWAY_TOKEN", &c.Gateway.Token)
	envStr("LEADCLAW_TRANSPORT_TOKEN", &c.Transport.DefaultToken)
	envStr("LEADCLAW_GENERATION_API_KEY", &c.Generation.APIKey)
	envStr("LEADCLAW_POSTGRES_DSN", &c.Database.PostgresDSN)

	envStr("LEADCLAW_TRANSPORT_URL", &c.Transport.BaseURL)
	envStr("LEADCLAW_GENERATION_BASE", &c.Generation.APIBase)
	envStr("LEADCLAW_MODEL", &c.Generation.Model)
	envStr("LEADCLAW_STORAGE_DIR", &c.Storage.Dir)
	envStr("LEADCLAW_MODE", &c.Database.Mode)

	envStr("LEADCLAW_HOST", &c.Gateway.Host)
	if v := os.Getenv("LEADCLAW_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Gateway.Port = port
		}
	}

	envStr("LEADCLAW_OTLP_ENDPOINT", &c.Telemetry.Endpoint)
	if c.Telemetry.Endpoint != "" {
		c.Telemetry.Enabled = true
	}
}

// ExpandHome expands a leading ~/ to the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
