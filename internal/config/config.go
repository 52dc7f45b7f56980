// Package config holds the root configuration for the leadclaw gateway.
// Config is loaded from a JSON5 file and overlaid with LEADCLAW_* env vars;
// secrets (tokens, API keys, DSNs) come from env only and are never written
// back to the config file.
package config

// Config is the root configuration for the leadclaw gateway.
type Config struct {
	Gateway    GatewayConfig    `json:"gateway"`
	Transport  TransportConfig  `json:"transport"`
	Generation GenerationConfig `json:"generation"`
	Engage     EngageConfig     `json:"engage"`
	FollowUp   FollowUpConfig   `json:"follow_up"`
	Campaigns  CampaignsConfig  `json:"campaigns"`
	Storage    StorageConfig    `json:"storage"`
	Database   DatabaseConfig   `json:"database,omitempty"`
	Telemetry  TelemetryConfig  `json:"telemetry,omitempty"`
}

// GatewayConfig configures the HTTP/WebSocket server.
type GatewayConfig struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	Token          string   `json:"-"` // from env LEADCLAW_GATEWAY_TOKEN only
	AllowedOrigins []string `json:"allowed_origins,omitempty"`

	// Webhook intake rate limit, hits per channel per minute. 0 = default.
	WebhookRateLimit int `json:"webhook_rate_limit,omitempty"`
}

// TransportConfig configures the external chat-transport gateway client.
type TransportConfig struct {
	BaseURL        string `json:"base_url"`
	DefaultToken   string `json:"-"` // from env LEADCLAW_TRANSPORT_TOKEN only
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`

	// Outbound sends per channel per minute. 0 disables throttling.
	SendRatePerMinute int `json:"send_rate_per_minute,omitempty"`
}

// GenerationConfig configures the text-generation service.
type GenerationConfig struct {
	Provider    string  `json:"provider"` // "openai" or any OpenAI-compatible endpoint
	APIKey      string  `json:"-"`        // from env LEADCLAW_GENERATION_API_KEY only
	APIBase     string  `json:"api_base,omitempty"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`

	// Control markers the model embeds in replies. Stripped and interpreted
	// in a single parsing pass by the generation adapter.
	TransferMarker  string `json:"transfer_marker,omitempty"`
	QualifiedMarker string `json:"qualified_marker,omitempty"`
}

// EngageConfig tunes the inbound conversation pipeline.
type EngageConfig struct {
	// Quiet period before a buffered turn is flushed to generation.
	DebounceSeconds int `json:"debounce_seconds,omitempty"`

	// History turns fetched from the transport for generation context.
	HistoryLimit int `json:"history_limit,omitempty"`

	// Inter-chunk delay bounds for multi-paragraph replies. The actual delay
	// scales with chunk length, clamped to [min, max].
	ChunkDelayMinMs int `json:"chunk_delay_min_ms,omitempty"`
	ChunkDelayMaxMs int `json:"chunk_delay_max_ms,omitempty"`
}

// FollowUpConfig tunes the periodic follow-up sweeps. Per-channel settings
// override these defaults.
type FollowUpConfig struct {
	IntervalMinutes int `json:"interval_minutes,omitempty"`

	// Optional cron window (gronx syntax). When set, sweeps only run on
	// ticks that match the expression, e.g. "* 9-18 * * 1-5" for business
	// hours. Empty = every tick.
	Window string `json:"window,omitempty"`

	WaitMinutes       int      `json:"wait_minutes,omitempty"`
	MaxNudges         int      `json:"max_nudges,omitempty"`
	Messages          []string `json:"messages,omitempty"`
	ReactivateMinutes int      `json:"reactivate_minutes,omitempty"`
}

// CampaignsConfig tunes the bulk-campaign dispatcher.
type CampaignsConfig struct {
	// Checkpoint persistence cadence, in sends.
	CheckpointEvery int `json:"checkpoint_every,omitempty"`

	// Default inter-send delay range in seconds, used when a submission
	// does not specify its own.
	MinDelaySeconds int `json:"min_delay_seconds,omitempty"`
	MaxDelaySeconds int `json:"max_delay_seconds,omitempty"`
}

// StorageConfig locates the standalone-mode document store.
type StorageConfig struct {
	Dir string `json:"dir,omitempty"`
}

// DatabaseConfig configures Postgres for managed (multi-tenant) mode.
// PostgresDSN is NEVER read from the config file, only from env
// LEADCLAW_POSTGRES_DSN.
type DatabaseConfig struct {
	PostgresDSN string `json:"-"`
	Mode        string `json:"mode,omitempty"` // "standalone" (default) or "managed"
}

// IsManagedMode reports whether the gateway runs against Postgres.
func (c *Config) IsManagedMode() bool {
	return c.Database.Mode == "managed" && c.Database.PostgresDSN != ""
}

// TelemetryConfig configures optional OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"` // OTLP HTTP endpoint URL
	ServiceName string `json:"service_name,omitempty"`
}
