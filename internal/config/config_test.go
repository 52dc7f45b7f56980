package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Gateway.Port != 18920 {
		t.Errorf("port = %d", cfg.Gateway.Port)
	}
	if cfg.Engage.DebounceSeconds != 6 {
		t.Errorf("debounce = %d", cfg.Engage.DebounceSeconds)
	}
	if cfg.Campaigns.CheckpointEvery != 5 {
		t.Errorf("checkpoint every = %d", cfg.Campaigns.CheckpointEvery)
	}
	if cfg.Generation.TransferMarker != "[[transfer]]" || cfg.Generation.QualifiedMarker != "[[qualified]]" {
		t.Errorf("markers = %q / %q", cfg.Generation.TransferMarker, cfg.Generation.QualifiedMarker)
	}
	if cfg.IsManagedMode() {
		t.Error("default config must be standalone")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.Port != 18920 {
		t.Errorf("port = %d, want default", cfg.Gateway.Port)
	}
}

func TestLoadJSON5File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
  // local setup
  gateway: { port: 9000 },
  follow_up: { wait_minutes: 30, messages: ["still there?"] },
  database: { mode: "managed" },
}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.Port != 9000 {
		t.Errorf("port = %d", cfg.Gateway.Port)
	}
	if cfg.FollowUp.WaitMinutes != 30 || len(cfg.FollowUp.Messages) != 1 {
		t.Errorf("follow_up = %+v", cfg.FollowUp)
	}
	// File values merge over defaults; untouched sections keep theirs.
	if cfg.Campaigns.CheckpointEvery != 5 {
		t.Errorf("checkpoint every = %d, want default preserved", cfg.Campaigns.CheckpointEvery)
	}
	// Managed mode needs the DSN from env too.
	if cfg.IsManagedMode() {
		t.Error("managed mode without a DSN should not activate")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LEADCLAW_GATEWAY_TOKEN", "secret-token")
	t.Setenv("LEADCLAW_PORT", "7777")
	t.Setenv("LEADCLAW_POSTGRES_DSN", "postgres://localhost/leadclaw")
	t.Setenv("LEADCLAW_MODE", "managed")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.Token != "secret-token" {
		t.Errorf("token = %q", cfg.Gateway.Token)
	}
	if cfg.Gateway.Port != 7777 {
		t.Errorf("port = %d", cfg.Gateway.Port)
	}
	if !cfg.IsManagedMode() {
		t.Error("managed mode should activate with mode and DSN set")
	}
}

func TestSecretsNeverReadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{gateway: {token: "leaked"}, database: {postgres_dsn: "leaked"}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.Token != "" || cfg.Database.PostgresDSN != "" {
		t.Errorf("secrets loaded from file: token=%q dsn=%q",
			cfg.Gateway.Token, cfg.Database.PostgresDSN)
	}
}

func TestOTLPEndpointImpliesEnabled(t *testing.T) {
	t.Setenv("LEADCLAW_OTLP_ENDPOINT", "http://localhost:4318")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.Endpoint == "" {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}

	got := ExpandHome("~/.leadclaw/data")
	want := filepath.Join(home, ".leadclaw/data")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if ExpandHome("/abs/path") != "/abs/path" {
		t.Error("absolute paths must pass through")
	}
}
