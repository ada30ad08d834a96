package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr() != ":8080" {
		t.Errorf("expected default listen address :8080, got %q", cfg.ListenAddr())
	}
	if cfg.LedgerBackend != LedgerSQLite {
		t.Errorf("expected sqlite ledger, got %q", cfg.LedgerBackend)
	}
	if cfg.FCMTopic != "all_users" {
		t.Errorf("expected all_users topic, got %q", cfg.FCMTopic)
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Errorf("expected cache ttl 10m, got %v", cfg.CacheTTL)
	}
	if cfg.WorkerVisibilityTimeout != time.Minute {
		t.Errorf("expected visibility timeout 1m, got %v", cfg.WorkerVisibilityTimeout)
	}
	if cfg.Location() != time.UTC {
		t.Errorf("expected UTC location, got %v", cfg.Location())
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faith.yaml")
	content := `
app_timezone: Africa/Nairobi
cache_ttl: 30s
fcm_topic: parish
admin_role: editor
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FCM_TOPIC", "diocese")
	t.Setenv("AUTH0_TEST_MODE", "1")
	t.Setenv("FUNCTIONS_CUSTOMHANDLER_PORT", "7071")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Location().String() != "Africa/Nairobi" {
		t.Errorf("unexpected location %v", cfg.Location())
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("expected file value for cache ttl, got %v", cfg.CacheTTL)
	}
	if cfg.FCMTopic != "diocese" {
		t.Errorf("expected env to override file, got %q", cfg.FCMTopic)
	}
	if cfg.AdminRole != "editor" {
		t.Errorf("expected admin role from file, got %q", cfg.AdminRole)
	}
	if !cfg.Auth0TestMode {
		t.Errorf("expected test mode from env")
	}
	if cfg.ListenAddr() != ":7071" {
		t.Errorf("expected functions port, got %q", cfg.ListenAddr())
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"timezone":     {"APP_TIMEZONE": "Mars/Olympus"},
		"backend":      {"LEDGER_BACKEND": "postgres"},
		"tablesNoConn": {"LEDGER_BACKEND": "aztables"},
		"pollInterval": {"WORKER_POLL_INTERVAL": "0s"},
		"idempotency":  {"IDEMPOTENCY_TTL": "0s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestValidateServe(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ValidateServe(); err == nil {
		t.Fatalf("expected missing Auth0 config error")
	}
	cfg.Auth0TestMode = true
	if err := cfg.ValidateServe(); err == nil {
		t.Fatalf("expected missing test secret error")
	}
	cfg.TestJWTSecret = "secret"
	if err := cfg.ValidateServe(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg = &Config{Auth0Domain: "tenant.eu.auth0.com", Auth0Audience: "https://api"}
	if err := cfg.ValidateServe(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateQueue(t *testing.T) {
	cfg := &Config{NotifyQueue: "q"}
	if err := cfg.ValidateQueue(); err == nil {
		t.Fatalf("expected missing connection string error")
	}
	cfg.StorageConnectionString = "UseDevelopmentStorage=true"
	if err := cfg.ValidateQueue(); err == nil {
		t.Fatalf("expected missing redis error")
	}
	cfg.RedisConnectionString = "localhost:6379"
	if err := cfg.ValidateQueue(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
