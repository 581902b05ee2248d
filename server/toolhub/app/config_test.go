package app

import (
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("POSTGRES_DSN", "postgres://toolhub:pw@localhost:5432/toolhub")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ACCESS_KEY", "minio")
	t.Setenv("MINIO_SECRET_KEY", "minio123")
	t.Setenv("PUBLIC_BASE_URL", "http://localhost:9000")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("default port: %q", cfg.Port)
	}
	if cfg.RetentionDays != 7 {
		t.Fatalf("default retention days: %d", cfg.RetentionDays)
	}
	if cfg.SweepSchedule != "@hourly" {
		t.Fatalf("default sweep schedule: %q", cfg.SweepSchedule)
	}
	if cfg.UsageEventsEnabled {
		t.Fatalf("usage events must default to off")
	}
	if cfg.MinioBucket != "toolhub-files" {
		t.Fatalf("default bucket: %q", cfg.MinioBucket)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("RETENTION_DAYS", "30")
	t.Setenv("USAGE_EVENTS_ENABLED", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" || cfg.RetentionDays != 30 || !cfg.UsageEventsEnabled {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadConfig_ReportsAllMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PUBLIC_BASE_URL", "")

	_, err := LoadConfig()
	if err == nil {
		t.Fatalf("expected error for missing required vars")
	}
	msg := err.Error()
	if !strings.Contains(msg, "JWT_SECRET") || !strings.Contains(msg, "PUBLIC_BASE_URL") {
		t.Fatalf("error must name every missing variable, got %q", msg)
	}
}
