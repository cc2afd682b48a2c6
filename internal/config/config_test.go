package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.DatabaseType != "sqlite" || cfg.StatusPort != "8090" {
		t.Errorf("Load() = type %q port %q, want sqlite 8090", cfg.DatabaseType, cfg.StatusPort)
	}
	if cfg.SyncTimeout != 10*time.Second || cfg.MaxConflictRetries != 3 {
		t.Errorf("Load() = timeout %s retries %d, want 10s 3", cfg.SyncTimeout, cfg.MaxConflictRetries)
	}
	if cfg.DefaultTeacherName != "The Word Master AI" {
		t.Errorf("DefaultTeacherName = %q", cfg.DefaultTeacherName)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(*Config) bool
	}{
		{"duration", "SYNC_RETRY_INTERVAL", "90s", func(c *Config) bool { return c.SyncRetryInterval == 90*time.Second }},
		{"bad duration keeps default", "SYNC_TIMEOUT", "soon", func(c *Config) bool { return c.SyncTimeout == 10*time.Second }},
		{"int", "REMOTE_MAX_ATTEMPTS", "5", func(c *Config) bool { return c.RemoteMaxAttempts == 5 }},
		{"bad int keeps default", "MAX_CONFLICT_RETRIES", "many", func(c *Config) bool { return c.MaxConflictRetries == 3 }},
		{"bool", "DEBUG", "true", func(c *Config) bool { return c.Debug }},
		{"string", "CACHE_PATH", "/tmp/wh.db", func(c *Config) bool { return c.CachePath == "/tmp/wh.db" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if cfg := Load(); !tt.check(cfg) {
				t.Errorf("Load() with %s=%s = %+v", tt.key, tt.value, cfg)
			}
		})
	}
}
