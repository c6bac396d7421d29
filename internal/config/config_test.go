package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_URL", "http://localhost:8090")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("JANITOR_RETENTION", "48h")

	cfg := Load()

	assert.Equal(t, 48*time.Hour, cfg.JanitorRetention, "duration envs are honored")
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.True(t, cfg.IsDevelopment())
}

func TestJanitorRetentionDefault(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_URL", "http://localhost:8090")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("JANITOR_RETENTION", "")

	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.JanitorRetention)
}
