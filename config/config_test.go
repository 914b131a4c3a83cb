package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnv_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")

	cfg := LoadEnv()

	assert.Equal(t, ":5000", cfg.Server.HTTPPort)
	assert.Equal(t, "uploads", cfg.Storage.UploadDir)
	assert.Equal(t, "/uploads", cfg.Storage.PublicPrefix)
	assert.Equal(t, int64(5<<20), cfg.Storage.MaxUploadBytes)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("POSTGRES_MAX_OPEN_CONNS", "25")
	t.Setenv("POSTGRES_AUTO_MIGRATE", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := LoadEnv()

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 25, cfg.Postgres.MaxOpenConns)
	assert.False(t, cfg.Postgres.AutoMigrate)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 0, cfg.Redis.DB)
}
