package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netfluenz/netfluenz-api/internal/config"
)

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	setTestEnv(t, "https://project.supabase.co")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "https://project.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, config.StoreBackendREST, cfg.StoreBackend)

	slog.Default().Info("init test")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "raw: %s", buf.String())
	assert.Equal(t, "init test", entry["msg"])
}

func TestInit_AppliesLogLevel(t *testing.T) {
	setTestEnv(t, "https://project.supabase.co")
	t.Setenv("LOG_LEVEL", "warn")

	var buf bytes.Buffer
	_, err := Init(&buf)
	require.NoError(t, err)

	slog.Default().Info("suppressed")
	assert.Empty(t, buf.String())
}

func TestInit_WithMissingConfig_ReturnsError(t *testing.T) {
	clearTestEnv(t)

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SUPABASE_URL")
}

func setTestEnv(t *testing.T, supabaseURL string) {
	t.Helper()
	clearTestEnv(t)
	t.Setenv("SUPABASE_URL", supabaseURL)
	t.Setenv("SUPABASE_ANON_KEY", "test-anon-key")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "test-service-key")
}

func clearTestEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SUPABASE_URL", "VITE_SUPABASE_URL",
		"SUPABASE_ANON_KEY", "VITE_SUPABASE_ANON_KEY",
		"SUPABASE_SERVICE_ROLE_KEY", "SUPABASE_JWT_SECRET",
		"STORE_BACKEND", "DATABASE_URL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}
