package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 7, cfg.Rounds)
	assert.Equal(t, "Individual_Rankings.csv", cfg.CatalogPath)
	assert.Equal(t, 5*time.Second, cfg.WriteTimeout)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DRAFT_ROUNDS", "3")
	t.Setenv("WS_ALLOWED_ORIGINS", "example.com,*.example.org")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 3, cfg.Rounds)
	assert.Equal(t, []string{"example.com", "*.example.org"}, cfg.AllowedOrigin)
}

func TestLoad_DotenvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CATALOG_PATH=/data/rankings.csv\n"), 0o600))
	// godotenv never overrides a variable that is already set
	t.Setenv("CATALOG_PATH", "")
	os.Unsetenv("CATALOG_PATH")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/rankings.csv", cfg.CatalogPath)
}

func TestLoad_MissingDotenvIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{name: "zero rounds", key: "DRAFT_ROUNDS", val: "0"},
		{name: "port out of range", key: "PORT", val: "70000"},
		{name: "not a number", key: "PORT", val: "eighty"},
		{name: "zero buffer", key: "CLIENT_BUFFER", val: "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
