package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "0.0.0.0:4000", cfg.ListenAddress)
	assert.Equal(t, "logs/trace", cfg.LogPrefix)
	assert.Empty(t, cfg.HostAddress)
	assert.False(t, cfg.Log)
	assert.False(t, cfg.ChecksActive)
	assert.False(t, cfg.PatchActive)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cinch.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `{
		"listen_address": "127.0.0.1:9000",
		"host_address": "usbredir-host:4000",
		"log": true,
		"log_prefix": "/var/log/cinch",
		"checks_active": true,
		"patch_active": true,
		"patches": "/etc/cinch/patches",
		"third_party_folder": "/etc/cinch/third-party"
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddress)
	assert.Equal(t, "usbredir-host:4000", cfg.HostAddress)
	assert.True(t, cfg.Log)
	assert.Equal(t, "/var/log/cinch", cfg.LogPrefix)
	assert.True(t, cfg.ChecksActive)
	assert.True(t, cfg.PatchActive)
	assert.Equal(t, "/etc/cinch/patches", cfg.Patches)
	assert.Equal(t, "/etc/cinch/third-party", cfg.ThirdPartyFolder)
}

func TestLoadKeepsDefaultsForOmittedFields(t *testing.T) {
	path := writeConfig(t, `{"listen_address": "127.0.0.1:9000", "host_address": "host:4000"}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "logs/trace", cfg.LogPrefix)
	assert.False(t, cfg.Log)
}

func TestLoadRequiresListenAddress(t *testing.T) {
	path := writeConfig(t, `{"host_address": "host:4000"}`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "listen_address is required")
}

func TestLoadRequiresHostAddress(t *testing.T) {
	path := writeConfig(t, `{"listen_address": "127.0.0.1:9000"}`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "host_address is required")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadInvalidJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)
	_, err := Load(path)
	assert.Error(t, err)
}
