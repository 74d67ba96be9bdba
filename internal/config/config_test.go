package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadMissingFileRegeneratesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestLoadInvalidFileRegeneratesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	assert.NoError(t, os.WriteFile(path, []byte("not valid toml {{{"), 0o644))

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
gui = true
debug = false

[server]
tcp_port = 1234
udp_port = 5678
grow = true
grow_limit = 10
`
	assert.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, uint16(1234), cfg.Server.TCPPort)
	assert.Equal(t, uint16(5678), cfg.Server.UDPPort)
	assert.True(t, cfg.Server.Grow)
	assert.Equal(t, 10, cfg.Server.GrowLimit)
	assert.True(t, cfg.GUI)
	assert.False(t, cfg.Debug)
}
