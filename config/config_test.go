package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	s, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "carball", s.Server.Name)
	assert.Equal(t, uint(7373), s.Server.Port)
	assert.Equal(t, 8080, s.Server.HTTPPort)
	assert.Equal(t, 60, s.Server.TickRate)
	assert.Equal(t, 4*time.Millisecond, s.Server.PollInterval)
	assert.Equal(t, "info", s.Log.Level)
	assert.Equal(t, "memory", s.Storage.Driver)
	assert.Equal(t, "5432", s.DB.Port)
	assert.False(t, s.Telemetry.Enabled)
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := `{
		"server": { "name": "eu-1", "tickRate": 30 },
		"log": { "level": "debug" },
		"storage": { "driver": "sqlite", "sqlitePath": "/tmp/x.db" }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "carball.json"), []byte(cfg), 0644))

	s, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "eu-1", s.Server.Name)
	assert.Equal(t, 30, s.Server.TickRate)
	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "sqlite", s.Storage.Driver)
	assert.Equal(t, "/tmp/x.db", s.Storage.SqlitePath)
	assert.Equal(t, uint(7373), s.Server.Port, "unset keys keep defaults")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CARBALL_LOG_LEVEL", "warn")

	s, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "warn", s.Log.Level)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "carball.json"), []byte(`{"server":`), 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestParseGameMode(t *testing.T) {
	tests := []struct {
		in   string
		want GameMode
		ok   bool
	}{
		{"1v1", Mode1v1, true},
		{"2v2", Mode2v2, true},
		{"3v3", Mode3v3, true},
		{"4v4", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseGameMode(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGameMode_Sizes(t *testing.T) {
	assert.Equal(t, 2, Mode2v2.TeamSize())
	assert.Equal(t, 6, Mode3v3.Players())
	assert.False(t, GameMode(7).Valid())
	assert.Equal(t, "1v1", Mode1v1.String())
}

func TestFixedDt(t *testing.T) {
	assert.Equal(t, time.Duration(16666666), FixedDt())
}
