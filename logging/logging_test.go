package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"trace", zerolog.TraceLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestSetup_FiltersByLevel(t *testing.T) {
	var out bytes.Buffer
	log, closer, err := Setup(Options{Level: "warn", Console: &out})
	require.NoError(t, err)
	defer closer.Close()

	log.Info().Msg("quiet")
	log.Warn().Msg("loud")
	assert.NotContains(t, out.String(), "quiet")
	assert.Contains(t, out.String(), "loud")
}

func TestSetup_WritesFile(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	log, closer, err := Setup(Options{Level: "info", Dir: dir, Name: "test", Console: &out})
	require.NoError(t, err)

	log.Info().Str("session", "s1").Msg("Session created")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "Session created")
	assert.Contains(t, string(b), "session=s1")
}
