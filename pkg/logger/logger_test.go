package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "forecast.log")

	require.NoError(t, Setup(Options{Level: "debug", File: file}))
	t.Cleanup(func() { SetLevel("info") })

	Log.Debug().Str("run_id", "abc").Msg("forecast run started")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "forecast run started")
	assert.Contains(t, string(data), "run_id")
}

func TestSetLevelFallsBackToInfo(t *testing.T) {
	SetLevel("verbose")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	SetLevel("warn")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	SetLevel("info")
}
