package logger

import (
	"bytes"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"events-report/internal/config"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAddsServiceFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, config.Config{ServiceName: "events-report", InstanceID: "ap-1"})

	l.Info().Str("component", "test").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "events-report", line["service"])
	assert.Equal(t, "ap-1", line["instance"])
	assert.Equal(t, "hello", line["message"])
}

func TestNewSamplesInfoButNotWarn(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, config.Config{LogSampleN: 10})

	for i := 0; i < 10; i++ {
		l.Info().Msg("info")
	}
	for i := 0; i < 3; i++ {
		l.Warn().Msg("warn")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1+3)
}

func TestInitWritesToRollingFile(t *testing.T) {
	prevLogger, prevLevel := zlog.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		zlog.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
		stdlog.SetOutput(os.Stderr)
	})

	path := filepath.Join(t.TempDir(), "report.log")
	closer := Init(config.Config{
		LogLevel:     "debug",
		LogFile:      path,
		LogFileMaxMB: 1,
		ServiceName:  "events-report",
	})

	zlog.Debug().Msg("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}
