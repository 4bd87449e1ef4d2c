package debug_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/tsmacro/pkg/debug"
)

func TestSplitFuncName(t *testing.T) {
	tests := []struct {
		name     string
		pkg      string
		function string
	}{
		{"github.com/walteh/tsmacro/pkg/expand.New", "github.com/walteh/tsmacro/pkg/expand", "New"},
		{"github.com/walteh/tsmacro/pkg/expand.(*run).loop", "github.com/walteh/tsmacro/pkg/expand", "(*run).loop"},
		{"main.main", "main", "main"},
		{"main.run.func1", "main", "run.func1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg, fn := debug.SplitFuncName(tt.name)
			assert.Equal(t, tt.pkg, pkg)
			assert.Equal(t, tt.function, fn)
		})
	}
}

func TestFormatCaller(t *testing.T) {
	assert.Equal(t, "example.com/p:file.go:12", debug.FormatCaller("example.com/p", "/src/p/file.go", 12, false))
	assert.Equal(t, "p:file.go:3", debug.FormatCaller("p", "file.go", 3, false))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := debug.NewLogger(&buf, debug.Options{Level: zerolog.InfoLevel, JSON: true, Caller: true, RunID: "r1"})

	log.Debug().Msg("hidden")
	log.Info().Str("file", "a.ts").Msg("compiled file")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "compiled file", line["message"])
	assert.Equal(t, "r1", line["run"])
	assert.Equal(t, "a.ts", line["file"])
	assert.NotEmpty(t, line["time"])
	assert.Contains(t, line["caller"], ".go:")
}

func TestNewLoggerConsole(t *testing.T) {
	var buf bytes.Buffer
	log := debug.NewLogger(&buf, debug.Options{Level: zerolog.WarnLevel})
	log.Warn().Msg("careful")
	assert.Contains(t, buf.String(), "careful")
	assert.NotContains(t, buf.String(), "\x1b[", "no color unless asked")
}
