package logger

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// stripANSI removes ANSI color codes from a string for testing
func stripANSI(str string) string {
	ansiRegex := regexp.MustCompile(`\x1b\[[0-9;]*m`)
	return ansiRegex.ReplaceAllString(str, "")
}

func encode(t *testing.T, enc zapcore.Encoder, ent zapcore.Entry, fields ...zapcore.Field) string {
	t.Helper()
	buf, err := enc.EncodeEntry(ent, fields)
	require.NoError(t, err)
	defer buf.Free()
	return stripANSI(buf.String())
}

// The console encoder must never silently discard fields.
func TestMinimalEncoderNeverDiscardsFields(t *testing.T) {
	entry := zapcore.Entry{
		Level:      zapcore.InfoLevel,
		Time:       time.Date(2025, 10, 1, 13, 4, 35, 0, time.UTC),
		LoggerName: "pipeline",
		Message:    "Stage completed",
	}

	out := encode(t, newMinimalEncoder(), entry,
		zap.String("stage", "publishing"),
		zap.Int("size", 5000),
		zap.Bool("commit", false),
		zap.Float64("employment_rate", 68.1),
		zap.String("field.with.dots", "ok"),
	)

	assert.True(t, strings.HasPrefix(out, "13:04:35  pipeline  Stage completed"), out)
	for _, want := range []string{"stage=publishing", "size=5000", "commit=false", "employment_rate=68.1", "field.with.dots=ok"} {
		assert.Contains(t, out, want)
	}
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestMinimalEncoderKeepsContextFields(t *testing.T) {
	enc := newMinimalEncoder()
	enc.AddString("run_id", "abc")

	clone := enc.Clone()
	clone.AddString("stage", "extracting")

	entry := zapcore.Entry{Level: zapcore.InfoLevel, Time: time.Now(), Message: "msg"}

	out := encode(t, clone, entry)
	assert.Contains(t, out, "run_id=abc")
	assert.Contains(t, out, "stage=extracting")

	// The original is not affected by the clone
	out = encode(t, enc, entry)
	assert.NotContains(t, out, "stage=")
}

func TestMinimalEncoderLevels(t *testing.T) {
	enc := newMinimalEncoder()
	now := time.Now()

	info := encode(t, enc, zapcore.Entry{Level: zapcore.InfoLevel, Time: now, Message: "m"})
	assert.NotContains(t, info, "INFO")

	warn := encode(t, enc, zapcore.Entry{Level: zapcore.WarnLevel, Time: now, Message: "m"})
	assert.Contains(t, warn, "WARN")

	errLine := encode(t, enc, zapcore.Entry{Level: zapcore.ErrorLevel, Time: now, Message: "m"})
	assert.Contains(t, errLine, "ERROR")
}

func TestMinimalEncoderErrorField(t *testing.T) {
	out := encode(t, newMinimalEncoder(),
		zapcore.Entry{Level: zapcore.ErrorLevel, Time: time.Now(), Message: "Run failed"},
		zap.Error(errors.New("integrity check failed")))

	assert.Contains(t, out, "error=integrity check failed")
	assert.NotContains(t, out, "errorVerbose")
}

func TestSetTheme(t *testing.T) {
	defer SetTheme("everforest")

	SetTheme("gruvbox")
	assert.Equal(t, "gruvbox", currentTheme)

	SetTheme("unknown-theme")
	assert.Equal(t, "gruvbox", currentTheme)

	SetTheme("none")
	assert.Equal(t, "plain", paint("\x1b[1m", "plain"))
}
