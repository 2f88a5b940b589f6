package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

// palette holds the handful of colors the console encoder uses
type palette struct {
	time      string
	component [3]string
	key       string
	warn      string
	warnBg    string
	err       string
	errBg     string
}

var themes = map[string]palette{
	// Gruvbox Dark (warm, muted)
	"gruvbox": {
		time:      "\x1b[38;5;108m",
		component: [3]string{"\x1b[38;5;208m", "\x1b[38;5;214m", "\x1b[38;5;109m"},
		key:       "\x1b[38;5;245m",
		warn:      "\x1b[38;5;214m",
		warnBg:    "\x1b[48;5;58m",
		err:       "\x1b[38;5;167m",
		errBg:     "\x1b[48;5;88m",
	},
	// Everforest Dark (forest greens)
	"everforest": {
		time:      "\x1b[38;5;107m",
		component: [3]string{"\x1b[38;5;108m", "\x1b[38;5;65m", "\x1b[38;5;208m"},
		key:       "\x1b[38;5;245m",
		warn:      "\x1b[38;5;179m",
		warnBg:    "\x1b[48;5;58m",
		err:       "\x1b[38;5;167m",
		errBg:     "\x1b[48;5;52m",
	},
}

var (
	currentTheme = "everforest"
	bufferPool   = buffer.NewPool()
)

// SetTheme configures the color scheme for log output.
// "none" disables colors; unknown names are ignored.
func SetTheme(theme string) {
	if _, ok := themes[theme]; ok || theme == "none" {
		currentTheme = theme
	}
}

func colorsEnabled() bool {
	return currentTheme != "none" && os.Getenv("NO_COLOR") == ""
}

func paint(color, s string) string {
	if !colorsEnabled() {
		return s
	}
	return color + s + colorReset
}

// minimalEncoder is a compact console encoder.
// Format: "13:04:35  WARN  pipeline  Rolled back artifact  run_id=... stage=publishing"
//
// Context fields added through With() are kept in the embedded map encoder,
// so they are rendered together with the entry fields and never dropped.
type minimalEncoder struct {
	*zapcore.MapObjectEncoder
}

func newMinimalEncoder() *minimalEncoder {
	return &minimalEncoder{MapObjectEncoder: zapcore.NewMapObjectEncoder()}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	clone := zapcore.NewMapObjectEncoder()
	for k, v := range enc.Fields {
		clone.Fields[k] = v
	}
	return &minimalEncoder{MapObjectEncoder: clone}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	pal := themes[currentTheme]
	final := bufferPool.Get()

	final.AppendString(paint(pal.time, ent.Time.Format("15:04:05")))

	// Level: only shown for WARN and above
	if lvl := levelString(ent.Level, pal); lvl != "" {
		final.AppendString("  ")
		final.AppendString(lvl)
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(paint(componentColor(ent.LoggerName, pal), ent.LoggerName))
	}

	final.AppendString("  ")
	final.AppendString(ent.Message)

	pairs := contextPairs(enc.Fields)
	for _, f := range fields {
		m := zapcore.NewMapObjectEncoder()
		f.AddTo(m)
		pairs = append(pairs, contextPairs(m.Fields)...)
	}
	for _, p := range pairs {
		final.AppendString("  ")
		final.AppendString(paint(pal.key, p[0]+"="))
		final.AppendString(p[1])
	}

	final.AppendString("\n")
	return final, nil
}

// contextPairs renders a field map as sorted key/value pairs.
// zap adds "<key>Verbose" entries for errors implementing fmt.Formatter;
// those carry full stack traces and are left to the JSON encoder.
func contextPairs(m map[string]interface{}) [][2]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if strings.HasSuffix(k, "Verbose") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([][2]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, fmt.Sprint(m[k])})
	}
	return pairs
}

func levelString(level zapcore.Level, pal palette) string {
	switch {
	case level == zapcore.WarnLevel:
		return paint(colorBold+pal.warnBg+pal.warn, "WARN")
	case level >= zapcore.ErrorLevel:
		return paint(colorBold+pal.errBg+pal.err, level.CapitalString())
	case level == zapcore.DebugLevel:
		return "DEBUG"
	default:
		return ""
	}
}

// componentColor hashes the name so a component keeps its color across lines
func componentColor(name string, pal palette) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	return pal.component[hash%len(pal.component)]
}
