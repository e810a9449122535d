package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func newTestLogger(level zapcore.Level) (Logger, *zaptest.Buffer) {
	buf := &zaptest.Buffer{}
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return NewLoggerFromCore(zapcore.NewCore(encoder, buf, level)), buf
}

func TestNewLogger(t *testing.T) {
	t.Run("console to stderr by default", func(t *testing.T) {
		l, err := NewLogger(LogConfig{Level: "warn"})
		require.NoError(t, err)
		assert.NotNil(t, l)
	})

	t.Run("json format", func(t *testing.T) {
		l, err := NewLogger(LogConfig{Level: "debug", Format: "json", OutputPaths: []string{"stderr"}})
		require.NoError(t, err)
		assert.NotNil(t, l)
	})

	t.Run("unopenable output path", func(t *testing.T) {
		_, err := NewLogger(LogConfig{OutputPaths: []string{"/nonexistent-dir/palmlens.log"}})
		assert.Error(t, err)
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLoggerWritesFields(t *testing.T) {
	l, buf := newTestLogger(zapcore.DebugLevel)

	l.With(String("run_id", "abc")).Warn("row failed",
		Int("line", 4),
		Float64("weight", 12.5),
		Bool("strict", false),
		Duration("took", time.Second),
		Err(errors.New("boom")),
	)

	out := buf.String()
	assert.Contains(t, out, `"msg":"row failed"`)
	assert.Contains(t, out, `"run_id":"abc"`)
	assert.Contains(t, out, `"line":4`)
	assert.Contains(t, out, `"weight":12.5`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestLoggerRespectsLevel(t *testing.T) {
	l, buf := newTestLogger(zapcore.WarnLevel)

	l.Info("stage started")
	l.Debug("detail")
	assert.Empty(t, buf.Lines())

	l.Named("scorer").Error("fatal")
	require.Len(t, buf.Lines(), 1)
	assert.Contains(t, buf.Lines()[0], `"logger":"scorer"`)
}

func TestErrNil(t *testing.T) {
	assert.Equal(t, "<nil>", Err(nil).Value)
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Debug("msg")
	l.Info("msg")
	l.Warn("msg")
	l.Error("msg")
	assert.NotNil(t, l.With(String("k", "v")))
	assert.NotNil(t, l.Named("x"))
	assert.NoError(t, l.Sync())
}
