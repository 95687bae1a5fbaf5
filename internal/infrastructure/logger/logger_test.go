package logger

import (
	"context"
	"testing"

	"cashledger/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, parseLevel(tc.in))
		})
	}
}

func TestNew(t *testing.T) {
	l := New(config.LogConfig{Level: "debug", Format: "console", Output: "stderr"})
	assert.NotNil(t, l)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestFromContext(t *testing.T) {
	fallback := zap.NewNop().Named("fallback")

	assert.Same(t, fallback, FromContext(context.Background(), fallback))
	assert.NotNil(t, FromContext(context.Background(), nil))

	attached := zap.NewNop().Named("request")
	ctx := WithContext(context.Background(), attached)
	assert.Same(t, attached, FromContext(ctx, fallback))
}
