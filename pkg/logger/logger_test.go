package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	tl := NewLoggerWithOptions("test", Options{Dir: dir, MaxSizeMB: 1})
	SetLogLevel("info")
	tl.Info("hello", zap.String("k", "v"))
	_ = tl.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"hello"`)
	require.Contains(t, string(data), `"service":"test"`)
}

func TestTraceFields(t *testing.T) {
	shutdown := InitTrace("deposit-bridge", "test")
	defer shutdown(context.Background())

	ctx, span := StartSpan(context.Background(), "test", "span")
	defer span.End()
	require.True(t, SpanFromContext(ctx).SpanContext().IsValid())

	base := zap.NewNop()
	require.NotSame(t, base, NewLoggerWithTrace(ctx, base))
	require.Same(t, base, NewLoggerWithTrace(context.Background(), base))
}
