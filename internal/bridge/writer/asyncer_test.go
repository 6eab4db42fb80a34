package writer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingWriter struct {
	mu      sync.Mutex
	batches [][]int
	closed  bool
}

func (w *recordingWriter) BWrite(_ context.Context, batch []int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, append([]int(nil), batch...))
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *recordingWriter) items() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []int
	for _, b := range w.batches {
		out = append(out, b...)
	}
	return out
}

func TestAsyncBatchWriterFlushesOnBatchSize(t *testing.T) {
	rw := &recordingWriter{}
	w := NewAsyncBatchWriter[int](zap.NewNop(), rw, 2, time.Hour, "test_batch", 1)
	w.Start(context.Background())

	w.Submit(1)
	w.Submit(2)
	require.Eventually(t, func() bool { return len(rw.items()) == 2 }, time.Second, 5*time.Millisecond)

	w.Submit(3)
	w.Close()
	require.Equal(t, []int{1, 2, 3}, rw.items())
	require.True(t, rw.closed)

	w.Close()
}

func TestAsyncBatchWriterFlushesOnTicker(t *testing.T) {
	rw := &recordingWriter{}
	w := NewAsyncBatchWriter[int](zap.NewNop(), rw, 100, 10*time.Millisecond, "test_ticker", 1)
	w.Start(context.Background())
	defer w.Close()

	w.Submit(42)
	require.Eventually(t, func() bool { return len(rw.items()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestAsyncBatchWriterFlushesOnCancel(t *testing.T) {
	rw := &recordingWriter{}
	w := NewAsyncBatchWriter[int](zap.NewNop(), rw, 100, time.Hour, "test_cancel", 1)
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	w.Submit(7)
	// 等待 worker 取走
	require.Eventually(t, func() bool { return len(w.inputChan) == 0 }, time.Second, time.Millisecond)
	cancel()
	w.Close()
	require.Equal(t, []int{7}, rw.items())
}
