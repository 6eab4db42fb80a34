package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSchedulerRunsJobs(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	var periodic, once atomic.Int32
	s.RegisterJob("periodic", 10*time.Millisecond, func(ctx context.Context) error {
		periodic.Add(1)
		return errors.New("transient")
	})
	s.RegisterOnceJob("once", func(ctx context.Context) error {
		once.Add(1)
		return nil
	})

	s.Start(context.Background())
	s.Start(context.Background())
	require.Eventually(t, func() bool { return periodic.Load() >= 3 }, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(stopCtx)
	s.Stop(stopCtx)

	require.Equal(t, int32(1), once.Load())
	after := periodic.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, after, periodic.Load())
}

func TestSchedulerJobTimeout(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	deadlines := make(chan bool, 1)
	s.RegisterJob("slow", 40*time.Millisecond, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		select {
		case deadlines <- ok:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	})
	s.Start(context.Background())
	defer s.Stop(context.Background())

	select {
	case ok := <-deadlines:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
}
