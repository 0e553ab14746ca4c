package worker_test

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/quizflash/internal/worker"
)

type countJob struct {
	n     *atomic.Int32
	block chan struct{}
	err   error
}

func (j countJob) Name() string { return "count" }

func (j countJob) Run(ctx context.Context) error {
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	j.n.Add(1)
	return j.err
}

func TestPool_RunsAndDrainsOnStop(t *testing.T) {
	var n atomic.Int32
	p := worker.NewPool(2, 16)
	p.Start(context.Background())

	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(countJob{n: &n}))
	}
	p.Submit(countJob{n: &n, err: stderrors.New("ignored")})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p.Stop(ctx)

	assert.Equal(t, int32(11), n.Load())
	assert.ErrorIs(t, p.Submit(countJob{n: &n}), worker.ErrStopped)
}

func TestPool_SubmitDoesNotBlockWhenFull(t *testing.T) {
	var n atomic.Int32
	block := make(chan struct{})
	p := worker.NewPool(1, 1)
	p.Start(context.Background())

	require.NoError(t, p.Submit(countJob{n: &n, block: block}))
	// the worker may or may not have picked the first job up yet
	var full bool
	for i := 0; i < 3; i++ {
		if stderrors.Is(p.Submit(countJob{n: &n, block: block}), worker.ErrQueueFull) {
			full = true
		}
	}
	assert.True(t, full)

	close(block)
	p.Stop(context.Background())
}

func TestPool_StopCancelsAfterDeadline(t *testing.T) {
	var n atomic.Int32
	p := worker.NewPool(1, 4)
	p.Start(context.Background())
	require.NoError(t, p.Submit(countJob{n: &n, block: make(chan struct{})}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	p.Stop(ctx)

	assert.Equal(t, int32(0), n.Load())
}
