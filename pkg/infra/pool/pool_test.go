package pool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolSubmitAndWait(t *testing.T) {
	p, err := New("test", &Config{Capacity: 2, ExpiryDuration: time.Second})
	require.NoError(t, err)
	defer p.Release()

	var n atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(func() { n.Add(1) }))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Wait(ctx))

	assert.Equal(t, int32(10), n.Load())
	stats := p.Stats()
	assert.Equal(t, int64(10), stats.Submitted)
	assert.Equal(t, int64(10), stats.Completed)
}

func TestPoolNonblockingOverload(t *testing.T) {
	p, err := New("overload", &Config{Capacity: 1, ExpiryDuration: time.Second, Nonblocking: true})
	require.NoError(t, err)
	defer p.Release()

	block := make(chan struct{})
	require.NoError(t, p.Submit(func() { <-block }))

	err = p.Submit(func() {})
	assert.ErrorIs(t, err, ErrPoolOverload)
	assert.Equal(t, int64(1), p.Stats().Rejected)
	close(block)
}

func TestPoolPanicRecovered(t *testing.T) {
	recovered := make(chan interface{}, 1)
	p, err := New("panic", &Config{
		Capacity:       1,
		ExpiryDuration: time.Second,
		PanicHandler:   func(r interface{}) { recovered <- r },
	})
	require.NoError(t, err)
	defer p.Release()

	require.NoError(t, p.Submit(func() { panic("boom") }))

	select {
	case r := <-recovered:
		assert.Equal(t, "boom", r)
	case <-time.After(5 * time.Second):
		t.Fatal("panic handler not called")
	}
	assert.Equal(t, int64(1), p.Stats().Panics)
}

func TestPoolSubmitAfterRelease(t *testing.T) {
	p, err := New("closed", nil)
	require.NoError(t, err)
	p.Release()

	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
}

func TestPoolSubmitWithCanceledContext(t *testing.T) {
	p, err := New("ctx", nil)
	require.NoError(t, err)
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.SubmitWithContext(ctx, func(context.Context) {}), context.Canceled)
}

func TestNewRejectsZeroCapacity(t *testing.T) {
	_, err := New("zero", &Config{Capacity: 0})
	assert.Error(t, err)
}
