package render

import (
	"context"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProducer struct {
	calls atomic.Int32
	ready bool
}

func (p *countingProducer) RenderFrame() (*image.RGBA, bool) {
	p.calls.Add(1)
	if !p.ready {
		return nil, false
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), true
}

func TestLoopVSyncDrivesFrames(t *testing.T) {
	p := &countingProducer{ready: true}
	var presented atomic.Int32
	l := NewLoop(p, SinkFunc(func(*image.RGBA) { presented.Add(1) }), 0)
	vsync := make(chan struct{})
	l.SetVSync(vsync)

	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()
	for i := 0; i < 3; i++ {
		vsync <- struct{}{}
	}
	close(vsync)

	require.NoError(t, <-done)
	assert.Equal(t, uint64(3), l.Frames())
	assert.Equal(t, int32(3), presented.Load())
	assert.False(t, l.Running())
}

func TestLoopSkipsEmptyFrames(t *testing.T) {
	p := &countingProducer{}
	l := NewLoop(p, SinkFunc(func(*image.RGBA) { t.Error("unexpected frame") }), 0)
	vsync := make(chan struct{})
	l.SetVSync(vsync)

	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()
	vsync <- struct{}{}
	vsync <- struct{}{}
	close(vsync)

	require.NoError(t, <-done)
	assert.Equal(t, int32(2), p.calls.Load())
	assert.Zero(t, l.Frames())
}

func TestLoopCancelledByContext(t *testing.T) {
	l := NewLoop(&countingProducer{ready: true}, SinkFunc(func(*image.RGBA) {}), 1000)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return l.Frames() >= 2 }, 2*time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestLoopStop(t *testing.T) {
	l := NewLoop(&countingProducer{}, SinkFunc(func(*image.RGBA) {}), 0)
	assert.Equal(t, time.Second/DefaultFrameRate, l.Interval())
	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()

	l.Stop()
	l.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}
