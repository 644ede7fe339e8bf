package render

import (
	"context"
	"image"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultFrameRate is used when no display refresh signal is supplied.
const DefaultFrameRate = 60

// Producer supplies frames. RenderFrame is called on every refresh and
// returns false only when there is no surface to present.
type Producer interface {
	RenderFrame() (*image.RGBA, bool)
}

// Sink receives presented frames.
type Sink interface {
	Present(frame *image.RGBA)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(frame *image.RGBA)

// Present calls f(frame).
func (f SinkFunc) Present(frame *image.RGBA) { f(frame) }

// Loop pulls one frame per display refresh from a producer and hands it to
// a sink. Refreshes come from a host vsync channel when set, otherwise from
// a ticker at the frame rate.
type Loop struct {
	producer Producer
	sink     Sink
	interval time.Duration
	vsync    <-chan struct{}

	stopCh   chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	frames   atomic.Uint64
}

// NewLoop creates a loop. Frame rates below 1 select DefaultFrameRate.
func NewLoop(p Producer, s Sink, frameRate int) *Loop {
	if frameRate < 1 {
		frameRate = DefaultFrameRate
	}
	return &Loop{
		producer: p,
		sink:     s,
		interval: time.Second / time.Duration(frameRate),
		stopCh:   make(chan struct{}),
	}
}

// SetVSync drives the loop from a host refresh signal instead of the
// ticker. It must be called before Run.
func (l *Loop) SetVSync(ch <-chan struct{}) {
	l.vsync = ch
}

// Interval returns the ticker period.
func (l *Loop) Interval() time.Duration { return l.interval }

// Frames returns the number of frames presented so far.
func (l *Loop) Frames() uint64 { return l.frames.Load() }

// Running reports whether Run is active.
func (l *Loop) Running() bool { return l.running.Load() }

// Run presents frames until ctx is cancelled, Stop is called or the vsync
// channel is closed. It returns ctx.Err() on cancellation and nil otherwise.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return nil
	}
	defer l.running.Store(false)

	var tickC <-chan time.Time
	if l.vsync == nil {
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	log.Printf("Render: loop started")
	defer func() { log.Printf("Render: loop stopped after %d frames", l.frames.Load()) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopCh:
			return nil
		case <-tickC:
			l.step()
		case _, ok := <-l.vsync:
			if !ok {
				return nil
			}
			l.step()
		}
	}
}

// step presents one frame if the producer has one.
func (l *Loop) step() {
	frame, ok := l.producer.RenderFrame()
	if !ok || frame == nil {
		return
	}
	l.sink.Present(frame)
	l.frames.Add(1)
}

// Stop ends Run. It is safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}
