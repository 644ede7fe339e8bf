// Package submit hands encoded artifacts to an external regeneration
// service, allowing one request in flight at a time.
package submit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"mask-editor/internal/encode"
)

var (
	// ErrInFlight is returned when a submission is already pending.
	ErrInFlight = errors.New("submission already in flight")

	// ErrNoArtifacts is returned for empty artifacts.
	ErrNoArtifacts = errors.New("no artifacts to submit")
)

// Uploader delivers artifacts to the regeneration service.
type Uploader interface {
	Upload(ctx context.Context, a encode.Artifacts) error
}

// UploaderFunc adapts a function to an Uploader.
type UploaderFunc func(ctx context.Context, a encode.Artifacts) error

// Upload calls f(ctx, a).
func (f UploaderFunc) Upload(ctx context.Context, a encode.Artifacts) error { return f(ctx, a) }

// Submitter guards an Uploader with a single in-flight flag.
type Submitter struct {
	up       Uploader
	inFlight atomic.Bool
}

// New creates a submitter for up.
func New(up Uploader) *Submitter {
	return &Submitter{up: up}
}

// InFlight reports whether a submission is pending.
func (s *Submitter) InFlight() bool { return s.inFlight.Load() }

// Submit uploads a and blocks until the uploader returns or ctx is done.
// A second call while one is pending fails immediately with ErrInFlight.
// The submission stays pending until the uploader itself returns, even when
// Submit has already returned on ctx.
func (s *Submitter) Submit(ctx context.Context, a encode.Artifacts) error {
	if len(a.Mask) == 0 || len(a.Cutout) == 0 {
		return ErrNoArtifacts
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrInFlight
	}

	if err := ctx.Err(); err != nil {
		s.inFlight.Store(false)
		return err
	}

	log.Printf("Submit: uploading %s artifacts (%d + %d bytes)", a.Format, len(a.Mask), len(a.Cutout))
	done := make(chan error, 1)
	go func() {
		err := s.up.Upload(ctx, a)
		s.inFlight.Store(false)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Printf("Submit: %v, upload still pending", ctx.Err())
		return ctx.Err()
	}
}
