package gesture

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Camera hands out a frame stream. Open is called once per Run.
type Camera interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream yields detected frames. Next blocks on detection and returns io.EOF
// when the source is exhausted.
type Stream interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// Sink receives the overlay for each frame in order.
type Sink func(ctx context.Context, o Overlay) error

// Runner drives a Loop from a Camera. Frames are processed strictly one at a
// time and the stream is closed on every exit path.
type Runner struct {
	camera Camera
	loop   *Loop
	sink   Sink
	logger *zap.Logger
}

func NewRunner(camera Camera, loop *Loop, sink Sink, logger *zap.Logger) *Runner {
	if loop == nil {
		loop = NewLoop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{camera: camera, loop: loop, sink: sink, logger: logger}
}

// Run returns nil when the stream ends, ctx.Err() on cancellation, and any
// stream or sink error otherwise.
func (r *Runner) Run(ctx context.Context) (err error) {
	stream, err := r.camera.Open(ctx)
	if err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			r.logger.Warn("close camera stream", zap.Error(cerr))
			if err == nil {
				err = fmt.Errorf("close camera: %w", cerr)
			}
		}
		r.logger.Debug("gesture stream closed", zap.Uint64("frames", r.loop.Frames()))
		r.loop.Reset()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("next frame: %w", err)
		}
		overlay := r.loop.Step(frame)
		if r.sink != nil {
			if err := r.sink(ctx, overlay); err != nil {
				return fmt.Errorf("emit overlay: %w", err)
			}
		}
	}
}
