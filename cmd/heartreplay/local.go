package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ent0n29/amora/internal/gesture"
)

type localOptions struct {
	fixture string
	outDir  string
	every   int
	inset   float64
	strict  bool
}

func newLocalCmd() *cobra.Command {
	opts := localOptions{every: 10, inset: gesture.DefaultInset}
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Replay a fixture through the gesture loop and dump SVG frames",
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := replayLocal(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.fixture, "fixture", "f", "", "YAML hand-frame fixture")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "directory for SVG frame dumps (none when empty)")
	cmd.Flags().IntVar(&opts.every, "every", opts.every, "dump every Nth frame")
	cmd.Flags().Float64Var(&opts.inset, "inset", opts.inset, "corner heart inset in pixels")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "count heart detections with the strict classifier limits")
	_ = cmd.MarkFlagRequired("fixture")
	return cmd
}

type replaySummary struct {
	Frames      int
	ActiveRuns  int
	MaxHearts   int
	Detections  int
	SVGWritten  int
	Transitions []gesture.State
}

func (s replaySummary) String() string {
	return fmt.Sprintf("frames=%d active_runs=%d max_hearts=%d heart_detections=%d svg=%d",
		s.Frames, s.ActiveRuns, s.MaxHearts, s.Detections, s.SVGWritten)
}

// fixtureCamera serves fixture frames as a camera stream.
type fixtureCamera struct {
	frames []gesture.Frame
	closed bool
}

func (c *fixtureCamera) Open(context.Context) (gesture.Stream, error) { return c, nil }

func (c *fixtureCamera) Next(context.Context) (gesture.Frame, error) {
	if len(c.frames) == 0 {
		return gesture.Frame{}, io.EOF
	}
	f := c.frames[0]
	c.frames = c.frames[1:]
	return f, nil
}

func (c *fixtureCamera) Close() error {
	c.closed = true
	return nil
}

func replayLocal(ctx context.Context, opts localOptions) (replaySummary, error) {
	fx, err := loadFixture(opts.fixture)
	if err != nil {
		return replaySummary{}, err
	}
	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return replaySummary{}, err
		}
	}
	if opts.every <= 0 {
		opts.every = 1
	}

	thresholds := gesture.LenientThresholds
	if opts.strict {
		thresholds = gesture.StrictThresholds
	}
	loop := gesture.NewLoop(
		gesture.WithInset(opts.inset),
		gesture.WithThresholds(thresholds),
		gesture.WithRand(rand.New(rand.NewPCG(fx.Seed, fx.Seed^0x5851f42d4c957f2d))),
	)
	camera := &fixtureCamera{frames: fx.expand(time.Unix(0, 0).UTC())}

	var summary replaySummary
	last := gesture.StateIdle
	sink := func(_ context.Context, o gesture.Overlay) error {
		idx := summary.Frames
		summary.Frames++
		if o.State != last {
			summary.Transitions = append(summary.Transitions, o.State)
			if o.State == gesture.StateActive {
				summary.ActiveRuns++
			}
			last = o.State
		}
		if n := len(o.Hearts); n > summary.MaxHearts {
			summary.MaxHearts = n
		}
		if o.Signal.Detected {
			summary.Detections++
		}
		if opts.outDir == "" || idx%opts.every != 0 {
			return nil
		}
		if err := writeSVG(filepath.Join(opts.outDir, fmt.Sprintf("frame-%05d.svg", idx)), o); err != nil {
			return err
		}
		summary.SVGWritten++
		return nil
	}

	if err := gesture.NewRunner(camera, loop, sink, zap.NewNop()).Run(ctx); err != nil {
		return summary, err
	}
	if n := int(loop.Frames()); n != summary.Frames {
		return summary, fmt.Errorf("loop processed %d frames, sink saw %d", n, summary.Frames)
	}
	return summary, nil
}

func writeSVG(path string, o gesture.Overlay) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return gesture.Render(gesture.NewSVGRenderer(f), o)
}
