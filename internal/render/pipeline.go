package render

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aquaframe/aquaframe/internal/dive"
)

// Sink receives finished frames in strict presentation order.
type Sink interface {
	WriteFrame(img *image.RGBA) error
	Close() error
}

// Options controls a render run.
type Options struct {
	Duration int // seconds of output
	FPS      int
	Workers  int // <= 0 means GOMAXPROCS
}

type frameResult struct {
	second int
	img    *image.RGBA
}

// Run renders Duration seconds of overlay in parallel and streams them
// to the sink in order. One frame is synthesized per second of dive
// time and written FPS times, so the overlay advances once per second
// of video. Each worker owns a cursor; the jobs it pulls off the shared
// channel are monotonically increasing, which keeps cursor reseeks rare.
// The first error aborts the whole run.
func Run(ctx context.Context, logger *slog.Logger, r Renderer, tl *dive.Timeline, sink Sink, opts Options) error {
	if opts.Duration <= 0 {
		return fmt.Errorf("render duration must be positive (got %d)", opts.Duration)
	}
	if opts.FPS <= 0 {
		return fmt.Errorf("render fps must be positive (got %d)", opts.FPS)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := logger.With("component", "render")
	log.Info("starting render",
		"duration_s", opts.Duration,
		"fps", opts.FPS,
		"workers", workers,
		"frame_size", r.Size())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	results := make(chan frameResult, workers)

	g.Go(func() error {
		defer close(jobs)
		for s := 0; s < opts.Duration; s++ {
			select {
			case jobs <- s:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var workerWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		workerWG.Add(1)
		g.Go(func() error {
			defer workerWG.Done()
			cur := tl.NewCursor()
			for s := range jobs {
				img, err := r.Frame(cur, s)
				if err != nil {
					return fmt.Errorf("render frame %d: %w", s, err)
				}
				select {
				case results <- frameResult{second: s, img: img}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		workerWG.Wait()
		close(results)
	}()

	// Collect out-of-order results and replay them sequentially.
	var writeErr error
	pending := make(map[int]*image.RGBA)
	next := 0
	for res := range results {
		if writeErr != nil {
			continue // drain so workers can exit
		}
		pending[res.second] = res.img
		for {
			img, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			for f := 0; f < opts.FPS && writeErr == nil; f++ {
				writeErr = sink.WriteFrame(img)
			}
			if writeErr != nil {
				cancel()
				break
			}
			next++
			if next%60 == 0 {
				log.Debug("render progress", "seconds_done", next, "seconds_total", opts.Duration)
			}
		}
	}

	if err := g.Wait(); err != nil && writeErr == nil {
		return err
	}
	if writeErr != nil {
		return fmt.Errorf("write frame %d: %w", next, writeErr)
	}
	log.Info("render complete", "frames", opts.Duration*opts.FPS)
	return nil
}
