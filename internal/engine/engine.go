// Package engine drives a composition through the rasteriser and into an
// encoder: resources first, then a pool of frame workers feeding an
// ordered writer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/acoeffic/readon/internal/analyzer"
	"github.com/acoeffic/readon/internal/compositions"
	"github.com/acoeffic/readon/internal/config"
	"github.com/acoeffic/readon/internal/effects"
	"github.com/acoeffic/readon/internal/fonts"
	"github.com/acoeffic/readon/internal/renderer"
	"github.com/acoeffic/readon/internal/source"
	"github.com/acoeffic/readon/internal/system"
	"github.com/acoeffic/readon/internal/video"
)

var ErrFrameRange = errors.New("frame out of range")

// Project is one render of one composition.
type Project struct {
	Config      config.Render
	Composition compositions.Composition
	Props       any
	Encoder     video.FrameEncoder
	Fonts       *fonts.Registry
	Covers      source.CoverLoader
	Detector    analyzer.Detector
	Effects     []effects.VideoEffect
	Logger      *zap.Logger

	// Template is built by Prepare.
	Template compositions.Template

	// faces is the font set frozen by Prepare; every frame draws with it.
	faces *fonts.Registry
	scale float64
}

func NewProject(cfg config.Render, c compositions.Composition, props any, enc video.FrameEncoder) *Project {
	return &Project{
		Config:      cfg,
		Composition: c,
		Props:       props,
		Encoder:     enc,
		Fonts:       fonts.Default(),
		Covers:      source.NewResolver(cfg.CoverTimeout),
		Detector:    analyzer.NewPaletteDetector(),
	}
}

// Stats summarises a run.
type Stats struct {
	Frames  int
	Workers int
	Total   time.Duration
	Render  time.Duration // summed over workers
	Encode  time.Duration
	Buffers int64 // frame buffers allocated during the run
}

func (s Stats) FPS() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Total.Seconds()
}

func (p *Project) log() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// Scale is the output pixels per logical pixel: the largest that keeps
// the frame inside the configured width and height, with an even width.
func (p *Project) Scale() float64 {
	if p.scale > 0 {
		return p.scale
	}
	return p.outputScale()
}

func (p *Project) outputScale() float64 {
	lw, lh := float64(compositions.LogicalWidth), p.logicalHeight()
	s := float64(compositions.OutputScale)
	if p.Config.Width > 0 && p.Config.Height > 0 {
		s = math.Min(float64(p.Config.Width)/lw, float64(p.Config.Height)/lh)
	}
	w := math.Max(2, 2*math.Floor(lw*s/2))
	return w / lw
}

func (p *Project) logicalHeight() float64 {
	if p.Composition.Width <= 0 {
		return compositions.StoryHeight
	}
	return float64(p.Composition.Height) / float64(p.Composition.Width) * compositions.LogicalWidth
}

// Run renders every frame and streams it to the encoder in order.
func (p *Project) Run(ctx context.Context, output string) (Stats, error) {
	start := time.Now()
	if err := p.Prepare(ctx); err != nil {
		return Stats{}, err
	}
	frames := p.Composition.DurationInFrames
	if frames <= 0 {
		return Stats{}, fmt.Errorf("composition %s has no frames", p.Composition.ID)
	}

	w, h := p.pixelSize()
	workers := p.Config.Workers
	if workers <= 0 {
		workers = system.RecommendedWorkers(w * h * 4)
	}
	workers = min(workers, frames)

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Stats{}, err
		}
	}

	fmt.Println("--- [LEXDAY RENDER] ---")
	fmt.Printf("[*] Composition: %s | Frames: %d | Workers: %d\n", p.Composition.ID, frames, workers)
	fmt.Printf("[*] Resolution: %dx%d @ %d FPS\n", w, h, p.Composition.FPS)
	fmt.Println("-----------------------")

	params := p.videoParams(w, h, output)
	sink, err := p.Encoder.Start(ctx, params)
	if err != nil {
		return Stats{}, fmt.Errorf("start encoder: %w", err)
	}

	allocated := system.Allocated()
	stats, err := p.pipeline(ctx, sink, workers)
	stats.Buffers = system.Allocated() - allocated
	closeErr := sink.Close()
	if err != nil {
		return stats, err
	}
	if closeErr != nil {
		return stats, fmt.Errorf("finish video: %w", closeErr)
	}
	stats.Total = time.Since(start)

	fmt.Printf("[*] Done: %s\n", output)
	if p.Config.ShowStats {
		p.report(stats, output)
	}
	return stats, nil
}

func (p *Project) pixelSize() (int, int) {
	s := p.Scale()
	return int(compositions.LogicalWidth*s + 0.5), int(p.logicalHeight()*s + 0.5)
}

func (p *Project) videoParams(w, h int, output string) video.Params {
	enc, encArgs := p.Config.Encoder, ""
	if enc == "" {
		enc, encArgs = system.GetBestH264Encoder()
	}
	filters := make([]string, 0, len(p.Effects)+1)
	if h%2 != 0 {
		filters = append(filters, "pad=iw:ih+1")
	}
	for _, e := range p.Effects {
		filters = append(filters, e.VideoFilter(p.Composition.FPS))
	}

	params := video.Params{
		Width:       w,
		Height:      h,
		FPS:         p.Composition.FPS,
		Frames:      p.Composition.DurationInFrames,
		Output:      output,
		Encoder:     enc,
		EncoderArgs: encArgs,
		Quality:     p.Config.Quality,
		VideoFilter: effects.Chain(filters...),
	}
	if p.Config.AudioPath != "" {
		params.AudioPath = p.Config.AudioPath
		params.AudioFilter = effects.Fade{Envelope: p.Template.Audio()}.AudioFilter(p.Composition.FPS)
	}
	return params
}

type rendered struct {
	index int
	img   *image.RGBA
}

// pipeline renders frames on a worker pool and writes them in order. The
// semaphore bounds frames that are rendering or parked out of order, so
// memory stays at a few buffers per worker however uneven frame cost is.
func (p *Project) pipeline(ctx context.Context, sink video.FrameSink, workers int) (Stats, error) {
	frames := p.Composition.DurationInFrames
	stats := Stats{Frames: frames, Workers: workers}
	window := semaphore.NewWeighted(int64(2 * workers))

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	results := make(chan rendered, workers)

	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < frames; i++ {
			if err := window.Acquire(ctx, 1); err != nil {
				return err
			}
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	var renderMu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			ras := renderer.NewRasterizer(p.faces)
			defer ras.Close()
			for i := range jobs {
				t0 := time.Now()
				img := p.render(ras, i)
				d := time.Since(t0)
				renderMu.Lock()
				stats.Render += d
				renderMu.Unlock()
				select {
				case results <- rendered{i, img}:
				case <-ctx.Done():
					system.PutImage(img)
					return ctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	g.Go(func() error {
		pending := make(map[int]*image.RGBA)
		defer func() {
			for _, img := range pending {
				system.PutImage(img)
			}
		}()
		next := 0
		step := max(p.Composition.FPS, 1)
		for r := range results {
			pending[r.index] = r.img
			for {
				img, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				t0 := time.Now()
				err := sink.WriteFrame(img)
				stats.Encode += time.Since(t0)
				system.PutImage(img)
				if err != nil {
					return fmt.Errorf("frame %d: %w", next, err)
				}
				next++
				window.Release(1)
				if next%step == 0 || next == frames {
					fmt.Printf("[>] Ready: %d/%d\n", next, frames)
				}
			}
		}
		if next != frames && ctx.Err() == nil {
			return fmt.Errorf("only %d of %d frames reached the encoder", next, frames)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		p.log().Error("render failed", zap.String("composition", p.Composition.ID), zap.Error(err))
		return stats, err
	}
	return stats, nil
}

// render draws frame i into a pooled buffer.
func (p *Project) render(ras *renderer.Rasterizer, i int) *image.RGBA {
	tree := p.Template.Render(i)
	tree.Scale = p.scale
	return ras.RenderFrame(tree)
}

// RenderStill writes frame as a PNG at path.
func (p *Project) RenderStill(ctx context.Context, frame int, path string) error {
	if err := p.Prepare(ctx); err != nil {
		return err
	}
	if frame < 0 || frame >= p.Composition.DurationInFrames {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrFrameRange, frame, p.Composition.DurationInFrames)
	}
	ras := renderer.NewRasterizer(p.faces)
	defer ras.Close()
	img := p.render(ras, frame)
	defer system.PutImage(img)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := renderer.EncodePNG(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode still: %w", err)
	}
	return f.Close()
}

func (p *Project) report(s Stats, output string) {
	fmt.Printf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Rendering (CPU, all workers): %.2fs\n"+
			"Encoding (pipe): %.2fs\n"+
			"Effective FPS: %.2f\n"+
			"Frame buffers: %d\n"+
			"----------------------------\n",
		p.Config.BuildVersion, s.Total.Seconds(), s.Render.Seconds(), s.Encode.Seconds(), s.FPS(), s.Buffers,
	)

	entry := fmt.Sprintf("[%s] Build: %s | Composition: %s | Output: %s | Frames: %d | Workers: %d | Total: %.2fs | Render: %.2fs | Encode: %.2fs | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		p.Composition.ID,
		filepath.Base(output),
		s.Frames,
		s.Workers,
		s.Total.Seconds(),
		s.Render.Seconds(),
		s.Encode.Seconds(),
		s.FPS(),
	)
	logPath := filepath.Join(filepath.Dir(output), "benchmark.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Printf("[!] Could not write %s: %v\n", logPath, err)
		return
	}
	_, _ = f.WriteString(entry)
	_ = f.Close()
}
