package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/acoeffic/readon/internal/analyzer"
	"github.com/acoeffic/readon/internal/barrier"
	"github.com/acoeffic/readon/internal/compositions"
	"github.com/acoeffic/readon/internal/fonts"
	"github.com/acoeffic/readon/internal/source"
)

// Prepare resolves fonts and every template resource behind one barrier,
// then builds the final template. A resource that fails or outlives the
// wait leaves its fallback in place; Prepare only fails on bad props.
// Fonts arriving after the wait are not seen by this project.
func (p *Project) Prepare(ctx context.Context) error {
	if p.Template != nil {
		if p.scale == 0 {
			p.scale = p.outputScale()
		}
		if p.faces == nil {
			p.freezeFonts()
		}
		return nil
	}
	draft, err := p.Composition.New(p.Props, compositions.Assets{})
	if err != nil {
		return err
	}

	b := barrier.New()
	var mu sync.Mutex
	var assets compositions.Assets

	if p.Fonts != nil && !p.Fonts.Loaded() {
		h := b.Delay("fonts")
		go func() {
			defer b.Continue(h)
			_ = p.Fonts.Load(ctx, nil)
		}()
	}
	for _, res := range draft.Resources() {
		if p.Covers == nil || res.Label != "cover" {
			continue
		}
		h := b.Delay(res.Label)
		go func(ref string) {
			defer b.Continue(h)
			img, err := p.loadCover(ctx, ref)
			if err != nil {
				p.log().Warn("cover unavailable, using placeholder", zap.String("ref", ref), zap.Error(err))
				return
			}
			mu.Lock()
			assets.Cover = img
			mu.Unlock()
		}(res.URL)
	}

	waitCtx := ctx
	if d := p.Config.ResourceTimeout; d > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	if err := b.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, barrier.ErrTimeout) {
			return err
		}
		p.log().Warn("rendering without pending resources", zap.Strings("pending", b.Pending()))
	}

	// a late loader may still store into assets after a timeout
	mu.Lock()
	final := assets
	mu.Unlock()

	if final.Cover != nil {
		p.Props = p.withPalette(final.Cover)
	}
	tmpl, err := p.Composition.New(p.Props, final)
	if err != nil {
		return err
	}
	p.Template = tmpl
	p.scale = p.outputScale()
	p.freezeFonts()
	return nil
}

func (p *Project) freezeFonts() {
	reg := p.Fonts
	if reg == nil {
		reg = fonts.Default()
	}
	p.faces = reg.Snapshot()
}

func (p *Project) loadCover(ctx context.Context, ref string) (image.Image, error) {
	if d := p.Config.CoverTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	start := time.Now()
	img, err := p.Covers.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	w := int(compositions.CoverWidth * compositions.OutputScale)
	h := int(compositions.CoverHeight * compositions.OutputScale)
	fitted, err := source.Fit(img, w, h)
	if err != nil {
		return nil, fmt.Errorf("fit cover: %w", err)
	}
	p.log().Debug("cover loaded", zap.String("ref", ref), zap.Duration("took", time.Since(start)))
	return fitted, nil
}

// withPalette fills book-finished colours the props left empty from the
// cover. Other props are returned unchanged.
func (p *Project) withPalette(cover image.Image) any {
	var in compositions.BookFinishedInput
	switch v := p.Props.(type) {
	case *compositions.BookFinishedInput:
		if v == nil {
			return p.Props
		}
		in = *v
	case compositions.BookFinishedInput:
		in = v
	default:
		return p.Props
	}
	if (in.DominantColor != "" && in.SecondaryColor != "") || p.Detector == nil {
		return p.Props
	}
	pal, err := p.Detector.Detect(cover)
	if err != nil {
		if !errors.Is(err, analyzer.ErrNoColor) {
			p.log().Warn("cover palette", zap.Error(err))
		}
		return p.Props
	}
	if in.DominantColor == "" {
		in.DominantColor = pal.Dominant
	}
	if in.SecondaryColor == "" {
		in.SecondaryColor = pal.Secondary
	}
	p.log().Debug("cover palette", zap.Stringer("palette", pal))
	return &in
}
