package kindle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/acoeffic/readon/internal/config"
)

var ErrNotNotebook = errors.New("vous devez être sur read.amazon.com/notebook")

// RodScraper drives the notebook page in a Chrome instance. A user data dir
// with a signed-in Amazon session is needed for anything but a login page.
type RodScraper struct {
	cfg config.Kindle
	log *zap.Logger
	now func() time.Time
}

func NewRodScraper(cfg config.Kindle, log *zap.Logger) *RodScraper {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BookLimit <= 0 {
		cfg.BookLimit = DefaultBookLimit
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 10 * time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 3 * time.Second
	}
	return &RodScraper{cfg: cfg, log: log, now: time.Now}
}

func (s *RodScraper) Scrape(ctx context.Context) (ScrapeResult, error) {
	if !strings.Contains(s.cfg.NotebookURL, "/notebook") {
		return ScrapeResult{}, ErrNotNotebook
	}

	l := launcher.New().Headless(s.cfg.Headless)
	if s.cfg.UserDataDir != "" {
		l = l.UserDataDir(s.cfg.UserDataDir)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return ScrapeResult{}, fmt.Errorf("launch browser: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return ScrapeResult{}, fmt.Errorf("connect to chrome: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: s.cfg.NotebookURL})
	if err != nil {
		return ScrapeResult{}, fmt.Errorf("open notebook: %w", err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return ScrapeResult{}, fmt.Errorf("wait load: %w", err)
	}
	if _, err := page.Timeout(s.cfg.WaitTimeout).Element(librarySelector); err != nil {
		return ScrapeResult{}, fmt.Errorf("timeout: %s not found: %w", librarySelector, err)
	}
	return s.scrapePage(ctx, page)
}

func (s *RodScraper) scrapePage(ctx context.Context, page *rod.Page) (ScrapeResult, error) {
	src, err := page.HTML()
	if err != nil {
		return ScrapeResult{}, err
	}
	books, err := ParseLibrary(src, s.cfg.BookLimit)
	if err != nil {
		return ScrapeResult{}, err
	}
	els, err := page.Elements(librarySelector)
	if err != nil {
		return ScrapeResult{}, fmt.Errorf("find books: %w", err)
	}
	s.log.Info("kindle library", zap.Int("books", len(els)))

	res := ScrapeResult{Books: []Book{}}
	for i, b := range books {
		if i >= len(els) {
			break
		}
		hs, err := s.openBook(ctx, page, els[i])
		if err != nil {
			if ctx.Err() != nil {
				return ScrapeResult{}, ctx.Err()
			}
			s.log.Warn("kindle book skipped", zap.Int("index", i), zap.String("title", b.Title), zap.Error(err))
			continue
		}
		b.Highlights = hs
		b.HighlightCount = len(hs)
		b.ScrapedAt = s.now().UTC()
		res.TotalHighlights += b.HighlightCount
		res.Books = append(res.Books, b)
		s.log.Debug("kindle book", zap.String("title", b.Title), zap.Int("highlights", b.HighlightCount))

		if err := s.backToLibrary(ctx, page); err != nil {
			return ScrapeResult{}, err
		}
	}
	res.ScrapedAt = s.now().UTC()
	s.log.Info("kindle scrape done", zap.Int("books", len(res.Books)), zap.Int("highlights", res.TotalHighlights))
	return res, nil
}

func (s *RodScraper) openBook(ctx context.Context, page *rod.Page, el *rod.Element) ([]Highlight, error) {
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, fmt.Errorf("open book: %w", err)
	}
	if err := sleep(ctx, s.cfg.SettleDelay); err != nil {
		return nil, err
	}
	src, err := page.HTML()
	if err != nil {
		return nil, err
	}
	return ParseHighlights(src)
}

func (s *RodScraper) backToLibrary(ctx context.Context, page *rod.Page) error {
	has, back, err := page.Has(backSelector)
	switch {
	case err != nil:
		s.log.Debug("back button lookup", zap.Error(err))
	case has:
		if err := back.Click(proto.InputMouseButtonLeft, 1); err != nil {
			s.log.Debug("back button click", zap.Error(err))
		}
	default:
		if _, err := page.Eval(`() => window.scrollTo(0, 0)`); err != nil {
			s.log.Debug("scroll to top", zap.Error(err))
		}
	}
	return sleep(ctx, s.cfg.SettleDelay)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
