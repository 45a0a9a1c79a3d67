// Package fonts resolves the template typefaces. Web fonts are fetched once
// per process from the Google Fonts CSS API; anything that fails falls back
// to the embedded Go fonts, so rendering never blocks on the network.
package fonts

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/sync/errgroup"

	"github.com/acoeffic/readon/internal/barrier"
)

const (
	LibreBaskerville = "Libre Baskerville"
	JetBrainsMono    = "JetBrains Mono"
	Poppins          = "Poppins"
	Inter            = "Inter"
)

const DefaultCSSEndpoint = "https://fonts.googleapis.com/css2"

// Family is one css2 request.
type Family struct {
	Name  string
	Query string
	Mono  bool
}

var DefaultFamilies = []Family{
	{Name: LibreBaskerville, Query: "Libre+Baskerville:ital,wght@0,400;0,700;1,400"},
	{Name: JetBrainsMono, Query: "JetBrains+Mono:wght@400;500;600;700", Mono: true},
	{Name: Poppins, Query: "Poppins:wght@400;500;600;700"},
	{Name: Inter, Query: "Inter:wght@400;500;600;700;800"},
}

type Options struct {
	Endpoint string
	CacheDir string
	Timeout  time.Duration
	Client   *http.Client
	Logger   *zap.Logger
	Families []Family
}

type variant struct {
	family string
	weight int
	italic bool
}

// Registry holds parsed fonts. Fonts are safe to share between goroutines;
// faces are not, see FaceCache.
type Registry struct {
	opts Options

	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	fonts  map[variant]*opentype.Font
	loaded bool
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry

	// the embedded faces are parsed once and shared by every registry
	fallbackOnce sync.Once
	fallback     map[variant]*opentype.Font
)

// Default is the process-wide registry. It is created on first use and
// only ever written by its own Load.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = New(Options{})
	})
	return defaultReg
}

func New(opts Options) *Registry {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultCSSEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Families == nil {
		opts.Families = DefaultFamilies
	}
	return &Registry{opts: opts, fonts: make(map[variant]*opentype.Font)}
}

// Load fetches every family once. It holds a barrier token while running
// and always releases it; failures are logged and reported but leave the
// registry usable with fallback faces.
func (r *Registry) Load(ctx context.Context, b *barrier.Barrier) error {
	if b != nil {
		h := b.Delay("fonts")
		defer b.Continue(h)
	}
	r.loadOnce.Do(func() {
		r.loadErr = r.fetchAll(ctx)
		r.mu.Lock()
		r.loaded = true
		r.mu.Unlock()
		if r.loadErr != nil {
			r.opts.Logger.Warn("web fonts unavailable, using fallback faces", zap.Error(r.loadErr))
		}
	})
	return r.loadErr
}

func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Snapshot returns a registry frozen on the fonts loaded so far. Its Load
// is a no-op, so a render holding it sees one font set from first frame to
// last even while r is still fetching.
func (r *Registry) Snapshot() *Registry {
	s := New(r.opts)
	s.loadOnce.Do(func() {})
	s.loaded = true
	r.mu.RLock()
	for v, f := range r.fonts {
		s.fonts[v] = f
	}
	r.mu.RUnlock()
	return s
}

func (r *Registry) fetchAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var failed []string
	for _, fam := range r.opts.Families {
		fam := fam
		g.Go(func() error {
			got, err := r.fetchFamily(ctx, fam)
			if err != nil {
				mu.Lock()
				failed = append(failed, fmt.Sprintf("%s: %v", fam.Name, err))
				mu.Unlock()
				return nil
			}
			r.mu.Lock()
			for v, f := range got {
				r.fonts[v] = f
			}
			r.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if len(failed) > 0 {
		sort.Strings(failed)
		return fmt.Errorf("load fonts: %v", failed)
	}
	return nil
}

// Font returns the closest loaded weight for family, or a fallback.
func (r *Registry) Font(family string, weight int, italic bool) *opentype.Font {
	if weight == 0 {
		weight = 400
	}
	r.mu.RLock()
	best, bestDist := (*opentype.Font)(nil), 1<<30
	for v, f := range r.fonts {
		if v.family != family || v.italic != italic {
			continue
		}
		d := v.weight - weight
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = f, d
		}
	}
	r.mu.RUnlock()
	if best != nil {
		return best
	}
	return r.fallbackFont(r.isMono(family), weight, italic)
}

func (r *Registry) isMono(family string) bool {
	for _, f := range r.opts.Families {
		if f.Name == family {
			return f.Mono
		}
	}
	return family == JetBrainsMono
}

func (r *Registry) fallbackFont(mono bool, weight int, italic bool) *opentype.Font {
	fallbackOnce.Do(func() {
		fallback = make(map[variant]*opentype.Font)
		parse := func(v variant, data []byte) {
			f, err := opentype.Parse(data)
			if err == nil {
				fallback[v] = f
			}
		}
		parse(variant{"sans", 400, false}, goregular.TTF)
		parse(variant{"sans", 500, false}, gomedium.TTF)
		parse(variant{"sans", 700, false}, gobold.TTF)
		parse(variant{"sans", 400, true}, goitalic.TTF)
		parse(variant{"sans", 700, true}, gobolditalic.TTF)
		parse(variant{"mono", 400, false}, gomono.TTF)
		parse(variant{"mono", 700, false}, gomonobold.TTF)
	})

	kind := "sans"
	if mono {
		kind = "mono"
		italic = false
	}
	w := 400
	switch {
	case weight >= 600:
		w = 700
	case weight == 500 && !mono && !italic:
		w = 500
	}
	if f, ok := fallback[variant{kind, w, italic}]; ok {
		return f
	}
	return fallback[variant{"sans", 400, false}]
}
