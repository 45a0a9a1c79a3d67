package fonts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/font/opentype"
)

// A plain User-Agent makes the css2 API answer with truetype sources.
const userAgent = "lexday-renderer/1.0"

var (
	fontFaceRe = regexp.MustCompile(`(?s)@font-face\s*\{(.*?)\}`)
	styleRe    = regexp.MustCompile(`font-style:\s*(\w+)`)
	weightRe   = regexp.MustCompile(`font-weight:\s*(\d+)`)
	srcRe      = regexp.MustCompile(`url\(([^)]+)\)`)
	rangeRe    = regexp.MustCompile(`unicode-range:\s*([^;]+)`)
)

type faceSource struct {
	weight int
	italic bool
	url    string
	latin  bool
}

// parseCSS extracts one source per (weight, style), preferring the subset
// that covers Basic Latin when the stylesheet is split by unicode range.
func parseCSS(css string) []faceSource {
	byKey := map[variant]faceSource{}
	var order []variant
	for _, m := range fontFaceRe.FindAllStringSubmatch(css, -1) {
		block := m[1]
		src := srcRe.FindStringSubmatch(block)
		if src == nil {
			continue
		}
		fs := faceSource{weight: 400, url: strings.Trim(src[1], `'"`), latin: true}
		if w := weightRe.FindStringSubmatch(block); w != nil {
			fs.weight, _ = strconv.Atoi(w[1])
		}
		if s := styleRe.FindStringSubmatch(block); s != nil {
			fs.italic = s[1] == "italic"
		}
		if ur := rangeRe.FindStringSubmatch(block); ur != nil {
			fs.latin = strings.Contains(strings.ToUpper(ur[1]), "U+0000")
		}
		key := variant{weight: fs.weight, italic: fs.italic}
		prev, seen := byKey[key]
		if !seen {
			order = append(order, key)
		}
		if !seen || (!prev.latin && fs.latin) {
			byKey[key] = fs
		}
	}
	out := make([]faceSource, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out
}

func (r *Registry) fetchFamily(ctx context.Context, fam Family) (map[variant]*opentype.Font, error) {
	css, err := r.cached(ctx, slug(fam.Name)+".css", r.opts.Endpoint+"?family="+fam.Query+"&display=swap")
	if err != nil {
		return nil, err
	}
	sources := parseCSS(string(css))
	if len(sources) == 0 {
		return nil, fmt.Errorf("no font-face in stylesheet")
	}

	out := make(map[variant]*opentype.Font, len(sources))
	for _, src := range sources {
		style := "normal"
		if src.italic {
			style = "italic"
		}
		name := fmt.Sprintf("%s-%d-%s.ttf", slug(fam.Name), src.weight, style)
		data, err := r.cached(ctx, name, src.url)
		if err != nil {
			return nil, err
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		out[variant{family: fam.Name, weight: src.weight, italic: src.italic}] = f
	}
	r.opts.Logger.Debug("font family loaded", zap.String("family", fam.Name), zap.Int("faces", len(out)))
	return out, nil
}

// cached reads name from the cache dir, downloading url on a miss.
func (r *Registry) cached(ctx context.Context, name, url string) ([]byte, error) {
	var path string
	if r.opts.CacheDir != "" {
		path = filepath.Join(r.opts.CacheDir, name)
		if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
			return data, nil
		}
	}

	data, err := r.download(ctx, url)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := os.MkdirAll(r.opts.CacheDir, 0755); err == nil {
			if err := os.WriteFile(path, data, 0644); err != nil {
				r.opts.Logger.Debug("font cache write failed", zap.String("path", path), zap.Error(err))
			}
		}
	}
	return data, nil
}

func (r *Registry) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := r.opts.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func slug(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}
