package source

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"time"

	_ "golang.org/x/image/webp"
)

const maxCoverBytes = 10 << 20

// HTTPCover downloads covers over HTTP(S).
type HTTPCover struct {
	Client *http.Client
}

func NewHTTPCover(timeout time.Duration) *HTTPCover {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPCover{Client: &http.Client{Timeout: timeout}}
}

func (h *HTTPCover) Load(ctx context.Context, ref string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("cover request: %w", err)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cover download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cover download: status %d", resp.StatusCode)
	}
	img, _, err := image.Decode(io.LimitReader(resp.Body, maxCoverBytes))
	if err != nil {
		return nil, fmt.Errorf("cover decode: %w", err)
	}
	return img, nil
}

// FileCover decodes a local png, jpeg, gif or webp file.
type FileCover struct{}

func (FileCover) Load(ctx context.Context, path string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("cover decode %s: %w", path, err)
	}
	return img, nil
}
