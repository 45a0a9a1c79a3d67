// Package badge renders the shareable card of an unlocked badge and keeps
// it in the public badge-cards bucket.
package badge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/acoeffic/readon/internal/blobstore"
	"github.com/acoeffic/readon/internal/fonts"
	"github.com/acoeffic/readon/internal/renderer"
	"github.com/acoeffic/readon/internal/store"
)

const (
	ContentType  = "image/png"
	CacheControl = "public, max-age=31536000"
)

var (
	ErrMissingBadge  = errors.New("badge id is required")
	ErrBadgeNotFound = errors.New("badge not found")
	ErrUpload        = errors.New("upload badge card")
)

type Store interface {
	Badge(ctx context.Context, id string) (store.Badge, error)
	FinishedBookCount(ctx context.Context, userID string) (int, error)
	CompletedSessions(ctx context.Context, userID string) ([]store.Session, error)
}

type Generator struct {
	store  Store
	bucket blobstore.Bucket
	fonts  *fonts.Registry
	log    *zap.Logger
	group  singleflight.Group

	// Scale multiplies the 420x600 card size. Zero means 1.
	Scale float64
}

func NewGenerator(st Store, bucket blobstore.Bucket, reg *fonts.Registry, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	if reg == nil {
		reg = fonts.Default()
	}
	return &Generator{store: st, bucket: bucket, fonts: reg, log: log}
}

// Key is the storage key of one user's card for one badge.
func Key(userID, badgeID string) string {
	return userID + "/" + badgeID + ".png"
}

// Card returns the public URL of the card, rendering and uploading it
// unless a stored copy exists and force is false. Concurrent calls for the
// same card share one render.
func (g *Generator) Card(ctx context.Context, userID, badgeID string, force bool) (string, error) {
	if badgeID == "" {
		return "", ErrMissingBadge
	}
	key := Key(userID, badgeID)
	v, err, shared := g.group.Do(key, func() (any, error) {
		return g.card(ctx, key, userID, badgeID, force)
	})
	if shared {
		g.log.Debug("badge card shared", zap.String("key", key))
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (g *Generator) card(ctx context.Context, key, userID, badgeID string, force bool) (string, error) {
	url := g.bucket.URL(key)
	if !force {
		ok, err := g.bucket.Exists(ctx, key)
		if err != nil {
			g.log.Warn("badge cache check", zap.String("key", key), zap.Error(err))
		}
		if ok {
			return url, nil
		}
	}

	b, err := g.store.Badge(ctx, badgeID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrBadgeNotFound
	}
	if err != nil {
		return "", err
	}
	books, err := g.store.FinishedBookCount(ctx, userID)
	if err != nil {
		return "", err
	}
	sessions, err := g.store.CompletedSessions(ctx, userID)
	if err != nil {
		return "", err
	}

	png, err := g.Render(b, SessionStats(books, sessions), url)
	if err != nil {
		return "", err
	}
	if err := g.bucket.Put(ctx, key, png, ContentType, CacheControl); err != nil {
		g.log.Error("badge card upload", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	g.log.Info("badge card generated",
		zap.String("user", userID),
		zap.String("badge", badgeID),
		zap.Int("bytes", len(png)))
	return url, nil
}

// Render draws the card and encodes it as PNG.
func (g *Generator) Render(b store.Badge, st Stats, publicURL string) ([]byte, error) {
	scale := g.Scale
	if scale <= 0 {
		scale = 1
	}
	tree := Tree(b, st, Stars(b.ID, starCount), publicURL, scale)
	w, h := tree.PixelSize()
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	r := renderer.NewRasterizer(g.fonts)
	defer r.Close()
	r.Draw(tree, img)

	var buf bytes.Buffer
	if err := renderer.EncodePNG(&buf, img); err != nil {
		return nil, fmt.Errorf("encode badge card: %w", err)
	}
	return buf.Bytes(), nil
}
