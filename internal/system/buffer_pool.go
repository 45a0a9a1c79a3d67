package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// ImagePool recycles RGBA frame buffers by size. Renders of a few hundred
// frames end up allocating about two buffers per worker.
type ImagePool struct {
	mu        sync.RWMutex
	bySize    map[image.Point]*sync.Pool
	allocated atomic.Int64
}

func NewImagePool() *ImagePool {
	return &ImagePool{bySize: make(map[image.Point]*sync.Pool)}
}

var frames = NewImagePool()

// GetImage returns a buffer with bounds rect from the shared pool. Its
// contents are undefined; the rasteriser paints every pixel.
func GetImage(rect image.Rectangle) *image.RGBA {
	return frames.Get(rect)
}

// PutImage hands img back to the shared pool.
func PutImage(img *image.RGBA) {
	frames.Put(img)
}

// Allocated reports how many buffers the shared pool has created.
func Allocated() int64 {
	return frames.Allocated()
}

func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	size := rect.Size()
	img := p.pool(size).Get().(*image.RGBA)
	img.Rect = image.Rectangle{Min: rect.Min, Max: rect.Min.Add(size)}
	return img
}

func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.mu.RLock()
	pool, ok := p.bySize[img.Rect.Size()]
	p.mu.RUnlock()
	if ok {
		pool.Put(img)
	}
}

func (p *ImagePool) Allocated() int64 {
	return p.allocated.Load()
}

func (p *ImagePool) pool(size image.Point) *sync.Pool {
	p.mu.RLock()
	pool, ok := p.bySize[size]
	p.mu.RUnlock()
	if ok {
		return pool
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if pool, ok = p.bySize[size]; ok {
		return pool
	}
	pool = &sync.Pool{
		New: func() any {
			p.allocated.Add(1)
			return image.NewRGBA(image.Rectangle{Max: size})
		},
	}
	p.bySize[size] = pool
	return pool
}
