// Package barrier implements render-blocking resource tokens: acquire one
// before async work starts, release it when the work resolves or fails,
// and the renderer waits until nothing is outstanding.
package barrier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrTimeout = errors.New("barrier: resources still pending")

// Handle identifies one outstanding token.
type Handle struct {
	id    uint64
	label string
}

func (h Handle) Label() string {
	return h.label
}

type Barrier struct {
	mu      sync.Mutex
	next    uint64
	pending map[uint64]string
	done    chan struct{}
}

func New() *Barrier {
	done := make(chan struct{})
	close(done)
	return &Barrier{pending: make(map[uint64]string), done: done}
}

// Delay acquires a token.
func (b *Barrier) Delay(label string) Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		b.done = make(chan struct{})
	}
	b.next++
	b.pending[b.next] = label
	return Handle{id: b.next, label: label}
}

// Continue releases a token. Releasing twice is a no-op.
func (b *Barrier) Continue(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pending[h.id]; !ok {
		return
	}
	delete(b.pending, h.id)
	if len(b.pending) == 0 {
		close(b.done)
	}
}

// Wait blocks until every token is released or ctx ends.
func (b *Barrier) Wait(ctx context.Context) error {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()

	select {
	case <-done:
		return nil
	default:
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w %v: %w", ErrTimeout, b.Pending(), ctx.Err())
	}
}

// Pending lists outstanding labels, sorted.
func (b *Barrier) Pending() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.pending))
	for _, l := range b.pending {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
