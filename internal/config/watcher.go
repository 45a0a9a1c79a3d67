package config

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher keeps the latest valid configuration for a file, reloading it
// when the file is written. Invalid edits are logged and ignored.
type Watcher struct {
	path     string
	current  atomic.Pointer[Config]
	watcher  *fsnotify.Watcher
	log      *zap.Logger
	debounce time.Duration

	mu       sync.Mutex
	onChange []func(*Config)

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher loads path once and prepares to watch it.
func NewWatcher(path string, log *zap.Logger) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	w := &Watcher{
		path:     path,
		watcher:  fw,
		log:      log,
		debounce: 250 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	w.current.Store(cfg)
	return w, nil
}

func (w *Watcher) Current() *Config {
	return w.current.Load()
}

// OnChange registers fn to run after each successful reload.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	w.onChange = append(w.onChange, fn)
	w.mu.Unlock()
}

// Start watches the file's directory, so editors that replace the file
// by rename are still seen. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	go w.run(ctx)
	return nil
}

func (w *Watcher) Stop() {
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	<-w.doneCh
	_ = w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	var fire <-chan time.Time
	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher", zap.Error(err))
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("config reload rejected", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.current.Store(cfg)
	w.log.Info("config reloaded", zap.String("path", w.path))

	w.mu.Lock()
	fns := append([]func(*Config){}, w.onChange...)
	w.mu.Unlock()
	for _, fn := range fns {
		fn(cfg)
	}
}
