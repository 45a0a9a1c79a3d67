// Package server exposes the backend handlers over HTTP: the edge
// functions the app calls, the browser extension's sync endpoint, the
// widget renderer and the public storage bucket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/acoeffic/readon/internal/assistant"
	"github.com/acoeffic/readon/internal/badge"
	"github.com/acoeffic/readon/internal/billing"
	"github.com/acoeffic/readon/internal/blobstore"
	"github.com/acoeffic/readon/internal/fonts"
	"github.com/acoeffic/readon/internal/kindle"
	"github.com/acoeffic/readon/internal/notify"
	"github.com/acoeffic/readon/internal/store"
	"github.com/acoeffic/readon/internal/widget"
)

const (
	DefaultTimeout = 60 * time.Second

	// PublicPrefix is where bucket objects are served.
	PublicPrefix = "/storage/v1/object/public/"

	allowHeaders = "authorization, x-client-info, apikey, content-type"
)

// Store resolves bearer tokens and reads the widget state.
type Store interface {
	UserForToken(ctx context.Context, token string) (string, error)
	widget.SnapshotStore
}

// Options wires the services behind each route. A nil service makes its
// route answer 500.
type Options struct {
	Store     Store
	Assistant *assistant.Service
	Billing   *billing.Processor
	Reminders *notify.Dispatcher
	Badges    *badge.Generator
	Kindle    *kindle.SyncService
	Buckets   []blobstore.Bucket
	Fonts     *fonts.Registry
	Log       *zap.Logger
	Timeout   time.Duration
	Now       func() time.Time
}

type Server struct {
	store     Store
	assistant *assistant.Service
	billing   *billing.Processor
	reminders *notify.Dispatcher
	badges    *badge.Generator
	kindle    *kindle.SyncService
	buckets   map[string]blobstore.Bucket
	fonts     *fonts.Registry
	log       *zap.Logger
	now       func() time.Time

	timeout atomic.Int64
}

func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("token store required")
	}
	s := &Server{
		store:     opts.Store,
		assistant: opts.Assistant,
		billing:   opts.Billing,
		reminders: opts.Reminders,
		badges:    opts.Badges,
		kindle:    opts.Kindle,
		buckets:   make(map[string]blobstore.Bucket, len(opts.Buckets)),
		fonts:     opts.Fonts,
		log:       opts.Log,
		now:       opts.Now,
	}
	for _, b := range opts.Buckets {
		s.buckets[b.Name()] = b
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.fonts == nil {
		s.fonts = fonts.Default()
	}
	s.SetTimeout(opts.Timeout)
	return s, nil
}

// SetTimeout changes the per-request deadline. Zero restores the default.
func (s *Server) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultTimeout
	}
	s.timeout.Store(int64(d))
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/functions/v1/ai-chat", s.handleChat)
	mux.HandleFunc("/functions/v1/revenuecat-webhook", s.handleWebhook)
	mux.HandleFunc("/functions/v1/send-streak-reminders", s.handleReminders)
	mux.HandleFunc("/functions/v1/generate-badge-card", s.handleBadgeCard)
	mux.HandleFunc("/functions/v1/sync_kindle", s.handleKindleSync)
	mux.HandleFunc("/api/sync-extension", s.handleExtensionSync)
	mux.HandleFunc("/api/widget", s.handleWidget)
	mux.HandleFunc(PublicPrefix, s.handlePublicObject)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return s.logMiddleware(corsMiddleware(s.timeoutMiddleware(mux)))
}

// --- Middleware ---

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		if r.Method == http.MethodOptions {
			_, _ = w.Write([]byte("ok"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.timeout.Load()))
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		path := r.URL.Path
		if path == "" {
			path = "/"
		}
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// --- Helpers ---

// authenticate resolves the bearer token or writes the 401 itself.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	token, ok := bearer(r.Header.Get("Authorization"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "Non autorisé")
		return "", false
	}
	userID, err := s.store.UserForToken(r.Context(), token)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Error("token lookup", zap.Error(err))
		}
		writeError(w, http.StatusUnauthorized, "Non autorisé")
		return "", false
	}
	return userID, true
}

func bearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
