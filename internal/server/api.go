package server

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/acoeffic/readon/internal/blobstore"
	"github.com/acoeffic/readon/internal/kindle"
	"github.com/acoeffic/readon/internal/widget"
)

// handleExtensionSync stores what the browser extension scraped for the
// token's owner.
func (s *Server) handleExtensionSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	if s.kindle == nil {
		writeError(w, http.StatusInternalServerError, "kindle sync not configured")
		return
	}
	var res kindle.ScrapeResult
	if err := decode(r, &res); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	out, err := s.kindle.Import(r.Context(), userID, res)
	if err != nil {
		s.log.Error("extension import", zap.String("user", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleWidget renders the caller's widget. ?size=small|medium picks the
// layout and ?format=json returns the timeline instead of a PNG.
func (s *Server) handleWidget(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	size := widget.Size(r.URL.Query().Get("size"))
	if _, _, err := widget.Dimensions(size); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := widget.Provider{
		Defaults: widget.StoreDefaults{Store: s.store, UserID: userID, Now: s.now},
		Now:      s.now,
	}
	tl, err := p.Timeline(r.Context(), s.now())
	if err != nil {
		s.log.Error("widget timeline", zap.String("user", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erreur interne")
		return
	}
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, tl)
		return
	}

	data, err := widget.PNG(s.fonts, size, tl.Entries[0])
	if err != nil {
		s.log.Error("widget render", zap.String("user", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erreur interne")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(data)
}

// handlePublicObject serves /storage/v1/object/public/<bucket>/<key> with
// the headers stored alongside the object.
func (s *Server) handlePublicObject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	name, key, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, PublicPrefix), "/")
	bucket, found := s.buckets[name]
	if !ok || !found || key == "" {
		http.NotFound(w, r)
		return
	}

	obj, err := bucket.Open(r.Context(), key)
	switch {
	case errors.Is(err, blobstore.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, blobstore.ErrInvalidKey):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.log.Error("open object", zap.String("bucket", name), zap.String("key", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erreur interne")
		return
	}
	defer obj.Close()

	if obj.Meta.ContentType != "" {
		w.Header().Set("Content-Type", obj.Meta.ContentType)
	}
	if obj.Meta.CacheControl != "" {
		w.Header().Set("Cache-Control", obj.Meta.CacheControl)
	}
	http.ServeContent(w, r, key, obj.ModTime, obj)
}
