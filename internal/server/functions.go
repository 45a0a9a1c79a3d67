package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/acoeffic/readon/internal/assistant"
	"github.com/acoeffic/readon/internal/badge"
	"github.com/acoeffic/readon/internal/billing"
	"github.com/acoeffic/readon/internal/kindle"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	if s.assistant == nil {
		writeError(w, http.StatusInternalServerError, "OPENAI_API_KEY non configurée")
		return
	}

	var req assistant.Request
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Message requis")
		return
	}
	reply, err := s.assistant.Chat(r.Context(), userID, req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, reply)
	case errors.Is(err, assistant.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "Message requis")
	case errors.Is(err, assistant.ErrLimitReached):
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":   "limit_reached",
			"message": assistant.LimitMessage,
		})
	case errors.Is(err, assistant.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "Conversation non trouvée")
	case errors.Is(err, assistant.ErrUpstream):
		writeError(w, http.StatusBadGateway, "Erreur du service IA")
	default:
		s.log.Error("ai-chat", zap.String("user", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erreur interne")
	}
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.billing == nil {
		writeError(w, http.StatusInternalServerError, "billing not configured")
		return
	}
	if !s.billing.VerifyAuthorization(r.Header.Get("Authorization")) {
		s.log.Warn("webhook signature rejected")
		writeError(w, http.StatusUnauthorized, "Invalid webhook signature")
		return
	}

	var payload billing.Payload
	if err := decode(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if payload.Event == nil || payload.Event.AppUserID == "" {
		writeError(w, http.StatusBadRequest, "Missing event or app_user_id")
		return
	}
	if err := s.billing.Apply(r.Context(), *payload.Event); err != nil {
		s.log.Error("webhook", zap.String("event", payload.Event.Type), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erreur interne")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	if s.reminders == nil {
		writeError(w, http.StatusInternalServerError, "reminders not configured")
		return
	}
	res, err := s.reminders.Run(r.Context(), s.now())
	if err != nil {
		s.log.Error("streak reminders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erreur interne")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type badgeCardRequest struct {
	BadgeID string `json:"badge_id"`
	Force   bool   `json:"force"`
}

func (s *Server) handleBadgeCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	if s.badges == nil {
		writeError(w, http.StatusInternalServerError, "Erreur interne")
		return
	}

	var req badgeCardRequest
	if err := decode(r, &req); err != nil || req.BadgeID == "" {
		writeError(w, http.StatusBadRequest, "badge_id requis")
		return
	}
	url, err := s.badges.Card(r.Context(), userID, req.BadgeID, req.Force)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	case errors.Is(err, badge.ErrMissingBadge):
		writeError(w, http.StatusBadRequest, "badge_id requis")
	case errors.Is(err, badge.ErrBadgeNotFound):
		writeError(w, http.StatusNotFound, "Badge non trouvé")
	case errors.Is(err, badge.ErrUpload):
		s.log.Error("badge upload", zap.String("badge", req.BadgeID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erreur upload image")
	default:
		s.log.Error("badge card", zap.String("badge", req.BadgeID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erreur interne")
	}
}

func (s *Server) handleKindleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	var creds kindle.Credentials
	if err := decode(r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if creds.Email == "" || creds.Password == "" || creds.UserID == "" {
		writeError(w, http.StatusBadRequest, kindle.ErrMissingCredentials.Error())
		return
	}
	if s.kindle == nil {
		writeError(w, http.StatusInternalServerError, "kindle sync not configured")
		return
	}
	n, err := s.kindle.Sync(r.Context(), creds)
	if err != nil {
		s.log.Error("kindle sync failed", zap.String("user", creds.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erreur interne")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}
