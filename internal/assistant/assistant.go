// Package assistant is Muse, the reading advisor chat. It stores the
// conversation, enforces the free-tier quota and grounds the model in the
// reader's shelves and goals.
package assistant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"github.com/acoeffic/readon/internal/store"
)

const (
	FreeMonthlyMessages = 3
	HistoryLimit        = 20
	TitleRunes          = 80

	LimitMessage = "Tu as atteint la limite de 3 messages ce mois-ci. Abonne-toi pour une utilisation illimitée !"
)

var (
	ErrEmptyMessage         = errors.New("message requis")
	ErrLimitReached         = errors.New("limit_reached")
	ErrConversationNotFound = errors.New("conversation non trouvée")
	ErrUpstream             = errors.New("erreur du service IA")
)

// Store is the slice of the database the assistant needs.
type Store interface {
	IsPremium(ctx context.Context, userID string) (bool, error)
	CountUserMessagesSince(ctx context.Context, userID string, since time.Time) (int, error)
	CreateConversation(ctx context.Context, userID, title string) (string, error)
	ConversationOwnedBy(ctx context.Context, id, userID string) (bool, error)
	AddMessage(ctx context.Context, conversationID, role, content string) error
	History(ctx context.Context, conversationID string, limit int) ([]store.Message, error)
	TouchConversation(ctx context.Context, id string) error
	BooksByStatus(ctx context.Context, userID, status string, limit int) ([]store.Book, error)
	ActiveGoals(ctx context.Context, userID string, year int) ([]store.Goal, error)
}

type Request struct {
	ConversationID    string `json:"conversation_id"`
	Message           string `json:"message"`
	IsNewConversation bool   `json:"is_new_conversation"`
}

type Reply struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	MessageHTML    string `json:"message_html,omitempty"`
}

type Service struct {
	store Store
	llm   LLM
	log   *zap.Logger
	md    goldmark.Markdown
	now   func() time.Time

	forcePremium atomic.Bool
}

func NewService(st Store, llm LLM, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store: st,
		llm:   llm,
		log:   log,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		now: time.Now,
	}
}

// SetClock replaces the time source for the monthly quota and goal year.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetForcePremium lifts the quota for everyone, for local testing. It is
// safe to call while requests are served.
func (s *Service) SetForcePremium(on bool) {
	s.forcePremium.Store(on)
}

// Chat stores the user's message, asks the model and stores its answer.
func (s *Service) Chat(ctx context.Context, userID string, req Request) (Reply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}
	now := s.now().UTC()

	if err := s.checkQuota(ctx, userID, now); err != nil {
		return Reply{}, err
	}

	convID := req.ConversationID
	if req.IsNewConversation {
		id, err := s.store.CreateConversation(ctx, userID, truncateRunes(message, TitleRunes))
		if err != nil {
			return Reply{}, err
		}
		convID = id
	} else {
		owned, err := s.store.ConversationOwnedBy(ctx, convID, userID)
		if err != nil {
			return Reply{}, err
		}
		if !owned {
			return Reply{}, ErrConversationNotFound
		}
	}

	if err := s.store.AddMessage(ctx, convID, store.RoleUser, message); err != nil {
		return Reply{}, err
	}

	readerContext, err := s.ReaderContext(ctx, userID, now.Year())
	if err != nil {
		return Reply{}, err
	}
	history, err := s.store.History(ctx, convID, HistoryLimit)
	if err != nil {
		return Reply{}, err
	}

	messages := []ChatMessage{
		{Role: RoleSystem, Content: SystemPrompt},
		{Role: RoleSystem, Content: "Contexte du lecteur:\n" + readerContext},
	}
	for _, m := range history {
		messages = append(messages, ChatMessage{Role: m.Role, Content: m.Content})
	}

	answer, err := s.llm.Complete(ctx, messages)
	if err != nil {
		s.log.Error("model call failed", zap.String("conversation", convID), zap.Error(err))
		return Reply{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if err := s.store.AddMessage(ctx, convID, store.RoleAssistant, answer); err != nil {
		return Reply{}, err
	}
	if err := s.store.TouchConversation(ctx, convID); err != nil {
		return Reply{}, err
	}

	return Reply{ConversationID: convID, Message: answer, MessageHTML: s.renderHTML(answer)}, nil
}

func (s *Service) checkQuota(ctx context.Context, userID string, now time.Time) error {
	if s.forcePremium.Load() {
		return nil
	}
	premium, err := s.store.IsPremium(ctx, userID)
	if err != nil {
		return err
	}
	if premium {
		return nil
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	sent, err := s.store.CountUserMessagesSince(ctx, userID, monthStart)
	if err != nil {
		return err
	}
	if sent >= FreeMonthlyMessages {
		return ErrLimitReached
	}
	return nil
}

func (s *Service) renderHTML(markdown string) string {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &buf); err != nil {
		s.log.Warn("render reply markdown", zap.Error(err))
		return ""
	}
	return buf.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
