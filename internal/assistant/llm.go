package assistant

import (
	"context"
	"errors"
	"sync"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/acoeffic/readon/internal/config"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string
	Content string
}

// LLM completes a chat transcript.
type LLM interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// OpenAIClient calls the chat completions endpoint.
type OpenAIClient struct {
	client      openai.Client
	Model       string
	MaxTokens   int64
	Temperature float64
}

func NewOpenAIClient(cfg config.OpenAI) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OPENAI_API_KEY non configurée")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIClient{
		client:      openai.NewClient(opts...),
		Model:       cfg.Model,
		MaxTokens:   int64(cfg.MaxTokens),
		Temperature: cfg.Temperature,
	}, nil
}

func (o *OpenAIClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case RoleAssistant:
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.Model),
		Messages:    msgs,
		Temperature: openai.Float(o.Temperature),
	}
	if o.MaxTokens > 0 {
		params.MaxTokens = openai.Int(o.MaxTokens)
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// StaticLLM answers every transcript with Reply, or fails with Err. It
// keeps the last transcript it saw.
type StaticLLM struct {
	Reply string
	Err   error

	mu   sync.Mutex
	last []ChatMessage
}

func (s *StaticLLM) Complete(_ context.Context, messages []ChatMessage) (string, error) {
	s.mu.Lock()
	s.last = append([]ChatMessage(nil), messages...)
	s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	return s.Reply, nil
}

func (s *StaticLLM) Last() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatMessage(nil), s.last...)
}
