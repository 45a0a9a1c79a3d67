package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

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

var now = time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

type recordingSender struct {
	mu   sync.Mutex
	sent []notify.Reminder
}

func (r *recordingSender) Send(_ context.Context, rem notify.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, rem)
	return nil
}

type fixture struct {
	srv    *httptest.Server
	server *Server
	store  *store.Store
	llm    *assistant.StaticLLM
	sender *recordingSender
	token  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := zaptest.NewLogger(t)

	st, err := store.Open(ctx, store.DriverModernc, filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.UpsertProfile(ctx, store.Profile{
		ID: "u1", Username: "Camille", FCMToken: "device-1", NotificationsEnabled: true, CurrentStreak: 3,
	}))
	require.NoError(t, st.UpsertBadge(ctx, store.Badge{
		ID: "first_book", Name: "Premier livre", Description: "Ton premier livre terminé.", Icon: "📖", Category: "books_completed", Color: "#F59E0B",
	}))
	token, err := st.IssueToken(ctx, "u1", 0)
	require.NoError(t, err)

	bucket, err := blobstore.NewDirBucket(t.TempDir(), "badge-cards", "/storage/v1/object/public")
	require.NoError(t, err)
	reg := fonts.New(fonts.Options{})

	llm := &assistant.StaticLLM{Reply: "Essaie *Dune*."}
	sender := &recordingSender{}
	s, err := New(Options{
		Store:     st,
		Assistant: assistant.NewService(st, llm, log),
		Billing:   billing.NewProcessor(st, "hook-secret", log),
		Reminders: notify.NewDispatcher(st, sender, log),
		Badges:    badge.NewGenerator(st, bucket, reg, log),
		Kindle:    kindle.NewSyncService(st, log),
		Buckets:   []blobstore.Bucket{bucket},
		Fonts:     reg,
		Log:       log,
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)

	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, server: s, store: st, llm: llm, sender: sender, token: token}
}

func (f *fixture) do(t *testing.T, method, path, auth string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, r)
	require.NoError(t, err)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestOptionsAnswersCORS(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodOptions, "/functions/v1/ai-chat", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, allowHeaders, resp.Header.Get("Access-Control-Allow-Headers"))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestBearer(t *testing.T) {
	tests := map[string]struct {
		token string
		ok    bool
	}{
		"Bearer abc":  {"abc", true},
		"bearer abc":  {"abc", true},
		"Bearer   ":   {"", false},
		"Basic abc":   {"", false},
		"":            {"", false},
		"Bearer a b ": {"a b", true},
	}
	for header, want := range tests {
		token, ok := bearer(header)
		assert.Equal(t, want.ok, ok, header)
		assert.Equal(t, want.token, token, header)
	}
}

func TestChat(t *testing.T) {
	f := newFixture(t)
	auth := "Bearer " + f.token

	resp := f.do(t, http.MethodGet, "/functions/v1/ai-chat", auth, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "Method not allowed", decodeBody(t, resp)["error"])

	resp = f.do(t, http.MethodPost, "/functions/v1/ai-chat", "", assistant.Request{Message: "Salut"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = f.do(t, http.MethodPost, "/functions/v1/ai-chat", "Bearer wrong", assistant.Request{Message: "Salut"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Non autorisé", decodeBody(t, resp)["error"])

	resp = f.do(t, http.MethodPost, "/functions/v1/ai-chat", auth, assistant.Request{Message: "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Message requis", decodeBody(t, resp)["error"])

	resp = f.do(t, http.MethodPost, "/functions/v1/ai-chat", auth, assistant.Request{Message: "Une idée ?", IsNewConversation: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reply assistant.Reply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.NotEmpty(t, reply.ConversationID)
	assert.Equal(t, "Essaie *Dune*.", reply.Message)
	assert.Contains(t, reply.MessageHTML, "<em>Dune</em>")

	resp = f.do(t, http.MethodPost, "/functions/v1/ai-chat", auth, assistant.Request{ConversationID: "someone-else", Message: "Et ensuite ?"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Conversation non trouvée", decodeBody(t, resp)["error"])

	f.llm.Err = errors.New("boom")
	resp = f.do(t, http.MethodPost, "/functions/v1/ai-chat", auth, assistant.Request{ConversationID: reply.ConversationID, Message: "Encore ?"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "Erreur du service IA", decodeBody(t, resp)["error"])

	f.llm.Err = nil
	resp = f.do(t, http.MethodPost, "/functions/v1/ai-chat", auth, assistant.Request{ConversationID: reply.ConversationID, Message: "Encore ?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// three user messages are stored this month, the free quota is spent
	resp = f.do(t, http.MethodPost, "/functions/v1/ai-chat", auth, assistant.Request{ConversationID: reply.ConversationID, Message: "Dernière ?"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, map[string]any{"error": "limit_reached", "message": assistant.LimitMessage}, decodeBody(t, resp))
}

func TestChatWithoutModel(t *testing.T) {
	f := newFixture(t)
	f.server.assistant = nil
	resp := f.do(t, http.MethodPost, "/functions/v1/ai-chat", "Bearer "+f.token, assistant.Request{Message: "Salut"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "OPENAI_API_KEY non configurée", decodeBody(t, resp)["error"])
}

func TestWebhook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	path := "/functions/v1/revenuecat-webhook"
	auth := "Bearer hook-secret"

	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodGet, path, auth, nil).StatusCode)

	resp := f.do(t, http.MethodPost, path, "Bearer nope", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid webhook signature", decodeBody(t, resp)["error"])

	resp = f.do(t, http.MethodPost, path, auth, "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid JSON", decodeBody(t, resp)["error"])

	resp = f.do(t, http.MethodPost, path, auth, map[string]any{"event": map[string]any{"type": "RENEWAL"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing event or app_user_id", decodeBody(t, resp)["error"])

	expires := now.Add(30 * 24 * time.Hour)
	resp = f.do(t, http.MethodPost, path, auth, billing.Payload{Event: &billing.Event{
		Type:           billing.EventInitialPurchase,
		AppUserID:      "u1",
		ProductID:      "lexday_monthly",
		ExpirationAtMs: expires.UnixMilli(),
		Store:          "APP_STORE",
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"success": true}, decodeBody(t, resp))

	premium, err := f.store.IsPremium(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, premium)
}

func TestReminders(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/functions/v1/send-streak-reminders", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{
		"success":              true,
		"total_users":          1.0,
		"users_who_read_today": 0.0,
		"notifications_sent":   1.0,
		"errors":               0.0,
	}, decodeBody(t, resp))

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "u1", f.sender.sent[0].UserID)
	assert.Equal(t, notify.TypeStreak, f.sender.sent[0].Data["type"])
}

func TestBadgeCard(t *testing.T) {
	f := newFixture(t)
	path := "/functions/v1/generate-badge-card"
	auth := "Bearer " + f.token

	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodGet, path, auth, nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, path, "", badgeCardRequest{BadgeID: "first_book"}).StatusCode)

	resp := f.do(t, http.MethodPost, path, auth, badgeCardRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "badge_id requis", decodeBody(t, resp)["error"])

	resp = f.do(t, http.MethodPost, path, auth, badgeCardRequest{BadgeID: "nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Badge non trouvé", decodeBody(t, resp)["error"])

	resp = f.do(t, http.MethodPost, path, auth, badgeCardRequest{BadgeID: "first_book"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	url, _ := decodeBody(t, resp)["url"].(string)
	assert.Equal(t, "/storage/v1/object/public/badge-cards/u1/first_book.png", url)

	// the card is served back from the public bucket
	img := f.do(t, http.MethodGet, url, "", nil)
	require.Equal(t, http.StatusOK, img.StatusCode)
	assert.Equal(t, badge.ContentType, img.Header.Get("Content-Type"))
	assert.Equal(t, badge.CacheControl, img.Header.Get("Cache-Control"))
	decoded, err := png.Decode(img.Body)
	require.NoError(t, err)
	assert.Equal(t, int(badge.Width), decoded.Bounds().Dx())
}

func TestPublicObjects(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, PublicPrefix+"badge-cards/u1/missing.png", "", nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, PublicPrefix+"other/u1/a.png", "", nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, PublicPrefix+"badge-cards", "", nil).StatusCode)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodPost, PublicPrefix+"badge-cards/u1/a.png", "", nil).StatusCode)
}

func TestKindleSync(t *testing.T) {
	f := newFixture(t)
	path := "/functions/v1/sync_kindle"

	resp := f.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "Not found\n", string(body))

	resp = f.do(t, http.MethodPost, path, "", "nope")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid JSON", decodeBody(t, resp)["error"])

	resp = f.do(t, http.MethodPost, path, "", kindle.Credentials{Email: "a@b.c"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "email, password and user_id are required", decodeBody(t, resp)["error"])

	creds := kindle.Credentials{Email: "a@b.c", Password: "pw", UserID: "u1"}
	resp = f.do(t, http.MethodPost, path, "", creds)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Erreur interne", decodeBody(t, resp)["error"])

	f.server.kindle.Login = func(context.Context, string, string) (string, error) { return "tok", nil }
	f.server.kindle.Library = kindle.LibraryFunc(func(context.Context, string) ([]kindle.LibraryBook, error) {
		return []kindle.LibraryBook{{Title: "Dune", AmazonID: "B00DUNE", ProgressPages: 12}}, nil
	})
	resp = f.do(t, http.MethodPost, path, "", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"imported": 1.0}, decodeBody(t, resp))
}

func TestExtensionSync(t *testing.T) {
	f := newFixture(t)
	path := "/api/sync-extension"
	res := kindle.ScrapeResult{
		Books: []kindle.Book{{
			ID:         "B00DUNE",
			Title:      "Dune",
			Author:     "Frank Herbert",
			Highlights: []kindle.Highlight{{Text: "Fear is the mind-killer."}},
		}},
		TotalHighlights: 1,
	}

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, path, "", res).StatusCode)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, path, "Bearer "+f.token, "[").StatusCode)

	resp := f.do(t, http.MethodPost, path, "Bearer "+f.token, res)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out kindle.ImportResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, kindle.ImportResult{Books: 1, Highlights: 1}, out)
}

func TestWidget(t *testing.T) {
	f := newFixture(t)
	auth := "Bearer " + f.token

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/widget", "", nil).StatusCode)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodPost, "/api/widget", auth, nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/widget?size=large", auth, nil).StatusCode)

	resp := f.do(t, http.MethodGet, "/api/widget?format=json", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tl widget.Timeline
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tl))
	require.Len(t, tl.Entries, 1)
	assert.Equal(t, widget.NoBook, tl.Entries[0].CurrentBook)
	assert.True(t, tl.NextUpdate.Equal(now.Add(widget.RefreshInterval)))

	resp = f.do(t, http.MethodGet, "/api/widget?size=medium", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 364*3, img.Bounds().Dx())
}

func TestTimeoutReachesHandlers(t *testing.T) {
	f := newFixture(t)
	f.server.SetTimeout(time.Nanosecond)
	resp := f.do(t, http.MethodPost, "/functions/v1/send-streak-reminders", "", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, map[string]any{"error": "Erreur interne"}, decodeBody(t, resp))

	f.server.SetTimeout(0)
	assert.Equal(t, int64(DefaultTimeout), f.server.timeout.Load())
}

func TestInternalErrorsStayInTheLog(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Close())

	resp := f.do(t, http.MethodPost, "/functions/v1/revenuecat-webhook", "Bearer hook-secret", billing.Payload{Event: &billing.Event{
		Type:      billing.EventRenewal,
		AppUserID: "u1",
	}})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, map[string]any{"error": "Erreur interne"}, decodeBody(t, resp))

	resp = f.do(t, http.MethodPost, "/functions/v1/send-streak-reminders", "", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, map[string]any{"error": "Erreur interne"}, decodeBody(t, resp))

	f.server.kindle.Login = func(context.Context, string, string) (string, error) { return "", errors.New("amazon said: captcha for a@b.c") }
	resp = f.do(t, http.MethodPost, "/functions/v1/sync_kindle", "", kindle.Credentials{Email: "a@b.c", Password: "pw", UserID: "u1"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Erreur interne", body["error"])
	assert.NotContains(t, body["error"], "a@b.c")
}
