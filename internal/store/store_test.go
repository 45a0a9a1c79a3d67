package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverModernc, filepath.Join(t.TempDir(), "lexday.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T { return &v }

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lexday.db")
	s, err := Open(context.Background(), "", path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), DriverModernc, path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	now := at("2026-03-10T12:00:00Z")
	s.SetClock(func() time.Time { return now })
	require.NoError(t, s.UpsertProfile(ctx, Profile{ID: "u1", Username: "Alice"}))

	forever, err := s.IssueToken(ctx, "u1", 0)
	require.NoError(t, err)
	short, err := s.IssueToken(ctx, "u1", time.Hour)
	require.NoError(t, err)

	uid, err := s.UserForToken(ctx, forever)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	now = now.Add(2 * time.Hour)
	_, err = s.UserForToken(ctx, short)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UserForToken(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UserForToken(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPremium(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	premium, err := s.IsPremium(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, premium)

	require.NoError(t, s.UpsertProfile(ctx, Profile{ID: "u1"}))
	until := at("2026-04-01T00:00:00Z")
	require.NoError(t, s.SetPremium(ctx, "u1", true, &until))
	premium, err = s.IsPremium(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, premium)

	require.NoError(t, s.SetPremium(ctx, "u1", false, nil))
	p, err := s.Profile(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, p.IsPremium)
	require.NotNil(t, p.PremiumUntil)
	assert.True(t, until.Equal(*p.PremiumUntil))
}

func TestConversations(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	clock := at("2026-03-01T08:00:00Z")
	s.SetClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})

	id, err := s.CreateConversation(ctx, "u1", "Hello")
	require.NoError(t, err)

	owned, err := s.ConversationOwnedBy(ctx, id, "u1")
	require.NoError(t, err)
	assert.True(t, owned)
	owned, err = s.ConversationOwnedBy(ctx, id, "u2")
	require.NoError(t, err)
	assert.False(t, owned)

	for i, role := range []string{RoleUser, RoleAssistant, RoleUser, RoleAssistant, RoleUser} {
		require.NoError(t, s.AddMessage(ctx, id, role, string(rune('a'+i))))
	}

	hist, err := s.History(ctx, id, 3)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, []string{"c", "d", "e"}, []string{hist[0].Content, hist[1].Content, hist[2].Content})

	n, err := s.CountUserMessagesSince(ctx, "u1", at("2026-03-01T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = s.CountUserMessagesSince(ctx, "u1", at("2026-04-01T00:00:00Z"))
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.TouchConversation(ctx, id))
	assert.ErrorIs(t, s.TouchConversation(ctx, "missing"), ErrNotFound)
}

func TestBooksAndGoals(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	clock := at("2026-01-01T00:00:00Z")
	s.SetClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	var rows []UserBook
	for _, b := range []struct {
		title, status string
	}{
		{"Dune", StatusFinished},
		{"Emma", StatusFinished},
		{"Ubik", StatusReading},
		{"Nana", StatusToRead},
	} {
		id, err := s.AddBook(ctx, Book{Title: b.title, Author: "A", Genre: "G"})
		require.NoError(t, err)
		rows = append(rows, UserBook{UserID: "u1", BookID: id, Status: b.status})
		// Shelf rows get distinct created_at values.
		require.NoError(t, s.UpsertUserBooks(ctx, rows[len(rows)-1:]))
	}

	finished, err := s.BooksByStatus(ctx, "u1", StatusFinished, 0)
	require.NoError(t, err)
	require.Len(t, finished, 2)
	assert.Equal(t, "Emma", finished[0].Title)

	limited, err := s.BooksByStatus(ctx, "u1", StatusFinished, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	count, err := s.FinishedBookCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, s.AddGoal(ctx, Goal{UserID: "u1", GoalType: "books", TargetValue: 24, Year: 2026, Active: true}))
	require.NoError(t, s.AddGoal(ctx, Goal{UserID: "u1", GoalType: "pages", TargetValue: 5000, Year: 2025, Active: true}))
	require.NoError(t, s.AddGoal(ctx, Goal{UserID: "u1", GoalType: "minutes", TargetValue: 10, Year: 2026}))
	goals, err := s.ActiveGoals(ctx, "u1", 2026)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "books", goals[0].GoalType)
}

func TestUpsertBooksOnExternalID(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	ids, err := s.UpsertBooks(ctx, []Book{{Title: "Old", ExternalID: "kindle:1", TotalPages: 300}})
	require.NoError(t, err)
	first := ids["kindle:1"]

	ids, err = s.UpsertBooks(ctx, []Book{{Title: "New", ExternalID: "kindle:1"}})
	require.NoError(t, err)
	assert.Equal(t, first, ids["kindle:1"])

	require.NoError(t, s.UpsertUserBooks(ctx, []UserBook{{UserID: "u1", BookID: first, Status: StatusInProgress, CurrentPage: 10}}))
	require.NoError(t, s.UpsertUserBooks(ctx, []UserBook{{UserID: "u1", BookID: first, Status: StatusInProgress, CurrentPage: 42}}))
	books, err := s.BooksByStatus(ctx, "u1", StatusInProgress, 0)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "New", books[0].Title)
	assert.Equal(t, 300, books[0].TotalPages)

	_, err = s.UpsertBooks(ctx, []Book{{Title: "No id"}})
	assert.Error(t, err)
}

func TestHighlightsAreDeduplicated(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	id, err := s.AddBook(ctx, Book{Title: "Dune"})
	require.NoError(t, err)

	n, err := s.SaveHighlights(ctx, "u1", id, []Highlight{{Text: "fear"}, {Text: "spice", Note: "n"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = s.SaveHighlights(ctx, "u1", id, []Highlight{{Text: "fear"}, {Text: "water"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSubscriptions(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	assert.ErrorIs(t, s.SetAutoRenew(ctx, "u1", false), ErrNotFound)

	exp := at("2026-05-01T00:00:00Z")
	require.NoError(t, s.UpsertSubscription(ctx, Subscription{
		UserID: "u1", Status: SubscriptionPremium, Platform: "ios", ProductID: "lexday_monthly",
		ExpiresAt: &exp, AutoRenew: true,
	}))
	require.NoError(t, s.SetAutoRenew(ctx, "u1", false))
	require.NoError(t, s.SetSubscriptionStatus(ctx, "u1", SubscriptionBillingIssue))

	sub, err := s.Subscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, SubscriptionBillingIssue, sub.Status)
	assert.Equal(t, "ios", sub.Platform)
	assert.False(t, sub.AutoRenew)
	require.NotNil(t, sub.ExpiresAt)
	assert.True(t, exp.Equal(*sub.ExpiresAt))
	assert.Nil(t, sub.OriginalPurchaseDate)

	_, err = s.Subscription(ctx, "u2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReminderQueries(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	require.NoError(t, s.UpsertProfile(ctx, Profile{ID: "a", FCMToken: "tok-a", NotificationsEnabled: true, NotificationDays: []int{1, 3}}))
	require.NoError(t, s.UpsertProfile(ctx, Profile{ID: "b", FCMToken: "tok-b", NotificationsEnabled: true, CurrentStreak: 4}))
	require.NoError(t, s.UpsertProfile(ctx, Profile{ID: "c", NotificationsEnabled: true}))
	require.NoError(t, s.UpsertProfile(ctx, Profile{ID: "d", FCMToken: "tok-d"}))

	users, err := s.ReminderCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, []int{1, 3}, users[0].NotificationDays)
	assert.Nil(t, users[1].NotificationDays)
	assert.Equal(t, 4, users[1].CurrentStreak)

	_, err = s.AddSession(ctx, Session{UserID: "a", ReadAt: at("2026-03-10T07:00:00Z")})
	require.NoError(t, err)
	_, err = s.AddSession(ctx, Session{UserID: "b", ReadAt: at("2026-03-09T23:00:00Z")})
	require.NoError(t, err)

	readers, err := s.UsersWhoReadBetween(ctx, at("2026-03-10T00:00:00Z"), at("2026-03-11T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a": true}, readers)

	// the window is half-open: the last half second counts, midnight does not
	_, err = s.AddSession(ctx, Session{UserID: "c", ReadAt: at("2026-03-10T23:59:59.5Z")})
	require.NoError(t, err)
	_, err = s.AddSession(ctx, Session{UserID: "d", ReadAt: at("2026-03-11T00:00:00Z")})
	require.NoError(t, err)
	readers, err = s.UsersWhoReadBetween(ctx, at("2026-03-10T00:00:00Z"), at("2026-03-11T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a": true, "c": true}, readers)
}

func TestCompletedSessions(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	start := at("2026-03-10T07:00:00Z")
	end := start.Add(45 * time.Minute)
	_, err := s.AddSession(ctx, Session{UserID: "u1", StartTime: &start, EndTime: &end, StartPage: ptr(10), EndPage: ptr(30)})
	require.NoError(t, err)
	_, err = s.AddSession(ctx, Session{UserID: "u1", StartTime: &start})
	require.NoError(t, err)

	sessions, err := s.CompletedSessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	got := sessions[0]
	assert.True(t, start.Equal(*got.StartTime))
	assert.True(t, end.Equal(*got.EndTime))
	assert.Equal(t, 10, *got.StartPage)
	assert.Equal(t, 30, *got.EndPage)
	assert.True(t, start.Equal(got.ReadAt))
}

func TestWidgetSnapshot(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	now := at("2026-03-10T18:00:00Z")

	_, err := s.WidgetSnapshot(ctx, "u1", now)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpsertProfile(ctx, Profile{ID: "u1", CurrentStreak: 12}))
	st, err := s.WidgetSnapshot(ctx, "u1", now)
	require.NoError(t, err)
	assert.False(t, st.HasBook)
	assert.Equal(t, 12, st.Streak)

	id, err := s.AddBook(ctx, Book{Title: "Le Petit Prince", Author: "Saint-Exupéry", TotalPages: 100})
	require.NoError(t, err)
	require.NoError(t, s.UpsertUserBooks(ctx, []UserBook{{UserID: "u1", BookID: id, Status: StatusReading, CurrentPage: 65}}))

	morning := at("2026-03-10T07:00:00Z")
	_, err = s.AddSession(ctx, Session{UserID: "u1", StartTime: &morning, EndTime: ptr(morning.Add(32 * time.Minute))})
	require.NoError(t, err)
	yesterday := at("2026-03-09T07:00:00Z")
	_, err = s.AddSession(ctx, Session{UserID: "u1", StartTime: &yesterday, EndTime: ptr(yesterday.Add(time.Hour))})
	require.NoError(t, err)

	st, err = s.WidgetSnapshot(ctx, "u1", now)
	require.NoError(t, err)
	assert.Equal(t, WidgetState{
		CurrentBook:     "Le Petit Prince",
		CurrentAuthor:   "Saint-Exupéry",
		TodayMinutes:    32,
		Streak:          12,
		ProgressPercent: 0.65,
		HasBook:         true,
	}, st)
}

func TestBadges(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	_, err := s.Badge(ctx, "first_book")
	assert.ErrorIs(t, err, ErrNotFound)

	want := Badge{ID: "first_book", Name: "Premier livre", Icon: "📖", Category: "books_completed", Color: "#F59E0B"}
	require.NoError(t, s.UpsertBadge(ctx, want))
	got, err := s.Badge(ctx, "first_book")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
