package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	StatusFinished   = "finished"
	StatusReading    = "reading"
	StatusInProgress = "in_progress"
	StatusToRead     = "to_read"
)

type Book struct {
	ID         string
	Title      string
	Author     string
	Genre      string
	CoverURL   string
	TotalPages int
	ExternalID string
}

type UserBook struct {
	UserID      string
	BookID      string
	Status      string
	CurrentPage int
}

type Session struct {
	ID        string
	UserID    string
	BookID    string
	StartTime *time.Time
	EndTime   *time.Time
	StartPage *int
	EndPage   *int
	ReadAt    time.Time
}

type Goal struct {
	ID          string
	UserID      string
	GoalType    string
	TargetValue int
	Year        int
	Active      bool
}

type Highlight struct {
	Text     string
	Location string
	Note     string
}

// AddBook inserts a book without an external id and returns its id.
func (s *Store) AddBook(ctx context.Context, b Book) (string, error) {
	if b.ID == "" {
		b.ID = newID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (id, title, author, genre, cover_url, total_pages, external_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Title, nullString(b.Author), nullString(b.Genre), nullString(b.CoverURL),
		nullInt(b.TotalPages), nullString(b.ExternalID), s.stamp())
	if err != nil {
		return "", fmt.Errorf("add book %q: %w", b.Title, err)
	}
	return b.ID, nil
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

// UpsertBooks writes books keyed on external_id and returns the row id of
// every external id.
func (s *Store) UpsertBooks(ctx context.Context, books []Book) (map[string]string, error) {
	ids := make(map[string]string, len(books))
	err := s.tx(ctx, func(tx *sql.Tx) error {
		for _, b := range books {
			if b.ExternalID == "" {
				return fmt.Errorf("book %q has no external id", b.Title)
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO books (id, title, author, genre, cover_url, total_pages, external_id, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(external_id) DO UPDATE SET
					title = excluded.title,
					author = excluded.author,
					cover_url = excluded.cover_url,
					total_pages = COALESCE(excluded.total_pages, books.total_pages)`,
				newID(), b.Title, nullString(b.Author), nullString(b.Genre), nullString(b.CoverURL),
				nullInt(b.TotalPages), b.ExternalID, s.stamp())
			if err != nil {
				return fmt.Errorf("upsert book %s: %w", b.ExternalID, err)
			}
			var id string
			if err := tx.QueryRowContext(ctx, `SELECT id FROM books WHERE external_id = ?`, b.ExternalID).Scan(&id); err != nil {
				return fmt.Errorf("read back book %s: %w", b.ExternalID, err)
			}
			ids[b.ExternalID] = id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// UpsertUserBooks writes shelf rows keyed on (user_id, book_id).
func (s *Store) UpsertUserBooks(ctx context.Context, rows []UserBook) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		now := s.stamp()
		for _, ub := range rows {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO user_books (id, user_id, book_id, status, current_page, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(user_id, book_id) DO UPDATE SET
					status = excluded.status,
					current_page = excluded.current_page,
					updated_at = excluded.updated_at`,
				newID(), ub.UserID, ub.BookID, ub.Status, ub.CurrentPage, now, now)
			if err != nil {
				return fmt.Errorf("upsert shelf row %s/%s: %w", ub.UserID, ub.BookID, err)
			}
		}
		return nil
	})
}

// BooksByStatus lists a user's books with status, newest shelf entry
// first. A limit of zero means all of them.
func (s *Store) BooksByStatus(ctx context.Context, userID, status string, limit int) ([]Book, error) {
	query := `
		SELECT b.id, b.title, b.author, b.genre, b.cover_url, b.total_pages, b.external_id
		FROM user_books ub JOIN books b ON b.id = ub.book_id
		WHERE ub.user_id = ? AND ub.status = ?
		ORDER BY ub.created_at DESC, ub.rowid DESC`
	args := []any{userID, status}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s books: %w", status, err)
	}
	defer rows.Close()

	var out []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBook(row scanner) (Book, error) {
	var (
		b                           Book
		author, genre, cover, extID sql.NullString
		pages                       sql.NullInt64
	)
	if err := row.Scan(&b.ID, &b.Title, &author, &genre, &cover, &pages, &extID); err != nil {
		return Book{}, err
	}
	b.Author = author.String
	b.Genre = genre.String
	b.CoverURL = cover.String
	b.TotalPages = int(pages.Int64)
	b.ExternalID = extID.String
	return b, nil
}

func (s *Store) FinishedBookCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_books WHERE user_id = ? AND status = ?`, userID, StatusFinished).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count finished books: %w", err)
	}
	return n, nil
}

// AddSession records a reading session. ReadAt defaults to the start time,
// then to now.
func (s *Store) AddSession(ctx context.Context, sess Session) (string, error) {
	if sess.ID == "" {
		sess.ID = newID()
	}
	if sess.ReadAt.IsZero() {
		if sess.StartTime != nil {
			sess.ReadAt = *sess.StartTime
		} else {
			sess.ReadAt = s.now()
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reading_sessions (id, user_id, book_id, start_time, end_time, start_page, end_page, read_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, nullString(sess.BookID), nullTime(sess.StartTime), nullTime(sess.EndTime),
		sess.StartPage, sess.EndPage, formatTime(sess.ReadAt))
	if err != nil {
		return "", fmt.Errorf("add session: %w", err)
	}
	return sess.ID, nil
}

// CompletedSessions lists the sessions of userID that have an end time.
func (s *Store) CompletedSessions(ctx context.Context, userID string) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, book_id, start_time, end_time, start_page, end_page, read_at
		FROM reading_sessions
		WHERE user_id = ? AND end_time IS NOT NULL
		ORDER BY read_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			sess                       Session
			bookID, start, end, readAt sql.NullString
			startPage, endPage         sql.NullInt64
		)
		if err := rows.Scan(&sess.ID, &sess.UserID, &bookID, &start, &end, &startPage, &endPage, &readAt); err != nil {
			return nil, err
		}
		sess.BookID = bookID.String
		sess.StartTime = parseTime(start)
		sess.EndTime = parseTime(end)
		if startPage.Valid {
			v := int(startPage.Int64)
			sess.StartPage = &v
		}
		if endPage.Valid {
			v := int(endPage.Int64)
			sess.EndPage = &v
		}
		if t := parseTime(readAt); t != nil {
			sess.ReadAt = *t
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) AddGoal(ctx context.Context, g Goal) error {
	if g.ID == "" {
		g.ID = newID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reading_goals (id, user_id, goal_type, target_value, year, is_active)
		VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.GoalType, g.TargetValue, g.Year, g.Active)
	if err != nil {
		return fmt.Errorf("add goal: %w", err)
	}
	return nil
}

// ActiveGoals lists the active goals of userID for year.
func (s *Store) ActiveGoals(ctx context.Context, userID string, year int) ([]Goal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, goal_type, target_value, year, is_active
		FROM reading_goals
		WHERE user_id = ? AND is_active = 1 AND year = ?
		ORDER BY rowid`, userID, year)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []Goal
	for rows.Next() {
		var g Goal
		if err := rows.Scan(&g.ID, &g.UserID, &g.GoalType, &g.TargetValue, &g.Year, &g.Active); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// SaveHighlights stores highlights of one book, skipping texts already
// saved, and returns how many rows were new.
func (s *Store) SaveHighlights(ctx context.Context, userID, bookID string, hs []Highlight) (int, error) {
	saved := 0
	err := s.tx(ctx, func(tx *sql.Tx) error {
		now := s.stamp()
		for _, h := range hs {
			res, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO highlights (user_id, book_id, text, location, note, created_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				userID, bookID, h.Text, nullString(h.Location), nullString(h.Note), now)
			if err != nil {
				return fmt.Errorf("save highlight: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			saved += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return saved, nil
}

// WidgetState is what the home-screen widget shows for a user.
type WidgetState struct {
	CurrentBook     string
	CurrentAuthor   string
	TodayMinutes    int
	Streak          int
	ProgressPercent float64
	HasBook         bool
}

// WidgetSnapshot reads the book most recently touched among the ones being
// read, the minutes read on now's UTC date and the streak.
func (s *Store) WidgetSnapshot(ctx context.Context, userID string, now time.Time) (WidgetState, error) {
	var st WidgetState

	p, err := s.Profile(ctx, userID)
	if err != nil {
		return WidgetState{}, err
	}
	st.Streak = p.CurrentStreak

	var (
		author sql.NullString
		pages  sql.NullInt64
		page   int
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT b.title, b.author, b.total_pages, ub.current_page
		FROM user_books ub JOIN books b ON b.id = ub.book_id
		WHERE ub.user_id = ? AND ub.status IN (?, ?)
		ORDER BY ub.updated_at DESC, ub.rowid DESC
		LIMIT 1`, userID, StatusReading, StatusInProgress).Scan(&st.CurrentBook, &author, &pages, &page)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return WidgetState{}, fmt.Errorf("current book of %s: %w", userID, err)
	default:
		st.HasBook = true
		st.CurrentAuthor = author.String
		if pages.Int64 > 0 {
			st.ProgressPercent = min(float64(page)/float64(pages.Int64), 1)
		}
	}

	day := now.UTC().Truncate(24 * time.Hour)
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_time, end_time FROM reading_sessions
		WHERE user_id = ? AND end_time IS NOT NULL AND read_at >= ? AND read_at < ?`,
		userID, formatTime(day), formatTime(day.Add(24*time.Hour)))
	if err != nil {
		return WidgetState{}, fmt.Errorf("today's sessions of %s: %w", userID, err)
	}
	defer rows.Close()

	var minutes float64
	for rows.Next() {
		var start, end sql.NullString
		if err := rows.Scan(&start, &end); err != nil {
			return WidgetState{}, err
		}
		begin, finish := parseTime(start), parseTime(end)
		if begin == nil || finish == nil {
			continue
		}
		if d := finish.Sub(*begin).Minutes(); d > 0 && d < 24*60 {
			minutes += d
		}
	}
	if err := rows.Err(); err != nil {
		return WidgetState{}, err
	}
	st.TodayMinutes = int(minutes)
	return st, nil
}
