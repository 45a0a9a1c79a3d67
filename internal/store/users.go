package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Profile struct {
	ID                   string
	Username             string
	IsPremium            bool
	PremiumUntil         *time.Time
	FCMToken             string
	NotificationsEnabled bool
	// NotificationDays holds ISO weekdays (1 = Monday). Nil means every day.
	NotificationDays []int
	CurrentStreak    int
}

// UpsertProfile creates or replaces the editable profile fields.
func (s *Store) UpsertProfile(ctx context.Context, p Profile) error {
	var days any
	if p.NotificationDays != nil {
		b, err := json.Marshal(p.NotificationDays)
		if err != nil {
			return fmt.Errorf("encode notification days: %w", err)
		}
		days = string(b)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, username, is_premium, premium_until, fcm_token,
			notifications_enabled, notification_days, current_streak, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			is_premium = excluded.is_premium,
			premium_until = excluded.premium_until,
			fcm_token = excluded.fcm_token,
			notifications_enabled = excluded.notifications_enabled,
			notification_days = excluded.notification_days,
			current_streak = excluded.current_streak`,
		p.ID, nullString(p.Username), p.IsPremium, nullTime(p.PremiumUntil), nullString(p.FCMToken),
		p.NotificationsEnabled, days, p.CurrentStreak, s.stamp())
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) Profile(ctx context.Context, id string) (Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, is_premium, premium_until, fcm_token,
			notifications_enabled, notification_days, current_streak
		FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("load profile %s: %w", id, err)
	}
	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (Profile, error) {
	var (
		p                  Profile
		username, fcm      sql.NullString
		premiumUntil, days sql.NullString
	)
	err := row.Scan(&p.ID, &username, &p.IsPremium, &premiumUntil, &fcm,
		&p.NotificationsEnabled, &days, &p.CurrentStreak)
	if err != nil {
		return Profile{}, err
	}
	p.Username = username.String
	p.FCMToken = fcm.String
	p.PremiumUntil = parseTime(premiumUntil)
	if days.Valid && days.String != "" {
		if err := json.Unmarshal([]byte(days.String), &p.NotificationDays); err != nil {
			return Profile{}, fmt.Errorf("decode notification days of %s: %w", p.ID, err)
		}
	}
	return p, nil
}

// IssueToken creates a bearer token for userID. A zero ttl never expires.
func (s *Store) IssueToken(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	token := newID()
	var expires *time.Time
	if ttl > 0 {
		t := s.now().Add(ttl)
		expires = &t
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, s.stamp(), nullTime(expires))
	if err != nil {
		return "", fmt.Errorf("issue token for %s: %w", userID, err)
	}
	return token, nil
}

// UserForToken resolves a bearer token. Unknown and expired tokens give
// ErrNotFound.
func (s *Store) UserForToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNotFound
	}
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM auth_tokens
		WHERE token = ? AND (expires_at IS NULL OR expires_at > ?)`,
		token, s.stamp()).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup token: %w", err)
	}
	return userID, nil
}

// IsPremium reads the cached premium flag. A missing profile is not premium.
func (s *Store) IsPremium(ctx context.Context, userID string) (bool, error) {
	var premium bool
	err := s.db.QueryRowContext(ctx, `SELECT is_premium FROM profiles WHERE id = ?`, userID).Scan(&premium)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("premium flag of %s: %w", userID, err)
	}
	return premium, nil
}

// SetPremium updates the premium cache. Revoking keeps premium_until.
func (s *Store) SetPremium(ctx context.Context, userID string, premium bool, until *time.Time) error {
	var err error
	if premium {
		_, err = s.db.ExecContext(ctx,
			`UPDATE profiles SET is_premium = 1, premium_until = ? WHERE id = ?`, nullTime(until), userID)
	} else {
		_, err = s.db.ExecContext(ctx, `UPDATE profiles SET is_premium = 0 WHERE id = ?`, userID)
	}
	if err != nil {
		return fmt.Errorf("set premium for %s: %w", userID, err)
	}
	return nil
}

// ReminderCandidates lists profiles with notifications on and a push token.
func (s *Store) ReminderCandidates(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, is_premium, premium_until, fcm_token,
			notifications_enabled, notification_days, current_streak
		FROM profiles
		WHERE notifications_enabled = 1 AND fcm_token IS NOT NULL AND fcm_token != ''
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list reminder candidates: %w", err)
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UsersWhoReadBetween returns the distinct users with a session whose
// read_at falls in [from, to).
func (s *Store) UsersWhoReadBetween(ctx context.Context, from, to time.Time) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM reading_sessions WHERE read_at >= ? AND read_at < ?`,
		formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("list readers: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}
