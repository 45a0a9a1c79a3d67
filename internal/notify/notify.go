// Package notify sends the daily streak reminders to readers who have not
// read yet today.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/acoeffic/readon/internal/store"
)

const (
	DefaultUsername = "Lecteur"
	TypeStreak      = "streak_reminder"

	sendConcurrency = 4
)

var allDays = []int{1, 2, 3, 4, 5, 6, 7}

// Message picks the reminder copy for a streak length.
func Message(streak int, username string) (title, body string) {
	switch {
	case streak == 0:
		return "📚 Commence ton streak aujourd'hui !",
			fmt.Sprintf("Salut %s ! C'est le moment de lire quelques pages.", username)
	case streak < 7:
		plural := ""
		if streak > 1 {
			plural = "s"
		}
		return fmt.Sprintf("🔥 Ne perds pas ton streak de %d jour%s !", streak, plural),
			"Continue ta progression, lis un peu aujourd'hui !"
	case streak < 30:
		return fmt.Sprintf("🔥 Impressionnant ! %d jours de suite !", streak),
			"Tu es sur une belle lancée, ne t'arrête pas maintenant !"
	default:
		return fmt.Sprintf("🏆 %d jours consécutifs ! Incroyable !", streak),
			"Tu es une légende ! Continue ton incroyable série."
	}
}

// Reminder is one push to one device.
type Reminder struct {
	UserID string            `json:"user_id"`
	Token  string            `json:"-"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data"`
}

type Sender interface {
	Send(ctx context.Context, r Reminder) error
}

type Store interface {
	ReminderCandidates(ctx context.Context) ([]store.Profile, error)
	UsersWhoReadBetween(ctx context.Context, from, to time.Time) (map[string]bool, error)
}

type Result struct {
	Success           bool   `json:"success"`
	TotalUsers        int    `json:"total_users"`
	UsersWhoReadToday int    `json:"users_who_read_today"`
	NotificationsSent int    `json:"notifications_sent"`
	Errors            int    `json:"errors"`
	Message           string `json:"message,omitempty"`
}

// MarshalJSON keeps the short form when there was nobody to notify.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Message != "" {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}{r.Success, r.Message})
	}
	type plain Result
	return json.Marshal(plain(r))
}

type Dispatcher struct {
	store  Store
	sender Sender
	log    *zap.Logger
}

func NewDispatcher(st Store, sender Sender, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{store: st, sender: sender, log: log}
}

// ISOWeekday numbers days from Monday (1) to Sunday (7).
func ISOWeekday(t time.Time) int {
	if wd := t.Weekday(); wd != time.Sunday {
		return int(wd)
	}
	return 7
}

// Run sends one round of reminders. "Today" is now's UTC calendar date.
// Failed sends are counted, not returned.
func (d *Dispatcher) Run(ctx context.Context, now time.Time) (Result, error) {
	users, err := d.store.ReminderCandidates(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(users) == 0 {
		d.log.Info("no users with notifications enabled")
		return Result{Success: true, Message: "No users to notify"}, nil
	}

	utc := now.UTC()
	day := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	readers, err := d.store.UsersWhoReadBetween(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		return Result{}, err
	}
	weekday := ISOWeekday(utc)

	var due []store.Profile
	for _, u := range users {
		if readers[u.ID] {
			continue
		}
		days := u.NotificationDays
		if days == nil {
			days = allDays
		}
		if slices.Contains(days, weekday) {
			due = append(due, u)
		}
	}
	d.log.Info("sending streak reminders",
		zap.Int("candidates", len(users)),
		zap.Int("read_today", len(readers)),
		zap.Int("due", len(due)))

	var sent, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sendConcurrency)
	for _, u := range due {
		g.Go(func() error {
			username := u.Username
			if username == "" {
				username = DefaultUsername
			}
			title, body := Message(u.CurrentStreak, username)
			err := d.sender.Send(gctx, Reminder{
				UserID: u.ID,
				Token:  u.FCMToken,
				Title:  title,
				Body:   body,
				Data:   map[string]string{"type": TypeStreak, "user_id": u.ID},
			})
			if err != nil {
				failed.Add(1)
				d.log.Warn("reminder failed", zap.String("user", u.ID), zap.Error(err))
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{
		Success:           true,
		TotalUsers:        len(users),
		UsersWhoReadToday: len(readers),
		NotificationsSent: int(sent.Load()),
		Errors:            int(failed.Load()),
	}
	d.log.Info("streak reminders done",
		zap.Int("sent", res.NotificationsSent),
		zap.Int("errors", res.Errors))
	return res, nil
}
