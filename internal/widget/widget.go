// Package widget builds the home-screen widget entries and draws them.
package widget

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/acoeffic/readon/internal/store"
)

const (
	KeyCurrentBook     = "currentBook"
	KeyCurrentAuthor   = "currentAuthor"
	KeyTodayMinutes    = "todayMinutes"
	KeyStreak          = "streak"
	KeyProgressPercent = "progressPercent"

	NoBook          = "Aucun livre"
	RefreshInterval = time.Hour
)

type Entry struct {
	Date            time.Time `json:"date"`
	CurrentBook     string    `json:"currentBook"`
	CurrentAuthor   string    `json:"currentAuthor"`
	TodayMinutes    int       `json:"todayMinutes"`
	Streak          int       `json:"streak"`
	ProgressPercent float64   `json:"progressPercent"`
}

// Timeline is a set of entries and the time the widget asks for the next
// one.
type Timeline struct {
	Entries    []Entry   `json:"entries"`
	NextUpdate time.Time `json:"nextUpdate"`
}

// Defaults is the shared key-value storage the widget reads.
type Defaults interface {
	Values(ctx context.Context) (map[string]any, error)
}

type MapDefaults map[string]any

func (m MapDefaults) Values(context.Context) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, nil
}

// FileDefaults reads a flat YAML or JSON document. A missing file reads as
// empty.
type FileDefaults string

func (f FileDefaults) Values(context.Context) (map[string]any, error) {
	data, err := os.ReadFile(string(f))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse widget defaults %s: %w", string(f), err)
	}
	return out, nil
}

type SnapshotStore interface {
	WidgetSnapshot(ctx context.Context, userID string, now time.Time) (store.WidgetState, error)
}

// StoreDefaults computes the values from a user's reading state. Without a
// book in progress the book keys are left unset.
type StoreDefaults struct {
	Store  SnapshotStore
	UserID string
	Now    func() time.Time
}

func (s StoreDefaults) Values(ctx context.Context) (map[string]any, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	st, err := s.Store.WidgetSnapshot(ctx, s.UserID, now())
	if err != nil {
		return nil, err
	}
	out := map[string]any{
		KeyTodayMinutes:    st.TodayMinutes,
		KeyStreak:          st.Streak,
		KeyProgressPercent: st.ProgressPercent,
	}
	if st.HasBook {
		out[KeyCurrentBook] = st.CurrentBook
		out[KeyCurrentAuthor] = st.CurrentAuthor
	}
	return out, nil
}

type Provider struct {
	Defaults Defaults
	Now      func() time.Time
}

func (p Provider) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p Provider) Placeholder() Entry {
	return Entry{
		Date:            p.now(),
		CurrentBook:     "Le Petit Prince",
		CurrentAuthor:   "Saint-Exupéry",
		TodayMinutes:    32,
		Streak:          7,
		ProgressPercent: 0.65,
	}
}

func (p Provider) Snapshot() Entry {
	return p.Placeholder()
}

// Timeline reads the defaults once and schedules the next refresh an hour
// after now. No defaults at all gives the fallback entry.
func (p Provider) Timeline(ctx context.Context, now time.Time) (Timeline, error) {
	values := map[string]any{}
	if p.Defaults != nil {
		v, err := p.Defaults.Values(ctx)
		if err != nil {
			return Timeline{}, err
		}
		values = v
	}
	return Timeline{
		Entries:    []Entry{EntryFrom(values, now)},
		NextUpdate: now.Add(RefreshInterval),
	}, nil
}

// EntryFrom reads the widget keys from values, with the fallbacks for
// missing or mistyped ones.
func EntryFrom(values map[string]any, now time.Time) Entry {
	book, ok := values[KeyCurrentBook].(string)
	if !ok {
		book = NoBook
	}
	author, _ := values[KeyCurrentAuthor].(string)
	return Entry{
		Date:            now,
		CurrentBook:     book,
		CurrentAuthor:   author,
		TodayMinutes:    intValue(values[KeyTodayMinutes]),
		Streak:          intValue(values[KeyStreak]),
		ProgressPercent: floatValue(values[KeyProgressPercent]),
	}
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	case bool:
		if n {
			return 1
		}
	}
	return 0
}

func floatValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}
	return 0
}
