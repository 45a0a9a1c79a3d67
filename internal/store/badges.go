package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Badge struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Category    string
	Color       string
}

func (s *Store) UpsertBadge(ctx context.Context, b Badge) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO badges (id, name, description, icon, category, color)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			icon = excluded.icon,
			category = excluded.category,
			color = excluded.color`,
		b.ID, b.Name, nullString(b.Description), nullString(b.Icon), nullString(b.Category), nullString(b.Color))
	if err != nil {
		return fmt.Errorf("upsert badge %s: %w", b.ID, err)
	}
	return nil
}

func (s *Store) Badge(ctx context.Context, id string) (Badge, error) {
	var (
		b                                  Badge
		description, icon, category, color sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, icon, category, color FROM badges WHERE id = ?`, id).
		Scan(&b.ID, &b.Name, &description, &icon, &category, &color)
	if errors.Is(err, sql.ErrNoRows) {
		return Badge{}, ErrNotFound
	}
	if err != nil {
		return Badge{}, fmt.Errorf("load badge %s: %w", id, err)
	}
	b.Description = description.String
	b.Icon = icon.String
	b.Category = category.String
	b.Color = color.String
	return b, nil
}
