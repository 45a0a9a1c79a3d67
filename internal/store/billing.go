package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	SubscriptionTrial        = "trial"
	SubscriptionPremium      = "premium"
	SubscriptionExpired      = "expired"
	SubscriptionBillingIssue = "billing_issue"
)

type Subscription struct {
	UserID               string
	Status               string
	Platform             string
	ProductID            string
	OriginalPurchaseDate *time.Time
	ExpiresAt            *time.Time
	AutoRenew            bool
	UpdatedAt            time.Time
}

// UpsertSubscription writes the subscription row of s.UserID.
func (s *Store) UpsertSubscription(ctx context.Context, sub Subscription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, status, platform, product_id,
			original_purchase_date, expires_at, auto_renew, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			status = excluded.status,
			platform = excluded.platform,
			product_id = excluded.product_id,
			original_purchase_date = excluded.original_purchase_date,
			expires_at = excluded.expires_at,
			auto_renew = excluded.auto_renew,
			updated_at = excluded.updated_at`,
		sub.UserID, sub.Status, nullString(sub.Platform), nullString(sub.ProductID),
		nullTime(sub.OriginalPurchaseDate), nullTime(sub.ExpiresAt), sub.AutoRenew, s.stamp())
	if err != nil {
		return fmt.Errorf("upsert subscription of %s: %w", sub.UserID, err)
	}
	return nil
}

// SetAutoRenew updates the renewal flag. A user without a subscription
// row gives ErrNotFound.
func (s *Store) SetAutoRenew(ctx context.Context, userID string, autoRenew bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET auto_renew = ?, updated_at = ? WHERE user_id = ?`,
		autoRenew, s.stamp(), userID)
	if err != nil {
		return fmt.Errorf("set auto renew of %s: %w", userID, err)
	}
	return requireRow(res)
}

func (s *Store) SetSubscriptionStatus(ctx context.Context, userID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET status = ?, updated_at = ? WHERE user_id = ?`,
		status, s.stamp(), userID)
	if err != nil {
		return fmt.Errorf("set subscription status of %s: %w", userID, err)
	}
	return requireRow(res)
}

func (s *Store) Subscription(ctx context.Context, userID string) (Subscription, error) {
	var (
		sub                         Subscription
		platform, product           sql.NullString
		purchased, expires, updated sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, status, platform, product_id, original_purchase_date,
			expires_at, auto_renew, updated_at
		FROM subscriptions WHERE user_id = ?`, userID).
		Scan(&sub.UserID, &sub.Status, &platform, &product, &purchased, &expires, &sub.AutoRenew, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, ErrNotFound
	}
	if err != nil {
		return Subscription{}, fmt.Errorf("load subscription of %s: %w", userID, err)
	}
	sub.Platform = platform.String
	sub.ProductID = product.String
	sub.OriginalPurchaseDate = parseTime(purchased)
	sub.ExpiresAt = parseTime(expires)
	if t := parseTime(updated); t != nil {
		sub.UpdatedAt = *t
	}
	return sub, nil
}
