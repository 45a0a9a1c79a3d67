// Package billing applies RevenueCat webhook events to subscriptions and
// the cached premium flag on profiles.
package billing

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/acoeffic/readon/internal/store"
)

const (
	EventInitialPurchase      = "INITIAL_PURCHASE"
	EventRenewal              = "RENEWAL"
	EventProductChange        = "PRODUCT_CHANGE"
	EventCancellation         = "CANCELLATION"
	EventExpiration           = "EXPIRATION"
	EventBillingIssueDetected = "BILLING_ISSUE_DETECTED"
)

var ErrMissingUser = errors.New("missing event or app_user_id")

type Payload struct {
	Event *Event `json:"event"`
}

type Event struct {
	Type           string `json:"type"`
	AppUserID      string `json:"app_user_id"`
	ProductID      string `json:"product_id,omitempty"`
	ExpirationAtMs int64  `json:"expiration_at_ms,omitempty"`
	PurchasedAtMs  int64  `json:"purchased_at_ms,omitempty"`
	Store          string `json:"store,omitempty"`
	PeriodType     string `json:"period_type,omitempty"`
	Environment    string `json:"environment,omitempty"`
}

// Store is what the webhook writes to.
type Store interface {
	UpsertSubscription(ctx context.Context, sub store.Subscription) error
	SetAutoRenew(ctx context.Context, userID string, autoRenew bool) error
	SetSubscriptionStatus(ctx context.Context, userID, status string) error
	SetPremium(ctx context.Context, userID string, premium bool, until *time.Time) error
}

type Processor struct {
	store  Store
	secret string
	log    *zap.Logger
}

func NewProcessor(st Store, secret string, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{store: st, secret: secret, log: log}
}

// VerifyAuthorization checks the Authorization header against the shared
// secret. Without a configured secret every request passes.
func (p *Processor) VerifyAuthorization(header string) bool {
	if p.secret == "" {
		p.log.Warn("webhook secret not set, skipping verification")
		return true
	}
	return VerifyAuthorization(p.secret, header)
}

func VerifyAuthorization(secret, header string) bool {
	if header == "" {
		return false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

// Platform maps a RevenueCat store to ios or android. Other stores give "".
func Platform(storeName string) string {
	switch storeName {
	case "APP_STORE", "MAC_APP_STORE":
		return "ios"
	case "PLAY_STORE":
		return "android"
	}
	return ""
}

func msTime(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

// Apply updates the store for ev. Unknown event types are logged and
// ignored. Only a failed subscription write is returned; a stale premium
// cache is logged.
func (p *Processor) Apply(ctx context.Context, ev Event) error {
	if ev.AppUserID == "" {
		return ErrMissingUser
	}
	userID := ev.AppUserID
	expires := msTime(ev.ExpirationAtMs)
	log := p.log.With(zap.String("event", ev.Type), zap.String("user", userID))

	switch ev.Type {
	case EventInitialPurchase, EventRenewal, EventProductChange:
		status := store.SubscriptionPremium
		if ev.PeriodType == "TRIAL" {
			status = store.SubscriptionTrial
		}
		err := p.store.UpsertSubscription(ctx, store.Subscription{
			UserID:               userID,
			Status:               status,
			Platform:             Platform(ev.Store),
			ProductID:            ev.ProductID,
			OriginalPurchaseDate: msTime(ev.PurchasedAtMs),
			ExpiresAt:            expires,
			AutoRenew:            true,
		})
		if err != nil {
			return err
		}
		if err := p.store.SetPremium(ctx, userID, true, expires); err != nil {
			log.Error("update premium cache", zap.Error(err))
		}
		log.Info("subscription active", zap.String("status", status), zap.Timep("expires_at", expires))

	case EventCancellation:
		if err := p.update(p.store.SetAutoRenew(ctx, userID, false)); err != nil {
			return err
		}
		log.Info("auto renew disabled")

	case EventExpiration:
		if err := p.update(p.store.SetSubscriptionStatus(ctx, userID, store.SubscriptionExpired)); err != nil {
			return err
		}
		if err := p.update(p.store.SetAutoRenew(ctx, userID, false)); err != nil {
			return err
		}
		if err := p.store.SetPremium(ctx, userID, false, nil); err != nil {
			log.Error("revoke premium cache", zap.Error(err))
		}
		log.Info("premium revoked")

	case EventBillingIssueDetected:
		if err := p.update(p.store.SetSubscriptionStatus(ctx, userID, store.SubscriptionBillingIssue)); err != nil {
			return err
		}
		log.Info("billing issue")

	default:
		log.Info("event ignored")
	}
	return nil
}

// update tolerates events for users without a subscription row.
func (p *Processor) update(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		p.log.Warn("no subscription row to update")
		return nil
	}
	return err
}
