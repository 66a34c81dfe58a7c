package subscription

import (
	"fmt"
	"time"

	"github.com/autoarte/AutoArte/app/models"
	"github.com/autoarte/AutoArte/internal/pkg/payments"
	"github.com/autoarte/AutoArte/internal/pkg/plancatalog"
)

// ApplyError kinds. None of them is transient: a provider retry delivers
// the same event and fails the same way, so the gateway acknowledges and
// audits instead of soliciting a resend.
const (
	ErrKindUserUnresolvable           = "user_unresolvable"
	ErrKindUnknownProduct             = "unknown_product"
	ErrKindRenewalWithoutSubscription = "renewal_without_subscription"
	ErrKindUnsupportedEvent           = "unsupported_event"
)

// ApplyError is a non-transient state-machine failure.
type ApplyError struct {
	Kind   string
	Detail string
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply %s: %s", e.Kind, e.Detail)
}

// applyTransition mutates the user in place per the canonical event. plan
// is required for purchase and renewal events and ignored otherwise.
// Expiry arithmetic uses now, never the event's own timestamp.
func applyTransition(u *models.User, ev *payments.CanonicalEvent, plan *plancatalog.Plan, now time.Time) error {
	// Manual grants are owned by operators, not providers. A stray webhook
	// for such an account must not downgrade or overwrite it.
	if u.IsManualGrant() {
		return nil
	}

	switch ev.EventType {
	case payments.EventPurchaseApproved:
		if plan.IsLifetime() {
			u.AccessLevel = models.AccessPremium
			u.PlanType = models.PlanLifetime
			u.HasLifetimeAccess = true
			start := now
			u.SubscriptionStart = &start
			u.SubscriptionExpiry = nil
			u.SubscriptionOrigin = ev.Source
			return nil
		}
		start := now
		expiry := now.AddDate(0, 0, *plan.DurationDays)
		u.AccessLevel = models.AccessPremium
		u.PlanType = plan.PlanType
		u.HasLifetimeAccess = false
		u.SubscriptionStart = &start
		u.SubscriptionExpiry = &expiry
		u.SubscriptionOrigin = ev.Source
		return nil

	case payments.EventRenewal:
		if u.HasLifetimeAccess {
			// Nothing to extend; lifetime access already covers it.
			return nil
		}
		if plan.IsLifetime() {
			// A recurring charge against a product the catalog now maps as
			// lifetime; grant the stronger access.
			u.AccessLevel = models.AccessPremium
			u.PlanType = models.PlanLifetime
			u.HasLifetimeAccess = true
			u.SubscriptionExpiry = nil
			u.SubscriptionOrigin = ev.Source
			return nil
		}
		if u.AccessLevel != models.AccessPremium {
			return &ApplyError{
				Kind:   ErrKindRenewalWithoutSubscription,
				Detail: fmt.Sprintf("user %s has access level %q", ev.UserEmail, u.AccessLevel),
			}
		}
		// Extend from whichever is later, the current expiry or now. A
		// delayed or out-of-order renewal can therefore never shrink the
		// expiry the user already holds.
		base := now
		if u.SubscriptionExpiry != nil && u.SubscriptionExpiry.After(now) {
			base = *u.SubscriptionExpiry
		}
		expiry := base.AddDate(0, 0, *plan.DurationDays)
		u.SubscriptionExpiry = &expiry
		if plan.PlanType != "" {
			u.PlanType = plan.PlanType
		}
		u.SubscriptionOrigin = ev.Source
		return nil

	case payments.EventRefund, payments.EventCancellation:
		u.AccessLevel = models.AccessFree
		u.PlanType = models.PlanNone
		u.HasLifetimeAccess = false
		u.SubscriptionExpiry = nil
		return nil

	default:
		return &ApplyError{Kind: ErrKindUnsupportedEvent, Detail: fmt.Sprintf("unhandled event type %q", ev.EventType)}
	}
}
