package subscription

import (
	"errors"
	"testing"
	"time"

	"github.com/autoarte/AutoArte/app/models"
	"github.com/autoarte/AutoArte/internal/pkg/payments"
	"github.com/autoarte/AutoArte/internal/pkg/plancatalog"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func monthlyPlan() *plancatalog.Plan {
	days := 30
	return &plancatalog.Plan{PlanType: models.PlanMonthly, DurationDays: &days}
}

func lifetimePlan() *plancatalog.Plan {
	return &plancatalog.Plan{PlanType: models.PlanLifetime}
}

func freeUser() *models.User {
	return &models.User{
		Email:       "buyer@example.com",
		AccessLevel: models.AccessFree,
		PlanType:    models.PlanNone,
	}
}

func event(eventType string) *payments.CanonicalEvent {
	return &payments.CanonicalEvent{
		EventType:     eventType,
		Source:        payments.SourceHotmart,
		TransactionID: "HP123",
		UserEmail:     "buyer@example.com",
		ProductID:     "42",
		OccurredAt:    now,
	}
}

func TestPurchaseApprovedGrantsTimedAccess(t *testing.T) {
	u := freeUser()
	if err := applyTransition(u, event(payments.EventPurchaseApproved), monthlyPlan(), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if u.AccessLevel != models.AccessPremium {
		t.Fatalf("access level = %q, want premium", u.AccessLevel)
	}
	if u.PlanType != models.PlanMonthly {
		t.Fatalf("plan type = %q, want monthly", u.PlanType)
	}
	if u.HasLifetimeAccess {
		t.Fatal("timed purchase must not grant lifetime access")
	}
	want := now.AddDate(0, 0, 30)
	if u.SubscriptionExpiry == nil || !u.SubscriptionExpiry.Equal(want) {
		t.Fatalf("expiry = %v, want %v", u.SubscriptionExpiry, want)
	}
	if u.SubscriptionOrigin != payments.SourceHotmart {
		t.Fatalf("origin = %q, want hotmart", u.SubscriptionOrigin)
	}
}

func TestPurchaseApprovedLifetime(t *testing.T) {
	u := freeUser()
	if err := applyTransition(u, event(payments.EventPurchaseApproved), lifetimePlan(), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !u.HasLifetimeAccess || u.PlanType != models.PlanLifetime {
		t.Fatalf("expected lifetime grant, got plan=%q lifetime=%v", u.PlanType, u.HasLifetimeAccess)
	}
	if u.SubscriptionExpiry != nil {
		t.Fatalf("lifetime access must carry no expiry, got %v", u.SubscriptionExpiry)
	}
}

func TestRefundRevokesAccess(t *testing.T) {
	u := freeUser()
	if err := applyTransition(u, event(payments.EventPurchaseApproved), monthlyPlan(), now); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if err := applyTransition(u, event(payments.EventRefund), nil, now.Add(time.Hour)); err != nil {
		t.Fatalf("refund: %v", err)
	}

	if u.AccessLevel != models.AccessFree || u.PlanType != models.PlanNone {
		t.Fatalf("expected free/none after refund, got %q/%q", u.AccessLevel, u.PlanType)
	}
	if u.SubscriptionExpiry != nil || u.HasLifetimeAccess {
		t.Fatal("refund must clear expiry and lifetime flag")
	}
}

func TestRenewalExtendsFromCurrentExpiry(t *testing.T) {
	u := freeUser()
	if err := applyTransition(u, event(payments.EventPurchaseApproved), monthlyPlan(), now); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	firstExpiry := *u.SubscriptionExpiry

	// Renewal lands well before the current expiry; the new expiry stacks
	// on top of the old one instead of restarting from now.
	renewAt := now.AddDate(0, 0, 5)
	if err := applyTransition(u, event(payments.EventRenewal), monthlyPlan(), renewAt); err != nil {
		t.Fatalf("renewal: %v", err)
	}

	want := firstExpiry.AddDate(0, 0, 30)
	if !u.SubscriptionExpiry.Equal(want) {
		t.Fatalf("expiry = %v, want %v", u.SubscriptionExpiry, want)
	}
}

func TestRenewalAfterLapseExtendsFromNow(t *testing.T) {
	u := freeUser()
	if err := applyTransition(u, event(payments.EventPurchaseApproved), monthlyPlan(), now); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	// The renewal arrives after the previous expiry already passed.
	renewAt := now.AddDate(0, 0, 45)
	if err := applyTransition(u, event(payments.EventRenewal), monthlyPlan(), renewAt); err != nil {
		t.Fatalf("renewal: %v", err)
	}

	want := renewAt.AddDate(0, 0, 30)
	if !u.SubscriptionExpiry.Equal(want) {
		t.Fatalf("expiry = %v, want %v", u.SubscriptionExpiry, want)
	}
}

func TestRenewalNeverShrinksExpiry(t *testing.T) {
	u := freeUser()
	if err := applyTransition(u, event(payments.EventPurchaseApproved), monthlyPlan(), now); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	before := *u.SubscriptionExpiry
	for i := 0; i < 3; i++ {
		if err := applyTransition(u, event(payments.EventRenewal), monthlyPlan(), now.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("renewal %d: %v", i, err)
		}
		if u.SubscriptionExpiry.Before(before) {
			t.Fatalf("expiry moved backwards: %v < %v", u.SubscriptionExpiry, before)
		}
		before = *u.SubscriptionExpiry
	}
}

func TestRenewalOnLifetimeUserIsNoOp(t *testing.T) {
	u := freeUser()
	if err := applyTransition(u, event(payments.EventPurchaseApproved), lifetimePlan(), now); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	if err := applyTransition(u, event(payments.EventRenewal), monthlyPlan(), now.AddDate(0, 1, 0)); err != nil {
		t.Fatalf("renewal: %v", err)
	}
	if !u.HasLifetimeAccess || u.SubscriptionExpiry != nil {
		t.Fatalf("lifetime access degraded: lifetime=%v expiry=%v", u.HasLifetimeAccess, u.SubscriptionExpiry)
	}
}

func TestRenewalWithoutSubscriptionFails(t *testing.T) {
	u := freeUser()
	err := applyTransition(u, event(payments.EventRenewal), monthlyPlan(), now)

	var ae *ApplyError
	if !errors.As(err, &ae) {
		t.Fatalf("expected ApplyError, got %v", err)
	}
	if ae.Kind != ErrKindRenewalWithoutSubscription {
		t.Fatalf("kind = %q, want %q", ae.Kind, ErrKindRenewalWithoutSubscription)
	}
	if u.AccessLevel != models.AccessFree {
		t.Fatalf("failed apply must not mutate the user, got access %q", u.AccessLevel)
	}
}

func TestCancellationOnLifetimeRevokes(t *testing.T) {
	u := freeUser()
	if err := applyTransition(u, event(payments.EventPurchaseApproved), lifetimePlan(), now); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if err := applyTransition(u, event(payments.EventCancellation), nil, now.Add(time.Hour)); err != nil {
		t.Fatalf("cancellation: %v", err)
	}

	if u.HasLifetimeAccess || u.AccessLevel != models.AccessFree {
		t.Fatalf("expected revocation, got access=%q lifetime=%v", u.AccessLevel, u.HasLifetimeAccess)
	}
}

func TestManualGrantIsNeverTouched(t *testing.T) {
	u := freeUser()
	u.AccessLevel = models.AccessDesigner

	for _, typ := range []string{
		payments.EventPurchaseApproved,
		payments.EventRenewal,
		payments.EventRefund,
		payments.EventCancellation,
	} {
		if err := applyTransition(u, event(typ), monthlyPlan(), now); err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		if u.AccessLevel != models.AccessDesigner || u.SubscriptionExpiry != nil {
			t.Fatalf("%s modified a manual grant: %+v", typ, u)
		}
	}
}

func TestUnsupportedEventFails(t *testing.T) {
	u := freeUser()
	err := applyTransition(u, event("chargeback"), nil, now)

	var ae *ApplyError
	if !errors.As(err, &ae) || ae.Kind != ErrKindUnsupportedEvent {
		t.Fatalf("expected unsupported event error, got %v", err)
	}
}
