package payments

import (
	"fmt"
	"time"
)

// Webhook sources handled by the gateway.
const (
	SourceHotmart = "hotmart"
	SourceDoppus  = "doppus"
)

// Canonical event types. Everything a provider can tell us collapses into
// these four; unknown provider events are a NormalizationError, never a
// guess.
const (
	EventPurchaseApproved = "purchase_approved"
	EventRenewal          = "renewal"
	EventRefund           = "refund"
	EventCancellation     = "cancellation"
)

// CanonicalEvent is the provider-agnostic representation of a payment
// notification. It exists only in memory; the raw payload is persisted
// separately as the write-ahead WebhookEvent record.
//
// OccurredAt carries the provider's own event timestamp when present and
// the gateway receipt time otherwise. It is used for audit ordering only;
// expiry arithmetic always uses the clock at apply time.
type CanonicalEvent struct {
	EventType     string
	Source        string
	TransactionID string
	UserEmail     string
	UserName      string
	ProductID     string
	OccurredAt    time.Time
}

// NormalizationError marks a payload that will never parse, no matter how
// often the provider retries it. The gateway acknowledges these with 200.
type NormalizationError struct {
	Source string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s payload: %s", e.Source, e.Reason)
}

func normErr(source, format string, args ...interface{}) *NormalizationError {
	return &NormalizationError{Source: source, Reason: fmt.Sprintf(format, args...)}
}
