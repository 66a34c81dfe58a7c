package payments

import (
	"crypto/hmac"
	"encoding/json"
	"strings"
	"time"
)

// Hotmart webhook (v2) event names.
const (
	hotmartPurchaseApproved        = "PURCHASE_APPROVED"
	hotmartPurchaseComplete        = "PURCHASE_COMPLETE"
	hotmartPurchaseRefunded        = "PURCHASE_REFUNDED"
	hotmartSubscriptionCancelation = "SUBSCRIPTION_CANCELLATION"
)

// VerifyHotmartWebhook compares the X-HOTMART-HOTTOK header against the
// configured shared token in constant time.
func VerifyHotmartWebhook(hottokHeader, configuredHottok string) bool {
	got := strings.TrimSpace(hottokHeader)
	want := strings.TrimSpace(configuredHottok)
	if got == "" || want == "" {
		return false
	}
	return hmac.Equal([]byte(got), []byte(want))
}

// hotmartPayload mirrors the discriminated webhook v2 envelope. Fields the
// core does not consume are intentionally absent; unknown shapes fail the
// required-field checks below instead of being best-effort read.
type hotmartPayload struct {
	ID           string `json:"id"`
	Event        string `json:"event"`
	Version      string `json:"version"`
	CreationDate int64  `json:"creation_date"` // epoch millis
	Data         struct {
		Product struct {
			ID   json.Number `json:"id"`
			Name string      `json:"name"`
		} `json:"product"`
		Buyer struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"buyer"`
		Purchase struct {
			Transaction  string `json:"transaction"`
			OrderDate    int64  `json:"order_date"`
			ApprovedDate int64  `json:"approved_date"`
			Status       string `json:"status"`
		} `json:"purchase"`
		Subscription struct {
			Subscriber struct {
				Code string `json:"code"`
			} `json:"subscriber"`
			Plan struct {
				Name string `json:"name"`
			} `json:"plan"`
		} `json:"subscription"`
	} `json:"data"`
}

func parseHotmartEvent(raw []byte, receivedAt time.Time) (*CanonicalEvent, error) {
	var p hotmartPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, normErr(SourceHotmart, "invalid json: %v", err)
	}

	var eventType string
	switch strings.ToUpper(strings.TrimSpace(p.Event)) {
	case hotmartPurchaseApproved:
		eventType = EventPurchaseApproved
	case hotmartPurchaseComplete:
		eventType = EventRenewal
	case hotmartPurchaseRefunded:
		eventType = EventRefund
	case hotmartSubscriptionCancelation:
		eventType = EventCancellation
	case "":
		return nil, normErr(SourceHotmart, "missing event field")
	default:
		return nil, normErr(SourceHotmart, "unsupported event %q", p.Event)
	}

	// Cancellations carry no purchase block; the subscriber code is the
	// stable identifier there.
	transactionID := strings.TrimSpace(p.Data.Purchase.Transaction)
	if transactionID == "" {
		transactionID = strings.TrimSpace(p.Data.Subscription.Subscriber.Code)
	}
	if transactionID == "" {
		return nil, normErr(SourceHotmart, "missing transaction identifier")
	}

	email := strings.ToLower(strings.TrimSpace(p.Data.Buyer.Email))
	if email == "" {
		return nil, normErr(SourceHotmart, "missing buyer email")
	}

	productID := strings.TrimSpace(p.Data.Product.ID.String())
	if productID == "" {
		return nil, normErr(SourceHotmart, "missing product id")
	}

	occurredAt := receivedAt
	if p.CreationDate > 0 {
		occurredAt = time.UnixMilli(p.CreationDate).UTC()
	} else if p.Data.Purchase.ApprovedDate > 0 {
		occurredAt = time.UnixMilli(p.Data.Purchase.ApprovedDate).UTC()
	}

	return &CanonicalEvent{
		EventType:     eventType,
		Source:        SourceHotmart,
		TransactionID: transactionID,
		UserEmail:     email,
		UserName:      strings.TrimSpace(p.Data.Buyer.Name),
		ProductID:     productID,
		OccurredAt:    occurredAt,
	}, nil
}
