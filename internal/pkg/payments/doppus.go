package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Doppus status codes carried in status.code.
const (
	doppusStatusApproved = "approved"
	doppusStatusRenewed  = "renewed"
	doppusStatusRefunded = "refunded"
	doppusStatusCanceled = "canceled"
)

const doppusDateLayout = "2006-01-02 15:04:05"

// VerifyDoppusSignature checks the X-Doppus-Signature header: lowercase hex
// HMAC-SHA256 of the raw body under the configured webhook secret.
func VerifyDoppusSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decodedSig)
}

type doppusPayload struct {
	Transaction string `json:"transaction"`
	Status      struct {
		Code string `json:"code"`
		Date string `json:"date"`
	} `json:"status"`
	Customer struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"customer"`
	Items []struct {
		Code string `json:"code"`
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"items"`
	Recurrence *struct {
		Number int `json:"number"`
	} `json:"recurrence"`
}

func parseDoppusEvent(raw []byte, receivedAt time.Time) (*CanonicalEvent, error) {
	var p doppusPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, normErr(SourceDoppus, "invalid json: %v", err)
	}

	var eventType string
	switch strings.ToLower(strings.TrimSpace(p.Status.Code)) {
	case doppusStatusApproved:
		eventType = EventPurchaseApproved
		// Doppus reports recurring charges with the same status code as the
		// first sale; the recurrence counter distinguishes them.
		if p.Recurrence != nil && p.Recurrence.Number > 1 {
			eventType = EventRenewal
		}
	case doppusStatusRenewed:
		eventType = EventRenewal
	case doppusStatusRefunded:
		eventType = EventRefund
	case doppusStatusCanceled, "cancelled":
		eventType = EventCancellation
	case "":
		return nil, normErr(SourceDoppus, "missing status code")
	default:
		return nil, normErr(SourceDoppus, "unsupported status %q", p.Status.Code)
	}

	transactionID := strings.TrimSpace(p.Transaction)
	if transactionID == "" {
		return nil, normErr(SourceDoppus, "missing transaction identifier")
	}

	email := strings.ToLower(strings.TrimSpace(p.Customer.Email))
	if email == "" {
		return nil, normErr(SourceDoppus, "missing customer email")
	}

	productID := ""
	for _, item := range p.Items {
		if code := strings.TrimSpace(item.Code); code != "" {
			productID = code
			break
		}
	}
	if productID == "" {
		return nil, normErr(SourceDoppus, "missing product code")
	}

	occurredAt := receivedAt
	if d := strings.TrimSpace(p.Status.Date); d != "" {
		if t, err := time.Parse(doppusDateLayout, d); err == nil {
			occurredAt = t.UTC()
		}
	}

	return &CanonicalEvent{
		EventType:     eventType,
		Source:        SourceDoppus,
		TransactionID: transactionID,
		UserEmail:     email,
		UserName:      strings.TrimSpace(p.Customer.Name),
		ProductID:     productID,
		OccurredAt:    occurredAt,
	}, nil
}
