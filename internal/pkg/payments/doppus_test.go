package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"
)

func TestVerifyDoppusSignature(t *testing.T) {
	payload := []byte(`{"transaction":"DPS-1"}`)
	secret := "top-secret"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	validSig := hex.EncodeToString(mac.Sum(nil))

	if !VerifyDoppusSignature(payload, validSig, secret) {
		t.Fatalf("expected signature to validate")
	}
	if VerifyDoppusSignature(payload, "deadbeef", secret) {
		t.Fatalf("expected invalid signature to fail")
	}
	if VerifyDoppusSignature(payload, validSig, "") {
		t.Fatalf("expected unconfigured secret to fail closed")
	}
	if VerifyDoppusSignature(payload, "not-hex!!", secret) {
		t.Fatalf("expected non-hex signature to fail")
	}
}

func TestParseDoppusStatuses(t *testing.T) {
	tests := []struct {
		status     string
		recurrence string
		want       string
	}{
		{status: "approved", want: EventPurchaseApproved},
		{status: "approved", recurrence: `"recurrence": {"number": 3},`, want: EventRenewal},
		{status: "renewed", want: EventRenewal},
		{status: "refunded", want: EventRefund},
		{status: "canceled", want: EventCancellation},
		{status: "cancelled", want: EventCancellation},
	}

	for _, tt := range tests {
		raw := []byte(`{
			"transaction": "DPS-42",
			"status": { "code": "` + tt.status + `", "date": "2024-06-01 12:00:00" },
			"customer": { "email": "Cliente@Exemplo.com", "name": "Cliente" },
			` + tt.recurrence + `
			"items": [ { "code": "PKG-AUTO-01", "name": "Pack Premium", "type": "principal" } ]
		}`)
		ev, err := Normalize(SourceDoppus, raw, time.Now())
		if err != nil {
			t.Fatalf("status %q: unexpected error: %v", tt.status, err)
		}
		if ev.EventType != tt.want {
			t.Fatalf("status %q: got %q, want %q", tt.status, ev.EventType, tt.want)
		}
		if ev.UserEmail != "cliente@exemplo.com" {
			t.Fatalf("expected lowercased email, got %q", ev.UserEmail)
		}
		if ev.ProductID != "PKG-AUTO-01" {
			t.Fatalf("unexpected product id %q", ev.ProductID)
		}
	}
}

func TestParseDoppusOccurredAt(t *testing.T) {
	raw := []byte(`{
		"transaction": "DPS-7",
		"status": { "code": "approved", "date": "2024-06-01 12:00:00" },
		"customer": { "email": "a@b.com" },
		"items": [ { "code": "PKG-1" } ]
	}`)

	ev, err := Normalize(SourceDoppus, raw, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if !ev.OccurredAt.Equal(want) {
		t.Fatalf("expected occurredAt %v, got %v", want, ev.OccurredAt)
	}
}

func TestParseDoppusRejectsBrokenPayloads(t *testing.T) {
	cases := map[string][]byte{
		"unknown status": []byte(`{"transaction":"T","status":{"code":"chargeback_open"},"customer":{"email":"a@b.com"},"items":[{"code":"P"}]}`),
		"missing status": []byte(`{"transaction":"T","customer":{"email":"a@b.com"},"items":[{"code":"P"}]}`),
		"missing txn":    []byte(`{"status":{"code":"approved"},"customer":{"email":"a@b.com"},"items":[{"code":"P"}]}`),
		"missing email":  []byte(`{"transaction":"T","status":{"code":"approved"},"items":[{"code":"P"}]}`),
		"no items":       []byte(`{"transaction":"T","status":{"code":"approved"},"customer":{"email":"a@b.com"},"items":[]}`),
	}

	for name, raw := range cases {
		if _, err := Normalize(SourceDoppus, raw, time.Now()); err == nil {
			t.Fatalf("case %q: expected normalization error", name)
		}
	}
}
