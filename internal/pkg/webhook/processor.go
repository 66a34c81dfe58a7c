package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/autoarte/AutoArte/app/models"
	"github.com/autoarte/AutoArte/internal/pkg/payments"
	"github.com/autoarte/AutoArte/internal/pkg/subscription"
)

// EventStore persists the write-ahead record of a delivery.
type EventStore interface {
	PersistEvent(ctx context.Context, ev *models.WebhookEvent) error
}

// Reconciler applies one canonical event to subscription state.
type Reconciler interface {
	Reconcile(ctx context.Context, ev *payments.CanonicalEvent) (*subscription.Result, error)
}

// AuditRecorder appends one processing outcome to the audit log.
type AuditRecorder interface {
	Record(ctx context.Context, entry *models.WebhookAuditEntry) error
}

// Result tells the controller what to answer the provider. Retryable is
// true only for transient store failures, where a non-2xx status solicits
// a redelivery.
type Result struct {
	HTTPStatus int
	Outcome    string
	Reason     string
	EventUUID  string
}

// Processor runs the post-authentication pipeline for one delivery:
// write-ahead persist, normalize, reconcile, audit. Authentication stays in
// the controllers because it needs the provider-specific headers.
type Processor struct {
	events     EventStore
	reconciler Reconciler
	audit      AuditRecorder
	now        func() time.Time
}

func NewProcessor(events EventStore, reconciler Reconciler, audit AuditRecorder) *Processor {
	return &Processor{events: events, reconciler: reconciler, audit: audit, now: time.Now}
}

// Process handles one authenticated delivery body. Malformed payloads,
// duplicates, quarantines and apply errors all come back as 200 results so
// the provider stops redelivering; only a persistence failure is answered
// with a retryable status.
func (p *Processor) Process(ctx context.Context, source string, body []byte, sourceIP string) *Result {
	receivedAt := p.now()
	record := &models.WebhookEvent{
		UUID:       uuid.NewString(),
		Source:     source,
		RawPayload: string(body),
		SourceIP:   sourceIP,
		ReceivedAt: receivedAt,
	}
	if err := p.events.PersistEvent(ctx, record); err != nil {
		log.Errorf("[Webhook] persisting %s delivery failed: %v", source, err)
		return &Result{
			HTTPStatus: http.StatusServiceUnavailable,
			Outcome:    models.AuditErrorRetry,
			Reason:     "event store unavailable",
		}
	}

	ev, err := payments.Normalize(source, body, receivedAt)
	if err != nil {
		var ne *payments.NormalizationError
		if errors.As(err, &ne) {
			p.record(ctx, &models.WebhookAuditEntry{
				WebhookEventID: &record.ID,
				Source:         source,
				Status:         models.AuditRejectedMalformed,
				Message:        ne.Reason,
			})
			return &Result{
				HTTPStatus: http.StatusOK,
				Outcome:    models.AuditRejectedMalformed,
				Reason:     ne.Reason,
				EventUUID:  record.UUID,
			}
		}
		log.Errorf("[Webhook] normalizing %s delivery failed: %v", source, err)
		return &Result{
			HTTPStatus: http.StatusServiceUnavailable,
			Outcome:    models.AuditErrorRetry,
			Reason:     err.Error(),
			EventUUID:  record.UUID,
		}
	}

	res, err := p.reconciler.Reconcile(ctx, ev)
	if err != nil {
		log.Errorf("[Webhook] reconciling %s %s failed: %v", source, ev.TransactionID, err)
		p.record(ctx, &models.WebhookAuditEntry{
			WebhookEventID: &record.ID,
			Source:         source,
			EventType:      ev.EventType,
			Status:         models.AuditErrorRetry,
			TransactionID:  ev.TransactionID,
			UserEmail:      ev.UserEmail,
			Message:        err.Error(),
		})
		return &Result{
			HTTPStatus: http.StatusServiceUnavailable,
			Outcome:    models.AuditErrorRetry,
			Reason:     err.Error(),
			EventUUID:  record.UUID,
		}
	}

	p.record(ctx, &models.WebhookAuditEntry{
		WebhookEventID: &record.ID,
		Source:         source,
		EventType:      ev.EventType,
		Status:         res.Outcome,
		TransactionID:  ev.TransactionID,
		UserEmail:      ev.UserEmail,
		Message:        auditMessage(res),
	})
	return &Result{
		HTTPStatus: http.StatusOK,
		Outcome:    res.Outcome,
		Reason:     res.Reason,
		EventUUID:  record.UUID,
	}
}

func (p *Processor) record(ctx context.Context, entry *models.WebhookAuditEntry) {
	// The audit log is observational. Losing an entry must not turn a
	// terminal outcome into a provider retry.
	if err := p.audit.Record(ctx, entry); err != nil {
		log.Errorf("[Webhook] audit write failed for %s/%s: %v", entry.Source, entry.TransactionID, err)
	}
}

func auditMessage(res *subscription.Result) string {
	switch res.Outcome {
	case models.AuditDuplicate:
		if res.PriorOutcome != "" {
			return fmt.Sprintf("already handled with outcome %s", res.PriorOutcome)
		}
		return "already handled"
	case models.AuditProcessed:
		if res.Previous != nil && res.New != nil {
			return fmt.Sprintf("access %s -> %s, plan %s -> %s",
				res.Previous.AccessLevel, res.New.AccessLevel,
				res.Previous.PlanType, res.New.PlanType)
		}
		return ""
	default:
		return res.Reason
	}
}
