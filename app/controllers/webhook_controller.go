package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/autoarte/AutoArte/app/models"
	"github.com/autoarte/AutoArte/internal/pkg/config"
	"github.com/autoarte/AutoArte/internal/pkg/payments"
	"github.com/autoarte/AutoArte/internal/pkg/webhook"
)

// WebhookProcessor runs the post-authentication pipeline for one delivery.
type WebhookProcessor interface {
	Process(ctx context.Context, source string, body []byte, sourceIP string) *webhook.Result
}

// WebhookController terminates the provider webhook endpoints. It only
// authenticates the delivery; everything after the signature check lives in
// the processor.
type WebhookController struct {
	processor WebhookProcessor
	audit     webhook.AuditRecorder
	hotmart   config.HotmartConfig
	doppus    config.DoppusConfig
	timeout   time.Duration
}

func NewWebhookController(processor WebhookProcessor, audit webhook.AuditRecorder, cfg *config.Config) *WebhookController {
	return &WebhookController{
		processor: processor,
		audit:     audit,
		hotmart:   cfg.Hotmart,
		doppus:    cfg.Doppus,
		timeout:   cfg.Webhook.Timeout,
	}
}

// HandleHotmartWebhook godoc
//
//	@Summary	Receive a Hotmart webhook delivery
//	@Tags		webhooks
//	@Accept		json
//	@Produce	json
//	@Param		X-HOTMART-HOTTOK	header	string	true	"Shared webhook token"
//	@Success	200
//	@Failure	401
//	@Failure	503
//	@Router		/webhooks/hotmart [post]
func (wc *WebhookController) HandleHotmartWebhook(c *fiber.Ctx) error {
	if !payments.VerifyHotmartWebhook(c.Get("X-HOTMART-HOTTOK"), wc.hotmart.Hottok) {
		wc.rejectAuth(c, payments.SourceHotmart, "invalid or missing hottok")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_token"})
	}
	return wc.process(c, payments.SourceHotmart)
}

// HandleDoppusWebhook godoc
//
//	@Summary	Receive a Doppus webhook delivery
//	@Tags		webhooks
//	@Accept		json
//	@Produce	json
//	@Param		X-Doppus-Signature	header	string	true	"HMAC-SHA256 of the body, hex"
//	@Success	200
//	@Failure	401
//	@Failure	503
//	@Router		/webhooks/doppus [post]
func (wc *WebhookController) HandleDoppusWebhook(c *fiber.Ctx) error {
	rawBody := c.BodyRaw()
	if !payments.VerifyDoppusSignature(rawBody, c.Get("X-Doppus-Signature"), wc.doppus.WebhookSecret) {
		wc.rejectAuth(c, payments.SourceDoppus, "invalid or missing signature")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}
	return wc.process(c, payments.SourceDoppus)
}

func (wc *WebhookController) process(c *fiber.Ctx, source string) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	ctx, cancel := context.WithTimeout(context.Background(), wc.timeout)
	defer cancel()

	res := wc.processor.Process(ctx, source, rawBody, c.IP())
	if res.HTTPStatus >= fiber.StatusInternalServerError {
		return c.Status(res.HTTPStatus).JSON(fiber.Map{"error": res.Outcome})
	}
	return c.Status(res.HTTPStatus).JSON(fiber.Map{
		"ok":         true,
		"outcome":    res.Outcome,
		"event_uuid": res.EventUUID,
	})
}

// rejectAuth audits a failed signature check. The body is not trusted at
// this point, so no write-ahead event is persisted for it.
func (wc *WebhookController) rejectAuth(c *fiber.Ctx, source, reason string) {
	log.Warnf("[Webhook] rejected %s delivery from %s: %s", source, c.IP(), reason)
	if err := wc.audit.Record(context.Background(), &models.WebhookAuditEntry{
		Source:  source,
		Status:  models.AuditRejectedAuth,
		Message: reason,
	}); err != nil {
		log.Errorf("[Webhook] audit write failed: %v", err)
	}
}
