package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/logger"
	"github.com/ManuelReschke/PayFox/internal/pkg/paypal"
	"github.com/ManuelReschke/PayFox/internal/pkg/statistics"
)

// RateLimiter admits or denies a request from one source address.
type RateLimiter interface {
	Allow(ctx context.Context, sourceKey string) bool
}

// SignatureVerifier authenticates a webhook delivery with the provider.
type SignatureVerifier interface {
	VerifyWebhookSignature(ctx context.Context, rawBody []byte, h paypal.VerificationHeaders) bool
}

// PaymentRecorder persists one accepted sale.
type PaymentRecorder interface {
	RecordSale(ctx context.Context, sale *paypal.SaleNotification) (*models.Payment, error)
}

// StatsEngine derives the rolling snapshot and runs retention cleanup.
type StatsEngine interface {
	ComputeAndCleanup(ctx context.Context, now time.Time) (statistics.Snapshot, error)
}

// NotifyEnqueuer schedules the best-effort alert after persistence.
type NotifyEnqueuer interface {
	Enqueue(ctx context.Context, payment models.Payment, snap statistics.Snapshot) error
}

// WebhookController sequences one ingestion flow per inbound request:
// rate limit, signature, payload validation, persist, stats, notify.
// All collaborators are injected; the controller owns no ambient state.
type WebhookController struct {
	limiter  RateLimiter
	verifier SignatureVerifier
	payments PaymentRecorder
	stats    StatsEngine
	notify   NotifyEnqueuer
}

func NewWebhookController(
	limiter RateLimiter,
	verifier SignatureVerifier,
	payments PaymentRecorder,
	stats StatsEngine,
	notify NotifyEnqueuer,
) *WebhookController {
	return &WebhookController{
		limiter:  limiter,
		verifier: verifier,
		payments: payments,
		stats:    stats,
		notify:   notify,
	}
}

// HandlePayPalWebhook processes one notification. The provider only
// distinguishes retry (5xx, 429) from do-not-retry (2xx, 4xx); every exit
// below keeps that boundary intact.
func (wc *WebhookController) HandlePayPalWebhook(c *fiber.Ctx) error {
	ctx := c.UserContext()
	rawBody := append([]byte(nil), c.BodyRaw()...)

	if !wc.limiter.Allow(ctx, c.IP()) {
		return respond(c, fiber.StatusTooManyRequests, "Too many requests")
	}

	headers := paypal.VerificationHeaders{
		TransmissionID:   strings.TrimSpace(c.Get(paypal.HeaderTransmissionID)),
		TransmissionTime: strings.TrimSpace(c.Get(paypal.HeaderTransmissionTime)),
		CertURL:          strings.TrimSpace(c.Get(paypal.HeaderCertURL)),
		AuthAlgo:         strings.TrimSpace(c.Get(paypal.HeaderAuthAlgo)),
		TransmissionSig:  strings.TrimSpace(c.Get(paypal.HeaderTransmissionSig)),
	}
	if !wc.verifier.VerifyWebhookSignature(ctx, rawBody, headers) {
		return respond(c, fiber.StatusUnauthorized, "Invalid webhook signature")
	}

	event, err := paypal.ParseWebhookEvent(rawBody)
	if err != nil {
		return respond(c, fiber.StatusBadRequest, "Invalid webhook payload")
	}
	if event.EventType != paypal.EventPaymentSaleCompleted {
		// Recognized but irrelevant. Acknowledge so the provider stops
		// resending; nothing is stored.
		return respond(c, fiber.StatusOK, "Event acknowledged")
	}

	sale, err := event.SaleNotification()
	if err != nil {
		return respond(c, fiber.StatusBadRequest, "Invalid payment data")
	}

	payment, err := wc.payments.RecordSale(ctx, sale)
	if err != nil {
		logger.L().Error("payment persistence failed",
			zap.String("payment_id", sale.PaymentID),
			zap.Error(err))
		return respond(c, fiber.StatusInternalServerError, "Internal server error")
	}

	// The payment row exists from here on. A 5xx now would make the
	// provider resend and duplicate it, so the remaining steps degrade to
	// logs instead of failing the request.
	snap, err := wc.stats.ComputeAndCleanup(ctx, time.Now().UTC())
	if err != nil {
		logger.L().Error("stats computation failed",
			zap.String("payment_id", payment.PaymentID),
			zap.Error(err))
	}

	if err := wc.notify.Enqueue(ctx, *payment, snap); err != nil {
		logger.L().Warn("notification enqueue failed",
			zap.String("payment_id", payment.PaymentID),
			zap.Error(err))
	}

	return respond(c, fiber.StatusOK, "Payment processed successfully")
}

func respond(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  status,
		"message": message,
	})
}
