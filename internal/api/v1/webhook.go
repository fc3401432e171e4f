package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/willjksn/echoflux/internal/api/dto"
	ierr "github.com/willjksn/echoflux/internal/errors"
	"github.com/willjksn/echoflux/internal/integration/stripe"
	"github.com/willjksn/echoflux/internal/logger"
	"github.com/willjksn/echoflux/internal/sentry"
	"github.com/willjksn/echoflux/internal/service"
)

type WebhookHandler struct {
	gateway  stripe.Gateway
	webhooks service.WebhookService
	sentry   *sentry.Service
	logger   *logger.Logger
}

func NewWebhookHandler(gateway stripe.Gateway, webhooks service.WebhookService, sentrySvc *sentry.Service, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{gateway: gateway, webhooks: webhooks, sentry: sentrySvc, logger: log}
}

// HandleBillingWebhook verifies and reconciles a provider event. Only a
// failed signature check produces a non-2xx response; handler errors are
// logged and the delivery acknowledged so the provider does not retry events
// that will never succeed, and replay remains the recovery path.
func (h *WebhookHandler) HandleBillingWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read webhook payload").
			Mark(ierr.ErrValidation))
		return
	}

	event, err := h.gateway.VerifyWebhookEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.logger.Warnw("webhook signature verification failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	if err := h.webhooks.ProcessEvent(c.Request.Context(), event); err != nil {
		// the delivery is acked regardless, so this is the only trace a
		// failed reconciliation leaves
		h.logger.Errorw("webhook processing failed",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		h.sentry.CaptureException(err)
	}

	c.JSON(http.StatusOK, dto.WebhookAck{Received: true})
}
