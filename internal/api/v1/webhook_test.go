package v1

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/willjksn/echoflux/internal/cache"
	"github.com/willjksn/echoflux/internal/config"
	ierr "github.com/willjksn/echoflux/internal/errors"
	"github.com/willjksn/echoflux/internal/logger"
	"github.com/willjksn/echoflux/internal/sentry"
	"github.com/willjksn/echoflux/internal/service"
	"github.com/willjksn/echoflux/internal/testutil"
)

func newWebhookTestHandler(t *testing.T, gateway *testutil.FakeGateway) *WebhookHandler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.GetDefaultConfig()
	log, err := logger.NewLogger(cfg)
	require.NoError(t, err)

	params := service.ServiceParams{
		Config:            cfg,
		Logger:            log,
		Gateway:           gateway,
		EntitlementRepo:   testutil.NewInMemoryEntitlementStore(),
		PriceOverrideRepo: testutil.NewInMemoryPriceOverrideStore(),
		NotificationRepo:  testutil.NewInMemoryNotificationStore(),
		PlanEventRepo:     testutil.NewInMemoryPlanEventStore(),
		Email:             testutil.NewRecordingEmailSender(),
		Referrals:         service.NoopReferralResolver{},
	}
	prices := service.NewPriceService(params, cache.NewInMemoryCache())
	webhooks := service.NewWebhookService(params, prices, service.NewSideEffectService(params))

	return NewWebhookHandler(gateway, webhooks, sentry.NewSentryService(cfg, log), log)
}

func postWebhook(handler *WebhookHandler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/webhooks/billing", bytes.NewBufferString(body))
	c.Request.Header.Set("Stripe-Signature", "t=1,v1=sig")
	handler.HandleBillingWebhook(c)
	return w
}

func TestWebhookAcksVerifiedEvent(t *testing.T) {
	gateway := testutil.NewFakeGateway()
	gateway.VerifiedEvent = &stripe.Event{
		ID:   "evt_1",
		Type: "ping",
		Data: &stripe.EventData{Raw: []byte("{}")},
	}

	w := postWebhook(newWebhookTestHandler(t, gateway), "{}")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	gateway := testutil.NewFakeGateway()
	gateway.Errs["VerifyWebhookEvent"] = ierr.NewError("signature mismatch").
		Mark(ierr.ErrUnauthenticated)

	w := postWebhook(newWebhookTestHandler(t, gateway), "{}")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookAcksDespiteProcessingFailure(t *testing.T) {
	// a handler error must not trigger provider retries, the event is acked
	// and the failure reported out of band
	gateway := testutil.NewFakeGateway()
	gateway.VerifiedEvent = &stripe.Event{
		ID:   "evt_1",
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: []byte("{")},
	}

	w := postWebhook(newWebhookTestHandler(t, gateway), "{}")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
}
