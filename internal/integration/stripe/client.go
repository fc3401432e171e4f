package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/willjksn/echoflux/internal/config"
	ierr "github.com/willjksn/echoflux/internal/errors"
	"github.com/willjksn/echoflux/internal/logger"
)

// Client implements Gateway over the Stripe API. It is constructed once at
// process start with the key for the configured mode and injected everywhere;
// nothing reads credentials from environment state ad hoc.
type Client struct {
	sc            *stripe.Client
	webhookSecret string
	logger        *logger.Logger
}

// NewClient creates a new Stripe gateway client
func NewClient(cfg *config.Configuration, logger *logger.Logger) *Client {
	return &Client{
		sc:            stripe.NewClient(cfg.Stripe.SecretKey, nil),
		webhookSecret: cfg.Stripe.WebhookSecret,
		logger:        logger,
	}
}

func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionRetrieveParams{
		Expand: []*string{
			stripe.String("schedule"),
			stripe.String("items.data.price"),
		},
	}

	sub, err := c.sc.V1Subscriptions.Retrieve(ctx, subscriptionID, params)
	if err != nil {
		return nil, c.providerError(err, "failed to retrieve subscription", map[string]any{
			"subscription_id": subscriptionID,
		})
	}
	return sub, nil
}

func (c *Client) UpdateSubscription(ctx context.Context, subscriptionID string, params *stripe.SubscriptionUpdateParams) (*stripe.Subscription, error) {
	sub, err := c.sc.V1Subscriptions.Update(ctx, subscriptionID, params)
	if err != nil {
		return nil, c.providerError(err, "failed to update subscription", map[string]any{
			"subscription_id": subscriptionID,
		})
	}
	return sub, nil
}

func (c *Client) GetPrice(ctx context.Context, priceID string) (*stripe.Price, error) {
	params := &stripe.PriceRetrieveParams{
		Expand: []*string{stripe.String("product")},
	}

	price, err := c.sc.V1Prices.Retrieve(ctx, priceID, params)
	if err != nil {
		return nil, c.providerError(err, "failed to retrieve price", map[string]any{
			"price_id": priceID,
		})
	}
	return price, nil
}

func (c *Client) CreatePrice(ctx context.Context, params *stripe.PriceCreateParams) (*stripe.Price, error) {
	price, err := c.sc.V1Prices.Create(ctx, params)
	if err != nil {
		return nil, c.providerError(err, "failed to create price", nil)
	}
	return price, nil
}

func (c *Client) CreateSchedule(ctx context.Context, fromSubscriptionID string) (*stripe.SubscriptionSchedule, error) {
	params := &stripe.SubscriptionScheduleCreateParams{
		FromSubscription: stripe.String(fromSubscriptionID),
	}

	schedule, err := c.sc.V1SubscriptionSchedules.Create(ctx, params)
	if err != nil {
		return nil, c.providerError(err, "failed to create subscription schedule", map[string]any{
			"subscription_id": fromSubscriptionID,
		})
	}
	return schedule, nil
}

func (c *Client) GetSchedule(ctx context.Context, scheduleID string) (*stripe.SubscriptionSchedule, error) {
	schedule, err := c.sc.V1SubscriptionSchedules.Retrieve(ctx, scheduleID, nil)
	if err != nil {
		return nil, c.providerError(err, "failed to retrieve subscription schedule", map[string]any{
			"schedule_id": scheduleID,
		})
	}
	return schedule, nil
}

func (c *Client) UpdateSchedule(ctx context.Context, scheduleID string, params *stripe.SubscriptionScheduleUpdateParams) (*stripe.SubscriptionSchedule, error) {
	schedule, err := c.sc.V1SubscriptionSchedules.Update(ctx, scheduleID, params)
	if err != nil {
		return nil, c.providerError(err, "failed to update subscription schedule", map[string]any{
			"schedule_id": scheduleID,
		})
	}
	return schedule, nil
}

func (c *Client) ReleaseSchedule(ctx context.Context, scheduleID string) (*stripe.SubscriptionSchedule, error) {
	schedule, err := c.sc.V1SubscriptionSchedules.Release(ctx, scheduleID, &stripe.SubscriptionScheduleReleaseParams{})
	if err != nil {
		return nil, c.providerError(err, "failed to release subscription schedule", map[string]any{
			"schedule_id": scheduleID,
		})
	}
	return schedule, nil
}

func (c *Client) CreateInvoice(ctx context.Context, params *stripe.InvoiceCreateParams) (*stripe.Invoice, error) {
	invoice, err := c.sc.V1Invoices.Create(ctx, params)
	if err != nil {
		return nil, c.providerError(err, "failed to create invoice", nil)
	}
	return invoice, nil
}

func (c *Client) FinalizeInvoice(ctx context.Context, invoiceID string) (*stripe.Invoice, error) {
	invoice, err := c.sc.V1Invoices.FinalizeInvoice(ctx, invoiceID, &stripe.InvoiceFinalizeInvoiceParams{})
	if err != nil {
		return nil, c.providerError(err, "failed to finalize invoice", map[string]any{
			"invoice_id": invoiceID,
		})
	}
	return invoice, nil
}

func (c *Client) PayInvoice(ctx context.Context, invoiceID string) (*stripe.Invoice, error) {
	invoice, err := c.sc.V1Invoices.Pay(ctx, invoiceID, &stripe.InvoicePayParams{})
	if err != nil {
		return nil, c.providerError(err, "failed to pay invoice", map[string]any{
			"invoice_id": invoiceID,
		})
	}
	return invoice, nil
}

func (c *Client) VerifyWebhookEvent(payload []byte, signature string) (*stripe.Event, error) {
	options := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, options)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to verify webhook signature or parse event").
			Mark(ierr.ErrUnauthenticated)
	}
	return &event, nil
}

// providerError wraps a Stripe error, surfacing the provider's own message.
func (c *Client) providerError(err error, msg string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}

	hint := msg
	if stripeErr, ok := err.(*stripe.Error); ok {
		if stripeErr.Msg != "" {
			hint = stripeErr.Msg
		}
		details["stripe_code"] = string(stripeErr.Code)
	}
	details["error"] = err.Error()

	c.logger.Errorw(msg, "error", err)

	return ierr.WithError(err).
		WithMessage(msg).
		WithHint(hint).
		WithReportableDetails(details).
		Mark(ierr.ErrProvider)
}
