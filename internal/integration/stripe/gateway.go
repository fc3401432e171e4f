package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v82"
)

// Gateway is the narrow surface of the billing provider the engine consumes:
// subscription read/update, schedule create/retrieve/update/release, price
// read/create, invoice create/finalize/pay, and webhook verification.
// Identifiers and amounts are provider-native (minor currency units, Unix
// timestamps).
type Gateway interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	UpdateSubscription(ctx context.Context, subscriptionID string, params *stripe.SubscriptionUpdateParams) (*stripe.Subscription, error)

	GetPrice(ctx context.Context, priceID string) (*stripe.Price, error)
	CreatePrice(ctx context.Context, params *stripe.PriceCreateParams) (*stripe.Price, error)

	CreateSchedule(ctx context.Context, fromSubscriptionID string) (*stripe.SubscriptionSchedule, error)
	GetSchedule(ctx context.Context, scheduleID string) (*stripe.SubscriptionSchedule, error)
	UpdateSchedule(ctx context.Context, scheduleID string, params *stripe.SubscriptionScheduleUpdateParams) (*stripe.SubscriptionSchedule, error)
	ReleaseSchedule(ctx context.Context, scheduleID string) (*stripe.SubscriptionSchedule, error)

	CreateInvoice(ctx context.Context, params *stripe.InvoiceCreateParams) (*stripe.Invoice, error)
	FinalizeInvoice(ctx context.Context, invoiceID string) (*stripe.Invoice, error)
	PayInvoice(ctx context.Context, invoiceID string) (*stripe.Invoice, error)

	// VerifyWebhookEvent checks the cryptographic signature and parses the
	// event. Every fact the reconciler acts on comes from the verified payload,
	// never from request metadata.
	VerifyWebhookEvent(payload []byte, signature string) (*stripe.Event, error)
}
