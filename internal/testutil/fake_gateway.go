package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/stripe/stripe-go/v82"
	ierr "github.com/willjksn/echoflux/internal/errors"
)

// FakeGateway is an in-memory stand-in for the billing provider. It applies
// updates to the objects it holds so multi-step flows observe their own
// writes, and records mutating calls for assertions.
type FakeGateway struct {
	mu sync.Mutex

	Subscriptions map[string]*stripe.Subscription
	Prices        map[string]*stripe.Price
	Schedules     map[string]*stripe.SubscriptionSchedule
	Invoices      map[string]*stripe.Invoice

	// Errs injects a failure for the named method
	Errs map[string]error

	// VerifiedEvent is returned by VerifyWebhookEvent when set
	VerifiedEvent *stripe.Event

	UpdateSubscriptionCalls []*stripe.SubscriptionUpdateParams
	UpdateScheduleCalls     map[string]*stripe.SubscriptionScheduleUpdateParams
	CreatedPrices           []*stripe.PriceCreateParams
	ReleasedSchedules       []string
	PaidInvoices            []string

	priceSeq    int
	scheduleSeq int
	invoiceSeq  int
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		Subscriptions:       make(map[string]*stripe.Subscription),
		Prices:              make(map[string]*stripe.Price),
		Schedules:           make(map[string]*stripe.SubscriptionSchedule),
		Invoices:            make(map[string]*stripe.Invoice),
		Errs:                make(map[string]error),
		UpdateScheduleCalls: make(map[string]*stripe.SubscriptionScheduleUpdateParams),
	}
}

// SeedSubscription registers a subscription with a single item on the given
// price and period boundaries.
func (g *FakeGateway) SeedSubscription(subID, customerID, priceID string, periodStart, periodEnd int64) *stripe.Subscription {
	g.mu.Lock()
	defer g.mu.Unlock()

	price := g.Prices[priceID]
	if price == nil {
		price = &stripe.Price{ID: priceID, Currency: stripe.CurrencyUSD}
		g.Prices[priceID] = price
	}

	sub := &stripe.Subscription{
		ID:       subID,
		Status:   stripe.SubscriptionStatusActive,
		Customer: &stripe.Customer{ID: customerID},
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{{
				ID:                 "si_" + subID,
				Price:              price,
				CurrentPeriodStart: periodStart,
				CurrentPeriodEnd:   periodEnd,
			}},
		},
		Metadata: map[string]string{},
	}
	g.Subscriptions[subID] = sub
	return sub
}

// SeedPrice registers a provider price.
func (g *FakeGateway) SeedPrice(priceID, productID string, unitAmount int64) *stripe.Price {
	g.mu.Lock()
	defer g.mu.Unlock()

	price := &stripe.Price{
		ID:         priceID,
		Currency:   stripe.CurrencyUSD,
		UnitAmount: unitAmount,
		Product:    &stripe.Product{ID: productID},
	}
	g.Prices[priceID] = price
	return price
}

func (g *FakeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.Errs["GetSubscription"]; err != nil {
		return nil, err
	}
	sub, ok := g.Subscriptions[subscriptionID]
	if !ok {
		return nil, notFoundErr("subscription", subscriptionID)
	}
	return sub, nil
}

func (g *FakeGateway) UpdateSubscription(ctx context.Context, subscriptionID string, params *stripe.SubscriptionUpdateParams) (*stripe.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.Errs["UpdateSubscription"]; err != nil {
		return nil, err
	}
	sub, ok := g.Subscriptions[subscriptionID]
	if !ok {
		return nil, notFoundErr("subscription", subscriptionID)
	}

	g.UpdateSubscriptionCalls = append(g.UpdateSubscriptionCalls, params)

	if params.CancelAtPeriodEnd != nil {
		sub.CancelAtPeriodEnd = *params.CancelAtPeriodEnd
	}
	for _, item := range params.Items {
		if item.Price == nil {
			continue
		}
		price := g.Prices[*item.Price]
		if price == nil {
			price = &stripe.Price{ID: *item.Price, Currency: stripe.CurrencyUSD}
		}
		sub.Items.Data[0].Price = price
	}
	if params.Metadata != nil {
		sub.Metadata = params.Metadata
	}
	return sub, nil
}

func (g *FakeGateway) GetPrice(ctx context.Context, priceID string) (*stripe.Price, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.Errs["GetPrice"]; err != nil {
		return nil, err
	}
	price, ok := g.Prices[priceID]
	if !ok {
		return nil, notFoundErr("price", priceID)
	}
	return price, nil
}

func (g *FakeGateway) CreatePrice(ctx context.Context, params *stripe.PriceCreateParams) (*stripe.Price, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.Errs["CreatePrice"]; err != nil {
		return nil, err
	}

	g.priceSeq++
	g.CreatedPrices = append(g.CreatedPrices, params)

	price := &stripe.Price{
		ID:       fmt.Sprintf("price_created_%d", g.priceSeq),
		Currency: stripe.CurrencyUSD,
	}
	if params.Currency != nil {
		price.Currency = stripe.Currency(*params.Currency)
	}
	if params.UnitAmount != nil {
		price.UnitAmount = *params.UnitAmount
	}
	if params.Product != nil {
		price.Product = &stripe.Product{ID: *params.Product}
	}
	g.Prices[price.ID] = price
	return price, nil
}

func (g *FakeGateway) CreateSchedule(ctx context.Context, fromSubscriptionID string) (*stripe.SubscriptionSchedule, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.Errs["CreateSchedule"]; err != nil {
		return nil, err
	}
	sub, ok := g.Subscriptions[fromSubscriptionID]
	if !ok {
		return nil, notFoundErr("subscription", fromSubscriptionID)
	}

	g.scheduleSeq++
	item := sub.Items.Data[0]
	sched := &stripe.SubscriptionSchedule{
		ID: fmt.Sprintf("sub_sched_%d", g.scheduleSeq),
		Phases: []*stripe.SubscriptionSchedulePhase{{
			StartDate: item.CurrentPeriodStart,
			EndDate:   item.CurrentPeriodEnd,
			Items: []*stripe.SubscriptionSchedulePhaseItem{{
				Price:    item.Price,
				Quantity: 1,
			}},
		}},
	}
	g.Schedules[sched.ID] = sched
	sub.Schedule = sched
	return sched, nil
}

func (g *FakeGateway) GetSchedule(ctx context.Context, scheduleID string) (*stripe.SubscriptionSchedule, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.Errs["GetSchedule"]; err != nil {
		return nil, err
	}
	sched, ok := g.Schedules[scheduleID]
	if !ok {
		return nil, notFoundErr("subscription schedule", scheduleID)
	}
	return sched, nil
}

func (g *FakeGateway) UpdateSchedule(ctx context.Context, scheduleID string, params *stripe.SubscriptionScheduleUpdateParams) (*stripe.SubscriptionSchedule, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.Errs["UpdateSchedule"]; err != nil {
		return nil, err
	}
	sched, ok := g.Schedules[scheduleID]
	if !ok {
		return nil, notFoundErr("subscription schedule", scheduleID)
	}

	g.UpdateScheduleCalls[scheduleID] = params
	return sched, nil
}

func (g *FakeGateway) ReleaseSchedule(ctx context.Context, scheduleID string) (*stripe.SubscriptionSchedule, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.Errs["ReleaseSchedule"]; err != nil {
		return nil, err
	}
	sched, ok := g.Schedules[scheduleID]
	if !ok {
		return nil, notFoundErr("subscription schedule", scheduleID)
	}

	g.ReleasedSchedules = append(g.ReleasedSchedules, scheduleID)
	delete(g.Schedules, scheduleID)
	for _, sub := range g.Subscriptions {
		if sub.Schedule != nil && sub.Schedule.ID == scheduleID {
			sub.Schedule = nil
		}
	}
	return sched, nil
}

func (g *FakeGateway) CreateInvoice(ctx context.Context, params *stripe.InvoiceCreateParams) (*stripe.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.Errs["CreateInvoice"]; err != nil {
		return nil, err
	}

	g.invoiceSeq++
	inv := &stripe.Invoice{
		ID:        fmt.Sprintf("in_fake_%d", g.invoiceSeq),
		Status:    stripe.InvoiceStatusDraft,
		Currency:  stripe.CurrencyUSD,
		AmountDue: 500,
	}
	if params.Customer != nil {
		inv.Customer = &stripe.Customer{ID: *params.Customer}
	}
	inv.HostedInvoiceURL = "https://pay.invalid/" + inv.ID
	g.Invoices[inv.ID] = inv
	return inv, nil
}

func (g *FakeGateway) FinalizeInvoice(ctx context.Context, invoiceID string) (*stripe.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.Errs["FinalizeInvoice"]; err != nil {
		return nil, err
	}
	inv, ok := g.Invoices[invoiceID]
	if !ok {
		return nil, notFoundErr("invoice", invoiceID)
	}
	inv.Status = stripe.InvoiceStatusOpen
	return inv, nil
}

func (g *FakeGateway) PayInvoice(ctx context.Context, invoiceID string) (*stripe.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.Errs["PayInvoice"]; err != nil {
		return nil, err
	}
	inv, ok := g.Invoices[invoiceID]
	if !ok {
		return nil, notFoundErr("invoice", invoiceID)
	}
	inv.Status = stripe.InvoiceStatusPaid
	g.PaidInvoices = append(g.PaidInvoices, invoiceID)
	return inv, nil
}

func (g *FakeGateway) VerifyWebhookEvent(payload []byte, signature string) (*stripe.Event, error) {
	if err := g.Errs["VerifyWebhookEvent"]; err != nil {
		return nil, err
	}
	if g.VerifiedEvent != nil {
		return g.VerifiedEvent, nil
	}
	return nil, ierr.NewError("no event configured").
		Mark(ierr.ErrUnauthenticated)
}

func notFoundErr(kind, id string) error {
	return ierr.NewError(kind + " not found").
		WithDetail("id", id).
		Mark(ierr.ErrProvider)
}
