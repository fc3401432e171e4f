package dto

import (
	"time"

	"github.com/shopspring/decimal"
	ierr "github.com/willjksn/echoflux/internal/errors"
	"github.com/willjksn/echoflux/internal/types"
)

// PlanChangeRequest is the body of POST /v1/billing/plan-change
type PlanChangeRequest struct {
	PlanName     types.PlanName     `json:"plan_name" binding:"required"`
	BillingCycle types.BillingCycle `json:"billing_cycle"`
}

func (r *PlanChangeRequest) Validate() error {
	if !r.PlanName.Validate() {
		return ierr.NewError("unsupported plan").
			WithHintf("Plan %s is not offered", r.PlanName).
			WithDetail("plan_name", r.PlanName).
			Mark(ierr.ErrValidation)
	}

	// Cancelling to Free carries no cycle; every other change needs one.
	if r.PlanName == types.PlanFree {
		return nil
	}
	if !r.BillingCycle.Validate() {
		return ierr.NewError("billing cycle is required").
			WithHint("Billing cycle must be monthly or annually").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceSummary reports the proration invoice raised by an upgrade.
type InvoiceSummary struct {
	InvoiceID        string          `json:"invoice_id"`
	AmountDue        decimal.Decimal `json:"amount_due"`
	Currency         string          `json:"currency"`
	HostedInvoiceURL string          `json:"hosted_invoice_url,omitempty"`
	Paid             bool            `json:"paid"`
}

// PlanChangeResponse is returned by the plan-change orchestrator.
type PlanChangeResponse struct {
	Type         types.PlanChangeType `json:"type"`
	Plan         types.PlanName       `json:"plan"`
	BillingCycle types.BillingCycle   `json:"billing_cycle,omitempty"`

	// EffectiveDate is set for deferred outcomes (cancellation, downgrade)
	EffectiveDate *time.Time `json:"effective_date,omitempty"`

	// Invoice is set for immediate (prorated) upgrades
	Invoice *InvoiceSummary `json:"invoice,omitempty"`
}

// WebhookAck is the acknowledgement body for the billing webhook endpoint.
type WebhookAck struct {
	Received bool `json:"received"`
}
