package service

import (
	"context"

	"github.com/willjksn/echoflux/internal/config"
	"github.com/willjksn/echoflux/internal/domain/entitlement"
	"github.com/willjksn/echoflux/internal/domain/notification"
	"github.com/willjksn/echoflux/internal/domain/planevent"
	"github.com/willjksn/echoflux/internal/domain/priceoverride"
	"github.com/willjksn/echoflux/internal/email"
	"github.com/willjksn/echoflux/internal/integration/stripe"
	"github.com/willjksn/echoflux/internal/logger"
)

// ReferralResolver reports who referred a user, if anyone. The engine only
// grants rewards; account-level referral bookkeeping lives elsewhere.
type ReferralResolver interface {
	ReferrerOf(ctx context.Context, userID string) (string, error)
}

// NoopReferralResolver is used when no referral program is wired in.
type NoopReferralResolver struct{}

func (NoopReferralResolver) ReferrerOf(_ context.Context, _ string) (string, error) {
	return "", nil
}

// ServiceParams bundles the dependencies shared across billing services.
type ServiceParams struct {
	Config *config.Configuration
	Logger *logger.Logger

	Gateway stripe.Gateway

	EntitlementRepo   entitlement.Repository
	PriceOverrideRepo priceoverride.Repository
	NotificationRepo  notification.Repository
	PlanEventRepo     planevent.Repository

	Email     email.Sender
	Referrals ReferralResolver
}

func NewServiceParams(
	cfg *config.Configuration,
	log *logger.Logger,
	gateway stripe.Gateway,
	entitlementRepo entitlement.Repository,
	priceOverrideRepo priceoverride.Repository,
	notificationRepo notification.Repository,
	planEventRepo planevent.Repository,
	sender email.Sender,
	referrals ReferralResolver,
) ServiceParams {
	return ServiceParams{
		Config:            cfg,
		Logger:            log,
		Gateway:           gateway,
		EntitlementRepo:   entitlementRepo,
		PriceOverrideRepo: priceOverrideRepo,
		NotificationRepo:  notificationRepo,
		PlanEventRepo:     planEventRepo,
		Email:             sender,
		Referrals:         referrals,
	}
}
