package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/willjksn/echoflux/internal/api"
	v1 "github.com/willjksn/echoflux/internal/api/v1"
	"github.com/willjksn/echoflux/internal/cache"
	"github.com/willjksn/echoflux/internal/config"
	"github.com/willjksn/echoflux/internal/email"
	stripeint "github.com/willjksn/echoflux/internal/integration/stripe"
	"github.com/willjksn/echoflux/internal/logger"
	"github.com/willjksn/echoflux/internal/repository/postgres"
	"github.com/willjksn/echoflux/internal/sentry"
	"github.com/willjksn/echoflux/internal/service"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		sentry.Module(),
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			cache.NewInMemoryCache,
			postgres.NewDB,

			// Billing provider
			stripeint.NewClient,
			provideGateway,

			// Repositories
			postgres.NewEntitlementRepository,
			postgres.NewPriceOverrideRepository,
			postgres.NewNotificationRepository,
			postgres.NewPlanEventRepository,

			// Email
			email.NewSender,
			provideReferralResolver,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewPriceService,
			service.NewSideEffectService,
			service.NewPlanChangeService,
			service.NewWebhookService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideGateway(client *stripeint.Client) stripeint.Gateway {
	return client
}

func provideReferralResolver() service.ReferralResolver {
	return service.NoopReferralResolver{}
}

func provideHandlers(
	cfg *config.Configuration,
	log *logger.Logger,
	gateway stripeint.Gateway,
	sentrySvc *sentry.Service,
	planChangeService service.PlanChangeService,
	webhookService service.WebhookService,
) api.Handlers {
	return api.Handlers{
		Health:  v1.NewHealthHandler(),
		Billing: v1.NewBillingHandler(planChangeService),
		Webhook: v1.NewWebhookHandler(gateway, webhookService, sentrySvc, log),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, cfg, log)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting server", "address", cfg.Server.Address, "mode", cfg.Deployment.Mode)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server")
			return srv.Shutdown(ctx)
		},
	})
}
