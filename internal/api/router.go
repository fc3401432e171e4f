package api

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/willjksn/echoflux/internal/api/v1"
	"github.com/willjksn/echoflux/internal/config"
	"github.com/willjksn/echoflux/internal/logger"
	"github.com/willjksn/echoflux/internal/rest/middleware"
)

type Handlers struct {
	Health  *v1.HealthHandler
	Billing *v1.BillingHandler
	Webhook *v1.WebhookHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Health)

	// Webhook deliveries authenticate by signature, not bearer token
	router.POST("/webhooks/billing", handlers.Webhook.HandleBillingWebhook)

	v1Group := router.Group("/v1")
	v1Group.Use(middleware.AuthenticateMiddleware(cfg, log))
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	billing := router.Group("/billing")
	{
		billing.POST("/plan-change", handlers.Billing.ChangePlan)
	}
}
