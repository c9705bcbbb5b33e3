package handler

import (
	"payment-reconciler/config"
	"payment-reconciler/internal/adapter/http/middleware"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WebhookSvc      ports.WebhookService
	ConfirmationSvc ports.ConfirmationService
	HistorySvc      ports.HistoryService
	AuthSvc         ports.AuthService
	TokenSvc        ports.TokenService
	RateLimitStore  middleware.RateLimitStore // nil = rate limiting disabled
	Database        ports.HealthChecker
	HealthCheckers  []ports.HealthChecker
	Server          config.ServerConfig
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(ginMode(deps.Server.Mode))
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.MaxBodySize(1 << 20))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	api := r.Group("/api")

	authHandler := NewAuthHandler(deps.AuthSvc)
	api.POST("/auth/login", rl("auth_login"), authHandler.Login)

	v := NewValidationHandler(deps.WebhookSvc, deps.ConfirmationSvc, deps.HistorySvc, deps.Database, deps.Server, deps.Logger)
	validation := api.Group("/validation")
	{
		validation.POST("/webhook", rl("webhook"), v.Webhook)
		validation.GET("/confirmation", rl("confirmation"), v.Confirmation)
		validation.GET("/test-connection", v.TestConnection)
		validation.GET("/env-check", v.EnvCheck)
		validation.GET("/history/:transactionId", middleware.JWTAuth(deps.TokenSvc, deps.Logger), rl("history"), v.History)
	}

	return r
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}
