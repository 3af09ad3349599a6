package handler

import (
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// RouterDeps holds all dependencies needed to set up routes.
// RateLimiter and AuditSvc may be nil to disable them; an empty
// AllowedOrigins skips CORS. Mode is the gin mode, release by default.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	TokenSvc       ports.TokenService
	RateLimiter    ports.RateLimiter
	AuditSvc       ports.AuditService
	HealthCheckers []ports.HealthChecker
	AllowedOrigins []string
	Mode           string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	mode := deps.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBodyBytes))
	if len(deps.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(deps.AllowedOrigins))
	}

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (pings every configured dependency)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		return middleware.RateLimiter(deps.RateLimiter, group, rules[group], deps.Logger)
	}

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.LedgerSvc)
	adminHandler := NewAdminHandler(deps.LedgerSvc)

	// API v1 routes
	wallets := r.Group("/api/v1/wallets", jwtAuth)
	{
		wallets.GET("/me", rl(middleware.GroupWalletRead), walletHandler.GetMyWallet)
		wallets.POST("/me/redeem", rl(middleware.GroupWalletRedeem), walletHandler.Redeem)
	}

	admin := wallets.Group("", middleware.RequireAdmin())
	{
		admin.POST("/grant", rl(middleware.GroupWalletGrant), adminHandler.Grant)
		admin.GET("/admin/lookup", rl(middleware.GroupWalletLookup), adminHandler.Lookup)
	}

	return r
}
