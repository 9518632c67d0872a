package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cvpro-backend/internal/admins"
	"cvpro-backend/internal/ingest"
	"cvpro-backend/internal/resumes"
	"cvpro-backend/internal/services/health"
	"cvpro-backend/internal/shared/config"
	"cvpro-backend/internal/shared/metrics"
	"cvpro-backend/internal/shared/server/middleware"
	"cvpro-backend/internal/shared/server/respond"
	"cvpro-backend/internal/users"
)

const (
	extractRateGroup = "EXTRACT"
	resetRateGroup   = "RESET"
)

// RouterDeps carries the handlers mounted by NewRouter. Nil handlers are
// skipped.
type RouterDeps struct {
	Config         config.Config
	Tokens         middleware.TokenVerifier
	Health         *health.Service
	IngestHandler  *ingest.Handler
	ResumesHandler *resumes.Handler
	UsersHandler   *users.Handler
	GoogleAuth     *users.GoogleAuth
	AdminsHandler  *admins.Handler
	RateLimiter    *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/health", func(c *gin.Context) {
		status := deps.Health.Check(c.Request.Context())
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})
	r.GET("/metrics", metrics.Handler())

	requireAuth := middleware.RequireAuth(deps.Tokens)

	resume := r.Group("/resume", middleware.OptionalAuth(deps.Tokens))
	if deps.IngestHandler != nil {
		deps.IngestHandler.RegisterRoutes(resume,
			groupRateLimit(deps.RateLimiter, extractRateGroup, deps.Config.ExtractRatePerSec, deps.Config.ExtractRateBurst))
	}
	if deps.ResumesHandler != nil {
		deps.ResumesHandler.RegisterRoutes(resume)
	}

	authGroup := r.Group("/auth")
	if deps.UsersHandler != nil {
		deps.UsersHandler.RegisterRoutes(authGroup, requireAuth,
			groupRateLimit(deps.RateLimiter, resetRateGroup, deps.Config.ResetRatePerSec, deps.Config.ResetRateBurst))
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(authGroup)
	}

	if deps.AdminsHandler != nil {
		deps.AdminsHandler.RegisterRoutes(r.Group("/admins"), requireAuth)
	}

	return r
}

// groupRateLimit limits one route group; a zero rate or burst disables it.
func groupRateLimit(limiter *middleware.RateLimiter, group string, rate float64, burst int) gin.HandlerFunc {
	rules := map[string]middleware.RateLimitRule{}
	if rate > 0 && burst > 0 {
		rules[group] = middleware.RateLimitRule{Rate: rate, Burst: burst}
	}
	return middleware.RateLimit(middleware.RateLimitConfig{
		Rules:        rules,
		DefaultGroup: group,
		Limiter:      limiter,
	})
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8000"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
