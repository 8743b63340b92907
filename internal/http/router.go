package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"prepwise/internal/ratelimit"
)

// RouterConfig agrupa las piezas transversales del router.
type RouterConfig struct {
	CORSOrigins []string
	Limiter     ratelimit.Limiter
	HealthCheck func(ctx context.Context) error
}

// NewRouter configura gin con middlewares y las rutas de /api/v1.
func NewRouter(
	logger *zap.Logger,
	cfg RouterConfig,
	userH *UserHandler,
	interviewH *InterviewHandler,
	guard gin.HandlerFunc,
) *gin.Engine {
	useJSONFieldNames()

	r := gin.New()
	r.Use(
		zapLoggerMiddleware(logger),
		gin.Recovery(),
		metricsMiddleware(),
		corsMiddleware(cfg.CORSOrigins),
		errorMiddleware(logger),
	)

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Prepwise API is running")
	})
	r.GET("/healthz", healthHandler(cfg.HealthCheck))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.NoRoute(func(c *gin.Context) {
		_ = c.Error(errRouteNotFound)
	})

	limited := rateLimitMiddleware(cfg.Limiter, "auth", logger)

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/register", limited, userH.Register)
	auth.POST("/verify-email", limited, userH.VerifyEmail)
	auth.POST("/resend-verification", limited, userH.ResendVerification)
	auth.POST("/login", limited, userH.Login)
	auth.POST("/refresh", userH.RefreshAccessToken)
	auth.POST("/forgot-password", limited, userH.ForgotPassword)
	auth.POST("/reset-password", limited, userH.ResetPassword)
	auth.GET("/current-user", guard, userH.CurrentUser)
	auth.POST("/logout", guard, userH.Logout)

	vapi := api.Group("/vapi")
	vapi.GET("/generate", interviewH.Status)
	vapi.POST("/generate", rateLimitMiddleware(cfg.Limiter, "generate", logger), interviewH.Generate)

	interviews := api.Group("/interviews", guard)
	interviews.GET("", interviewH.List)
	interviews.GET("/:id", interviewH.Get)

	return r
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				respond(c, http.StatusServiceUnavailable, nil, "database unavailable")
				return
			}
		}
		respond(c, http.StatusOK, gin.H{"status": "ok"}, "OK")
	}
}
