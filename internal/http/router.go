package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/credhub/internal/config"
	"github.com/geocoder89/credhub/internal/http/handlers"
	"github.com/geocoder89/credhub/internal/http/middlewares"
	"github.com/geocoder89/credhub/internal/observability"
	"github.com/geocoder89/credhub/internal/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "credhub"

type Deps struct {
	Log         *slog.Logger
	Cfg         config.Config
	Accounts    handlers.AccountService
	Tokens      middlewares.TokenVerifier
	Cookies     session.Policy
	Prom        *observability.Prom
	Gatherer    prometheus.Gatherer
	ReadyChecks map[string]handlers.Check

	// ShuttingDown, when set, flips /readyz to 503 during graceful shutdown.
	ShuttingDown func() bool
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	if len(d.Cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.Cfg.CORSAllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
			ExposeHeaders:    []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(middlewares.MaxBodyBytes(d.Cfg.MaxBodyBytes))

	// health
	h := handlers.NewHealthHandler(d.ReadyChecks, d.ShuttingDown)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	authHandler := handlers.NewAuthHandler(d.Accounts, d.Cookies, d.Log)
	sessions := middlewares.NewSessionMiddleware(d.Tokens, d.Cookies.Name, d.Log)

	api := r.Group("/api")
	api.Use(middlewares.OriginGuard(d.Cfg.CORSAllowedOrigins))
	{
		api.POST("/signup", authHandler.SignUp)
		api.POST("/login", authHandler.Login)
		api.POST("/logout", authHandler.Logout)

		authed := api.Group("/auth")
		authed.Use(sessions.RequireSession())
		authed.GET("/me", authHandler.Me)
	}

	return r
}
