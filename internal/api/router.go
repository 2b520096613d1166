package api

import (
	"fmt"
	"net"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/shoehub/inventory-system/internal/api/handler"
	"github.com/shoehub/inventory-system/internal/api/middleware"
	"github.com/shoehub/inventory-system/internal/api/view"
	"github.com/shoehub/inventory-system/internal/core/ports"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Auth    ports.AuthService
	Shoes   ports.ShoeService
	Audit   ports.AuditService
	Limiter middleware.Limiter
	Health  map[string]handler.Pinger

	RateLimitPerMinute int
	CookieSecure       bool
	Log                zerolog.Logger

	// TrustedProxies are CIDR ranges allowed to report the client address
	// through X-Forwarded-For. Without any, the TCP peer is the client.
	TrustedProxies []string

	// Registry receives the HTTP request metrics. Nil means the default
	// Prometheus registry, which also serves /metrics.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) (*echo.Echo, error) {
	renderer, err := view.NewRenderer()
	if err != nil {
		return nil, err
	}
	extractor, err := ipExtractor(deps.TrustedProxies)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = extractor
	e.Renderer = renderer
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "inventory",
		Registerer: registerer,
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth, deps.CookieSecure)
	shoeHandler := handler.NewShoeHandler(deps.Shoes, deps.Audit)
	healthHandler := handler.NewHealthHandler(deps.Health)

	// --- Public pages and auth ---
	e.GET("/", authHandler.Home)
	e.GET("/register", authHandler.ShowRegister)
	e.GET("/login", authHandler.ShowLogin)
	e.GET("/logout", authHandler.Logout)
	e.POST("/logout", authHandler.Logout)

	limited := []echo.MiddlewareFunc{}
	if deps.Limiter != nil {
		limited = append(limited, middleware.RateLimit(deps.Limiter, deps.RateLimitPerMinute, deps.Log))
	}
	e.POST("/register", authHandler.Register, limited...)
	e.POST("/login", authHandler.Login, limited...)

	// --- Shoe records (token required) ---
	shoes := e.Group("/shoes", middleware.Auth(deps.Auth))
	shoes.GET("", shoeHandler.List)
	shoes.POST("", shoeHandler.Create)
	shoes.GET("/new", shoeHandler.New)
	shoes.POST("/new", shoeHandler.Create)
	shoes.GET("/:id", shoeHandler.Show)
	shoes.POST("/:id", shoeHandler.Update)
	shoes.PUT("/:id", shoeHandler.Update)
	shoes.DELETE("/:id", shoeHandler.Delete)
	shoes.GET("/:id/edit", shoeHandler.Edit)
	shoes.POST("/:id/delete", shoeHandler.Delete)
	shoes.GET("/:id/history", shoeHandler.History)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e, nil
}

// ipExtractor decides where c.RealIP comes from. Forwarding headers are
// only honoured when the peer sits inside one of the trusted ranges.
func ipExtractor(trusted []string) (echo.IPExtractor, error) {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect(), nil
	}

	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trusted {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
		opts = append(opts, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(opts...), nil
}
