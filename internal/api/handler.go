package api

import (
	"context"
	"net/http"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/notify"
	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Diagnostics describes the gateway setup without exposing secrets.
type Diagnostics struct {
	AppIDSet       bool
	SecretKeySet   bool
	PublicBaseURL  string
	Environment    string
	GatewayBaseURL string
	APIVersion     string
	SheetsEnabled  bool
}

// Options configures the router.
type Options struct {
	PublicBaseURL  string
	AllowedOrigins []string
	PaymentDebug   bool
	// PaymentRate and PaymentBurst bound requests per client IP on the
	// shopper-facing payment routes.
	PaymentRate  rate.Limit
	PaymentBurst int
}

// Handler contains HTTP handlers
type Handler struct {
	catalog     *catalog.Catalog
	carts       *service.CartService
	checkout    *service.CheckoutService
	payments    *service.PaymentService
	whatsapp    *notify.WhatsApp
	diagnostics Diagnostics
	readiness   map[string]Pinger
	opts        Options
	logger      *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	cat *catalog.Catalog,
	carts *service.CartService,
	checkout *service.CheckoutService,
	payments *service.PaymentService,
	whatsapp *notify.WhatsApp,
	diagnostics Diagnostics,
	readiness map[string]Pinger,
	opts Options,
) *Handler {
	if opts.PaymentRate == 0 {
		opts.PaymentRate = rate.Limit(5)
	}
	if opts.PaymentBurst == 0 {
		opts.PaymentBurst = 10
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:3000"}
	}
	return &Handler{
		catalog:     cat,
		carts:       carts,
		checkout:    checkout,
		payments:    payments,
		whatsapp:    whatsapp,
		diagnostics: diagnostics,
		readiness:   readiness,
		opts:        opts,
		logger:      util.Named("http"),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(recovery(h.logger))
	router.Use(requestLogger(h.logger))
	router.Use(prometheusMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     h.opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", CartIDHeader},
		ExposeHeaders:    []string{"Content-Length", CartIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/products", h.listProducts)
		api.GET("/products/:id", h.getProduct)
		api.GET("/whatsapp/quick-order", h.quickOrder)
	}

	cart := api.Group("/cart", cartIdentity())
	{
		cart.GET("", h.getCart)
		cart.POST("/items", h.addCartItem)
		cart.PATCH("/items/:id", h.updateCartItem)
		cart.DELETE("/items/:id", h.removeCartItem)
		cart.DELETE("", h.clearCart)
	}

	checkout := api.Group("/checkout", cartIdentity())
	{
		checkout.POST("/quote", h.quote)
		checkout.POST("/cod", h.placeCOD)
	}

	// Gateway deliveries are not rate limited.
	api.POST("/payment/callback", h.paymentCallback)

	limiter := NewRateLimiter(h.opts.PaymentRate, h.opts.PaymentBurst)
	payment := api.Group("/payment", limiter.Middleware())
	{
		payment.POST("/initiate", h.initiatePayment)
		payment.GET("/status", h.paymentStatus)
		if h.opts.PaymentDebug {
			payment.POST("/debug", h.debugPayment)
			payment.GET("/diagnostics", h.paymentDiagnostics)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every backing store
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.readiness))
	ready := true
	for name, p := range h.readiness {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = "unavailable"
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) baseURL(c *gin.Context) string {
	return service.ResolveBaseURL(
		h.opts.PublicBaseURL,
		c.GetHeader("X-Forwarded-Proto"),
		c.GetHeader("X-Forwarded-Host"),
		c.Request.Host,
	)
}
