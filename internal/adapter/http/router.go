package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gderossilive/devShopDemo/internal/adapter/http/middleware"
	"github.com/gderossilive/devShopDemo/internal/logging"
	"github.com/gderossilive/devShopDemo/internal/security"
)

type Handlers struct {
	Purchase *PurchaseHandler
	Catalog  *CatalogHandler
	Orders   *OrderHandler
	Token    *TokenHandler
}

type RouterOptions struct {
	// CORSOrigins lists the storefront origins allowed to call the API from a browser.
	CORSOrigins []string
	// TrustedProxies are the addresses or CIDRs whose X-Forwarded-For is
	// believed. Empty means the client IP is always the peer address.
	TrustedProxies  []string
	PurchaseLimiter *middleware.RateLimiter
}

func NewRouter(h Handlers, authz *middleware.Authz, log *slog.Logger, opts RouterOptions) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery(), middleware.MetricsMiddleware(), middleware.Tracing())
	r.Use(middleware.Logging(log))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", IdempotencyKeyHeader, middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader, "Retry-After"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) {
		logging.From(c).Debug("health check")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/token", h.Token.IssueToken)

	v1 := r.Group("/v1")
	{
		catalog := v1.Group("/catalog", authz.Require(security.PermCatalogRead))
		catalog.GET("/featured", h.Catalog.Featured)
		catalog.GET("/categories", h.Catalog.Categories)
		catalog.GET("/products", h.Catalog.Products)
		catalog.GET("/products/:id", h.Catalog.Product)

		v1.POST("/purchases", opts.PurchaseLimiter.Middleware(), authz.Require(security.PermPurchasesWrite), h.Purchase.Purchase)
		v1.GET("/orders/:id", authz.Require(security.PermOrdersRead), h.Orders.GetOrderByID)
	}

	return r, nil
}
