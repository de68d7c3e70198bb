// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/wheely/go-dealer-assist/internal/config"
	"github.com/wheely/go-dealer-assist/internal/domain"
	"github.com/wheely/go-dealer-assist/internal/http/handlers"
	"github.com/wheely/go-dealer-assist/internal/http/middleware"
	"github.com/wheely/go-dealer-assist/internal/repo"
	"github.com/wheely/go-dealer-assist/internal/services"
)

// The shims below adapt the repository free functions to the consumer-defined
// interfaces the services and handlers declare. This keeps those packages
// decoupled from the concrete repo package while reusing existing functions.

type userRepoShim struct{}

func (userRepoShim) AuthenticateUser(ctx context.Context, db *gorm.DB, username, password string) (*domain.User, error) {
	return repo.AuthenticateUser(ctx, db, username, password)
}

func (userRepoShim) GetUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	return repo.GetUserByUsername(ctx, db, username)
}

func (userRepoShim) GetDealerName(ctx context.Context, db *gorm.DB, dealerID *int) (string, error) {
	return repo.GetDealerName(ctx, db, dealerID)
}

type entityShim struct{}

func (entityShim) ListDealerNames(ctx context.Context, db *gorm.DB) ([]string, error) {
	return repo.ListDealerNames(ctx, db)
}

func (entityShim) ListProductIDs(ctx context.Context, db *gorm.DB) ([]string, error) {
	return repo.ListProductIDs(ctx, db)
}

func (entityShim) ListProductNames(ctx context.Context, db *gorm.DB) ([]string, error) {
	return repo.ListProductNames(ctx, db)
}

func (entityShim) ListWarehouseLocations(ctx context.Context, db *gorm.DB) ([]string, error) {
	return repo.ListWarehouseLocations(ctx, db)
}

type runnerShim struct{}

func (runnerShim) RunSelect(ctx context.Context, db *gorm.DB, query string) ([]string, []repo.Row, error) {
	return repo.RunSelect(ctx, db, query)
}

type vectorShim struct{}

func (vectorShim) ListVectorRecords(ctx context.Context, db *gorm.DB) ([]domain.VectorRecord, error) {
	return repo.ListVectorRecords(ctx, db)
}

type orderShim struct{}

func (orderShim) ResolveProduct(ctx context.Context, db *gorm.DB, text string) (*domain.Product, error) {
	return repo.ResolveProduct(ctx, db, text)
}

func (orderShim) ResolveDealerID(ctx context.Context, db *gorm.DB, name string) (int, error) {
	return repo.ResolveDealerID(ctx, db, name)
}

func (orderShim) ResolveWarehouseID(ctx context.Context, db *gorm.DB, location string) (int, error) {
	return repo.ResolveWarehouseID(ctx, db, location)
}

func (orderShim) PlaceOrder(ctx context.Context, db *gorm.DB, dealerID int, product *domain.Product, warehouseID *int, quantity, salesRepID int) (*domain.Order, error) {
	return repo.PlaceOrder(ctx, db, dealerID, product, warehouseID, quantity, salesRepID)
}

func (orderShim) StockByProduct(ctx context.Context, db *gorm.DB, productID string) ([]repo.StockLevel, error) {
	return repo.StockByProduct(ctx, db, productID)
}

type auditShim struct{}

func (auditShim) AppendConversationLog(ctx context.Context, db *gorm.DB, userID int, dealerID *int, sessionID, userQuery, aiResponse, queryType string) (*domain.ConversationLog, error) {
	return repo.AppendConversationLog(ctx, db, userID, dealerID, sessionID, userQuery, aiResponse, queryType)
}

type receiptShim struct{}

func (receiptShim) GetWebhookReceipt(ctx context.Context, db *gorm.DB, userID int, key string, now time.Time) (*domain.WebhookReceipt, error) {
	return repo.GetWebhookReceipt(ctx, db, userID, key, now)
}

func (receiptShim) CreateWebhookReceipt(ctx context.Context, db *gorm.DB, userID int, key, response string, status int, ttl time.Duration) (*domain.WebhookReceipt, error) {
	return repo.CreateWebhookReceipt(ctx, db, userID, key, response, status, ttl)
}

type historyShim struct{}

func (historyShim) CountOrders(ctx context.Context, db *gorm.DB, dealerID *int) (int64, error) {
	return repo.CountOrders(ctx, db, dealerID)
}

func (historyShim) ListOrdersPage(ctx context.Context, db *gorm.DB, dealerID *int, offset, limit int) ([]domain.Order, error) {
	return repo.ListOrdersPage(ctx, db, dealerID, offset, limit)
}

// Deps are the externally constructed dependencies the router needs: the
// database handle, the oracle clients, and the entity cache (built in cmd so
// it can be warmed before the server accepts traffic).
type Deps struct {
	DB    *gorm.DB
	Chat  services.Generator
	Embed services.Embedder
	Cache *services.EntityCache
}

// NewEntityCache builds the entity cache over the repo free functions. cmd
// calls this before RegisterRoutes so the first refresh happens at startup.
func NewEntityCache(db *gorm.DB) *services.EntityCache {
	return services.NewEntityCache(db, entityShim{})
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API plus the WhatsApp webhook.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	db := deps.DB

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction; dealer parties reach us over
	// WhatsApp, so phone-shaped values must never land in access logs.
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, username, key string, now time.Time) (bool, error) {
			u, err := repo.GetUserByUsername(ctx, db, username)
			if err != nil {
				return false, nil
			}
			rec, err := repo.GetWebhookReceipt(ctx, db, u.UserID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", handlers.HeaderUsername, middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", handlers.HeaderUsername, middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/oracle
	auth := services.NewAuthService(db, userRepoShim{})
	mem := services.NewMemory(cfg.HistorySize)
	sqlSvc := &services.SQLService{DB: db, Oracle: deps.Chat, Runner: runnerShim{}}
	retrieval := &services.RetrievalService{
		DB:        db,
		Repo:      vectorShim{},
		Oracle:    deps.Chat,
		Embedder:  deps.Embed,
		TopK:      cfg.Retrieval.TopK,
		Threshold: cfg.Retrieval.SimilarityThreshold,
	}
	answers := &services.AnswerService{Oracle: deps.Chat, Memory: mem}
	orders := services.NewOrderService(db, orderShim{})
	cache := deps.Cache
	if cache == nil {
		cache = NewEntityCache(db)
	}
	assistant := &services.Assistant{
		DB:        db,
		Cache:     cache,
		Memory:    mem,
		SQL:       sqlSvc,
		Retrieval: retrieval,
		Answers:   answers,
		Orders:    orders,
		Oracle:    deps.Chat,
		Audit:     auditShim{},
	}

	h := handlers.New(db, auth, assistant, orders, receiptShim{}, historyShim{}, cfg.WebhookUser, cfg.IdempotencyTTL)

	// Twilio posts here; outside the versioned API on purpose so the webhook
	// URL stays stable across API versions.
	r.POST("/whatsapp", h.WhatsApp)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		api.POST("/login", h.Login)
		api.POST("/query", h.Query)
		api.GET("/orders", h.ListOrders)
		api.GET("/stock/:product_id", h.Stock)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
