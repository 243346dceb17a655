package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"agentes-ia/internal/entities"
	"agentes-ia/internal/interfaces"
	"agentes-ia/internal/security"
	"agentes-ia/internal/usecases"
)

// TenantStore is the slice of the tenant repository the handlers need.
type TenantStore interface {
	GetByKey(ctx context.Context, key string) (*entities.Tenant, error)
}

// UsageRecorder tracks per-tenant message counters. Optional; counting
// failures never fail a webhook request.
type UsageRecorder interface {
	IncrementReceived(ctx context.Context, tenantKey string) error
	IncrementSent(ctx context.Context, tenantKey string) error
}

// Handler serves the webhook intake pipeline: challenge verification on GET,
// signature-checked message intake on POST.
type Handler struct {
	tenants TenantStore
	secrets interfaces.SecretStore
	router  *usecases.ConversationRouter
	usage   UsageRecorder
}

func NewHandler(tenants TenantStore, secrets interfaces.SecretStore, router *usecases.ConversationRouter, usage UsageRecorder) *Handler {
	return &Handler{
		tenants: tenants,
		secrets: secrets,
		router:  router,
		usage:   usage,
	}
}

func SetupRoutes(r *gin.Engine, h *Handler, adminHandler *AdminHandler, dispatchHandler *DispatchHandler, auth *usecases.AuthUsecase, middleware *Middleware) {
	// Apply Security Middleware
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(1 << 20)) // 1MB max request size; Meta payloads are small
	r.Use(middleware.CORSMiddleware())

	// Health endpoint: always 200, no dependencies
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Meta webhook endpoints (authenticated by verify token / signature)
	r.GET("/webhook/:tenant", h.VerifyWebhook)
	r.POST("/webhook/:tenant", h.ReceiveWebhook)

	// Inter-service endpoints (dispatcher + LLM proxy); the dispatcher
	// rate-limits per tenant internally once the body is parsed.
	r.POST("/send", dispatchHandler.Send)
	r.POST("/nlu/generate", dispatchHandler.Generate)

	// Public Auth Routes
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", func(c *gin.Context) {
			var loginReq struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&loginReq); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			token, err := auth.Login(c.Request.Context(), loginReq.Username, loginReq.Password)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token})
		})

		authGroup.POST("/register", func(c *gin.Context) {
			var regReq struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&regReq); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			if !ValidConfigKey(regReq.Username) || len(regReq.Password) < 6 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid username or password (min 6 chars)"})
				return
			}
			if err := auth.Register(c.Request.Context(), regReq.Username, regReq.Password); err != nil {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusCreated, gin.H{"status": "registered"})
		})
	}

	// Protected Tenant Admin Routes
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(5, 10))
	{
		api.GET("/tenants", adminHandler.ListTenants)
		api.GET("/tenants/:key", adminHandler.GetTenant)
		api.POST("/tenants", adminHandler.CreateTenant)
		api.PUT("/tenants/:key", adminHandler.UpdateTenant)
		api.DELETE("/tenants/:key", adminHandler.DeleteTenant)
		api.PUT("/tenants/:key/prompt", adminHandler.SetMasterPrompt)
		api.GET("/tenants/:key/usage", adminHandler.GetTenantUsage)
	}

	// Admin-only Routes
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired())
	admin.Use(middleware.AdminRequired())
	{
		admin.GET("/stats", adminHandler.GetStats)
	}
}

// VerifyWebhook handles Meta's GET challenge handshake for a tenant.
func (h *Handler) VerifyWebhook(c *gin.Context) {
	ctx := c.Request.Context()
	tenantKey := c.Param("tenant")

	tenant, err := h.tenants.GetByKey(ctx, tenantKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Tenant lookup failed"})
		return
	}
	if tenant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
		return
	}

	verifyToken, err := h.secrets.GetSecret(ctx, tenant.Secrets.VerifyToken)
	if err != nil {
		log.Error().Err(err).Str("tenant", tenantKey).Msg("Could not fetch verify token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Secret lookup failed"})
		return
	}

	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	// Check if a token and mode were sent
	if mode == "" || token == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
		return
	}

	if mode == "subscribe" && token == verifyToken {
		log.Info().Str("tenant", tenantKey).Msg("WEBHOOK_VERIFIED")
		// Respond with the challenge token from the request, verbatim
		c.String(http.StatusOK, challenge)
		return
	}

	c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
}

// ReceiveWebhook handles signed message notifications for a tenant.
func (h *Handler) ReceiveWebhook(c *gin.Context) {
	ctx := c.Request.Context()
	tenantKey := c.Param("tenant")

	tenant, err := h.tenants.GetByKey(ctx, tenantKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Tenant lookup failed"})
		return
	}
	if tenant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
		return
	}

	appSecret, err := h.secrets.GetSecret(ctx, tenant.Secrets.MetaAppSecret)
	if err != nil {
		log.Error().Err(err).Str("tenant", tenantKey).Msg("Could not fetch app secret")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Secret lookup failed"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read body"})
		return
	}

	signature := c.GetHeader("X-Hub-Signature-256")
	if signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing signature"})
		return
	}
	if !security.ValidSignature(body, signature, appSecret) {
		log.Warn().Str("tenant", tenantKey).Msg("Invalid webhook signature")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	// A malformed body after a valid signature degrades to zero messages;
	// failing here would only make Meta retry the same broken payload.
	var payload entities.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn().Err(err).Str("tenant", tenantKey).Msg("Webhook payload is not valid JSON")
	}

	msgs := usecases.ExtractMessages(payload)
	actions, err := h.router.Route(ctx, tenantKey, msgs)
	if err != nil {
		log.Error().Err(err).Str("tenant", tenantKey).Msg("Routing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Routing failed"})
		return
	}

	if h.usage != nil {
		for range msgs {
			if err := h.usage.IncrementReceived(ctx, tenantKey); err != nil {
				log.Warn().Err(err).Str("tenant", tenantKey).Msg("Could not record received message")
				break
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "actions": actions})
}
