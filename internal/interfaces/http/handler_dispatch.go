package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"agentes-ia/internal/infrastructure"
	"agentes-ia/internal/interfaces"
)

// DispatchHandler serves the inter-service endpoints: outbound message
// dispatch to the Meta Graph API and the LLM proxy.
type DispatchHandler struct {
	tenants TenantStore
	secrets interfaces.SecretStore
	meta    *infrastructure.MetaClient
	llm     *infrastructure.GeminiClient
	usage   UsageRecorder
	limiter *infrastructure.MessageRateLimiter
}

func NewDispatchHandler(tenants TenantStore, secrets interfaces.SecretStore, meta *infrastructure.MetaClient, llm *infrastructure.GeminiClient, usage UsageRecorder, limiter *infrastructure.MessageRateLimiter) *DispatchHandler {
	return &DispatchHandler{
		tenants: tenants,
		secrets: secrets,
		meta:    meta,
		llm:     llm,
		usage:   usage,
		limiter: limiter,
	}
}

// Send delivers an outbound text or template message on behalf of a tenant.
func (h *DispatchHandler) Send(c *gin.Context) {
	ctx := c.Request.Context()

	var payload struct {
		Tenant      string `json:"tenant"`
		PhoneNumber string `json:"phone_number"`
		Message     string `json:"message"`
		MessageType string `json:"message_type"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if payload.MessageType == "" {
		payload.MessageType = "text"
	}
	if payload.Tenant == "" || payload.PhoneNumber == "" || payload.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing tenant, phone_number or message"})
		return
	}

	if h.limiter != nil && !h.limiter.Allow(payload.Tenant) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
		return
	}

	tenant, err := h.tenants.GetByKey(ctx, payload.Tenant)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Tenant lookup failed"})
		return
	}
	if tenant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
		return
	}

	accessToken, err := h.secrets.GetSecret(ctx, tenant.Secrets.MetaToken)
	if err != nil {
		log.Error().Err(err).Str("tenant", tenant.Key).Msg("Could not fetch meta token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Secret lookup failed"})
		return
	}

	message := TruncateString(SanitizeString(payload.Message), MaxMessageLength)

	switch payload.MessageType {
	case "text":
		err = h.meta.SendText(ctx, accessToken, tenant.PhoneID, payload.PhoneNumber, message)
	case "template":
		err = h.meta.SendTemplate(ctx, accessToken, tenant.PhoneID, payload.PhoneNumber, message, tenant.Locale)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported message_type"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("tenant", tenant.Key).Msg("Outbound send failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Send failed"})
		return
	}

	if h.usage != nil {
		if err := h.usage.IncrementSent(ctx, tenant.Key); err != nil {
			log.Warn().Err(err).Str("tenant", tenant.Key).Msg("Could not record sent message")
		}
	}

	log.Info().
		Str("tenant", tenant.Key).
		Str("metric", "outgoing_messages_total").
		Msg("Outgoing message")

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Generate proxies a natural-language request to the language model.
func (h *DispatchHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	var payload struct {
		Tenant string `json:"tenant"`
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if payload.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing prompt"})
		return
	}
	if payload.Model == "" {
		payload.Model = "gemini-1.5-pro"
	}

	response, tokens, err := h.llm.Generate(ctx, payload.Model, payload.Prompt)
	if err != nil {
		log.Error().Err(err).Str("tenant", payload.Tenant).Str("model", payload.Model).Msg("LLM generation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Generation failed"})
		return
	}

	log.Info().
		Str("tenant", payload.Tenant).
		Str("model", payload.Model).
		Str("metric", "llm_tokens_total").
		Int("tokens", tokens).
		Msg("LLM tokens")

	c.JSON(http.StatusOK, gin.H{"response": response})
}
