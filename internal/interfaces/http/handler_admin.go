package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"agentes-ia/internal/entities"
	"agentes-ia/internal/repository"
)

// SecretWriter is implemented by secret stores that accept new secrets
// (the admin flow provisions one secret per tenant credential).
type SecretWriter interface {
	StoreSecret(ctx context.Context, ref, value string) error
}

// AdminHandler serves the tenant CRUD API and platform statistics.
type AdminHandler struct {
	tenantRepo *repository.TenantRepository
	configRepo *repository.ConfigRepository
	usageRepo  *repository.UsageRepository
	secrets    SecretWriter
	webhookURL string // base URL reported back on tenant creation
}

func NewAdminHandler(tenantRepo *repository.TenantRepository, configRepo *repository.ConfigRepository, usageRepo *repository.UsageRepository, secrets SecretWriter, webhookURL string) *AdminHandler {
	return &AdminHandler{
		tenantRepo: tenantRepo,
		configRepo: configRepo,
		usageRepo:  usageRepo,
		secrets:    secrets,
		webhookURL: webhookURL,
	}
}

func secretRef(tenantKey, name string) string {
	return fmt.Sprintf("tenants/%s/%s", tenantKey, name)
}

// CreateTenant provisions secrets and the tenant record, returning the
// webhook URL to register with Meta.
func (h *AdminHandler) CreateTenant(c *gin.Context) {
	ctx := c.Request.Context()

	var payload struct {
		TenantKey     string   `json:"tenant_key"`
		MetaToken     string   `json:"meta_token"`
		PhoneID       string   `json:"phone_id"`
		VerifyToken   string   `json:"verify_token"`
		MetaAppSecret string   `json:"meta_app_secret"`
		DefaultLang   string   `json:"tenant_default_lang"`
		PersonaName   string   `json:"tenant_persona_name"`
		Templates     []string `json:"tenant_templates"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !ValidTenantKey(payload.TenantKey) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant key"})
		return
	}
	if !ValidPhoneNumber(payload.PhoneID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone id"})
		return
	}
	if payload.MetaToken == "" || payload.VerifyToken == "" || payload.MetaAppSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing tenant secrets"})
		return
	}

	existing, err := h.tenantRepo.GetByKey(ctx, payload.TenantKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Tenant lookup failed"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Tenant already exists"})
		return
	}

	secrets := map[string]string{
		"META_TOKEN":      payload.MetaToken,
		"VERIFY_TOKEN":    payload.VerifyToken,
		"META_APP_SECRET": payload.MetaAppSecret,
	}
	for name, value := range secrets {
		if err := h.secrets.StoreSecret(ctx, secretRef(payload.TenantKey, name), value); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store secrets"})
			return
		}
	}

	tenant := &entities.Tenant{
		Key:     payload.TenantKey,
		PhoneID: payload.PhoneID,
		Secrets: entities.TenantSecrets{
			MetaToken:     secretRef(payload.TenantKey, "META_TOKEN"),
			VerifyToken:   secretRef(payload.TenantKey, "VERIFY_TOKEN"),
			MetaAppSecret: secretRef(payload.TenantKey, "META_APP_SECRET"),
		},
		Locale:    payload.DefaultLang,
		Persona:   payload.PersonaName,
		Templates: payload.Templates,
	}
	if tenant.Locale == "" {
		tenant.Locale = "es"
	}

	if err := h.tenantRepo.Create(ctx, tenant); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tenant"})
		return
	}

	log.Info().Str("tenant", tenant.Key).Msg("Tenant created")
	c.JSON(http.StatusCreated, gin.H{
		"webhook_url": fmt.Sprintf("%s/webhook/%s", h.webhookURL, tenant.Key),
	})
}

func (h *AdminHandler) ListTenants(c *gin.Context) {
	tenants, err := h.tenantRepo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tenants"})
		return
	}
	c.JSON(http.StatusOK, tenants)
}

func (h *AdminHandler) GetTenant(c *gin.Context) {
	tenant, err := h.tenantRepo.GetByKey(c.Request.Context(), c.Param("key"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Tenant lookup failed"})
		return
	}
	if tenant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
		return
	}
	c.JSON(http.StatusOK, tenant)
}

// UpdateTenant changes the mutable tenant fields (phone, locale, persona,
// templates). Secret rotation goes through tenant re-creation.
func (h *AdminHandler) UpdateTenant(c *gin.Context) {
	ctx := c.Request.Context()
	key := c.Param("key")

	tenant, err := h.tenantRepo.GetByKey(ctx, key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Tenant lookup failed"})
		return
	}
	if tenant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
		return
	}

	var payload struct {
		PhoneID   *string  `json:"phone_id"`
		Locale    *string  `json:"locale"`
		Persona   *string  `json:"persona"`
		Templates []string `json:"templates"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if payload.PhoneID != nil {
		if !ValidPhoneNumber(*payload.PhoneID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone id"})
			return
		}
		tenant.PhoneID = *payload.PhoneID
	}
	if payload.Locale != nil {
		tenant.Locale = *payload.Locale
	}
	if payload.Persona != nil {
		tenant.Persona = *payload.Persona
	}
	if payload.Templates != nil {
		tenant.Templates = payload.Templates
	}

	if err := h.tenantRepo.Update(ctx, tenant); err != nil {
		if err == pgx.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tenant"})
		return
	}

	c.JSON(http.StatusOK, tenant)
}

func (h *AdminHandler) DeleteTenant(c *gin.Context) {
	if err := h.tenantRepo.Delete(c.Request.Context(), c.Param("key")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete tenant"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// SetMasterPrompt stores the persona/context string forwarded to the LLM
// orchestrator with every delegated action.
func (h *AdminHandler) SetMasterPrompt(c *gin.Context) {
	ctx := c.Request.Context()
	key := c.Param("key")

	tenant, err := h.tenantRepo.GetByKey(ctx, key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Tenant lookup failed"})
		return
	}
	if tenant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
		return
	}

	var payload struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	prompt := TruncateString(SanitizeString(payload.Prompt), MaxPromptLength)
	if err := h.configRepo.SetConfig(ctx, key, repository.ConfigMasterPrompt, prompt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store prompt"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// GetTenantUsage returns the tenant's message counters for the last 30 days.
func (h *AdminHandler) GetTenantUsage(c *gin.Context) {
	usage, err := h.usageRepo.GetRecentUsage(c.Request.Context(), c.Param("key"), 30)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch usage"})
		return
	}
	c.JSON(http.StatusOK, usage)
}

// GetStats returns platform statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	tenants, err := h.tenantRepo.List(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	sent, received, err := h.usageRepo.GetPlatformTotals(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_tenants":           len(tenants),
		"total_messages_sent":     sent,
		"total_messages_received": received,
	})
}
