package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentes-ia/internal/entities"
	"agentes-ia/internal/infrastructure"
	"agentes-ia/internal/repository"
	"agentes-ia/internal/security"
	"agentes-ia/internal/usecases"
)

type fakeTenantStore struct {
	tenants map[string]*entities.Tenant
	err     error
}

func (f *fakeTenantStore) GetByKey(_ context.Context, key string) (*entities.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tenants[key], nil
}

func acmeTenant() *entities.Tenant {
	return &entities.Tenant{
		Key:     "acme",
		PhoneID: "5215550000",
		Secrets: entities.TenantSecrets{
			MetaToken:     "tenants/acme/META_TOKEN",
			VerifyToken:   "tenants/acme/VERIFY_TOKEN",
			MetaAppSecret: "tenants/acme/META_APP_SECRET",
		},
		Locale: "es",
	}
}

// newTestHandler wires a webhook handler against env-resolved secrets and a
// file-backed provider registry rooted in a temp dir.
func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	t.Setenv("TENANTS_ACME_VERIFY_TOKEN", "verify-me")
	t.Setenv("TENANTS_ACME_META_APP_SECRET", "app-secret")

	registry := repository.NewFileProviderRegistry(t.TempDir())
	router := usecases.NewConversationRouter(registry, nil)

	store := &fakeTenantStore{tenants: map[string]*entities.Tenant{"acme": acmeTenant()}}
	return NewHandler(store, infrastructure.NewEnvSecretStore(), router, nil)
}

func newTestEngine(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/webhook/:tenant", h.VerifyWebhook)
	r.POST("/webhook/:tenant", h.ReceiveWebhook)
	return r
}

func TestVerifyWebhookChallenge(t *testing.T) {
	r := newTestEngine(newTestHandler(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook/acme?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=1158201444", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	// The challenge goes back verbatim, not wrapped in JSON.
	assert.Equal(t, "1158201444", w.Body.String())
}

func TestVerifyWebhookWrongToken(t *testing.T) {
	r := newTestEngine(newTestHandler(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook/acme?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=123", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestVerifyWebhookMissingParams(t *testing.T) {
	r := newTestEngine(newTestHandler(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/webhook/acme", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyWebhookUnknownTenant(t *testing.T) {
	r := newTestEngine(newTestHandler(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook/nobody?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=123", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyWebhookTenantLookupError(t *testing.T) {
	t.Setenv("TENANTS_ACME_VERIFY_TOKEN", "verify-me")
	store := &fakeTenantStore{err: errors.New("db down")}
	registry := repository.NewFileProviderRegistry(t.TempDir())
	h := NewHandler(store, infrastructure.NewEnvSecretStore(), usecases.NewConversationRouter(registry, nil), nil)
	r := newTestEngine(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook/acme?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=123", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func webhookBody(t *testing.T, messages ...entities.WebhookMessage) []byte {
	t.Helper()
	payload := entities.WebhookPayload{
		Object: "whatsapp_business_account",
		Entry: []entities.WebhookEntry{{
			Changes: []entities.WebhookChange{{
				Field: "messages",
				Value: entities.WebhookValue{Messages: messages},
			}},
		}},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body
}

func postWebhook(r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/acme", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestReceiveWebhookMissingSignature(t *testing.T) {
	r := newTestEngine(newTestHandler(t))

	w := postWebhook(r, []byte(`{}`), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReceiveWebhookInvalidSignature(t *testing.T) {
	r := newTestEngine(newTestHandler(t))

	body := webhookBody(t)
	w := postWebhook(r, body, security.Sign(body, "not-the-app-secret"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReceiveWebhookUnknownTenant(t *testing.T) {
	r := newTestEngine(newTestHandler(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/nobody", strings.NewReader(`{}`))
	r.ServeHTTP(w, req)

	// Tenant resolution runs before the signature check.
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReceiveWebhookHappyPath(t *testing.T) {
	r := newTestEngine(newTestHandler(t))

	body := webhookBody(t, entities.WebhookMessage{
		From: "5215550001",
		Type: "text",
		Text: &entities.TextBody{Body: "hola"},
	})
	w := postWebhook(r, body, security.Sign(body, "app-secret"))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status  string            `json:"status"`
		Actions []entities.Action `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, "5215550001", resp.Actions[0].To)
	assert.Equal(t, usecases.WelcomePrompt, resp.Actions[0].Message)
	assert.Equal(t, entities.NextAwaitIntent, resp.Actions[0].Next)
}

func TestReceiveWebhookProviderRegistration(t *testing.T) {
	t.Setenv("TENANTS_ACME_VERIFY_TOKEN", "verify-me")
	t.Setenv("TENANTS_ACME_META_APP_SECRET", "app-secret")

	registry := repository.NewFileProviderRegistry(t.TempDir())
	router := usecases.NewConversationRouter(registry, nil)
	store := &fakeTenantStore{tenants: map[string]*entities.Tenant{"acme": acmeTenant()}}
	h := NewHandler(store, infrastructure.NewEnvSecretStore(), router, nil)
	r := newTestEngine(h)

	// First message registers the provider and yields no action.
	body := webhookBody(t, entities.WebhookMessage{
		From: "5215550002",
		Type: "text",
		Text: &entities.TextBody{Body: "buenas, soy proveedor"},
	})
	w := postWebhook(r, body, security.Sign(body, "app-secret"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Actions []entities.Action `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Actions)

	// The same sender stays silenced on the next delivery.
	body = webhookBody(t, entities.WebhookMessage{
		From: "5215550002",
		Type: "text",
		Text: &entities.TextBody{Body: "hola otra vez"},
	})
	w = postWebhook(r, body, security.Sign(body, "app-secret"))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Actions)

	providers, err := registry.Load(context.Background(), "acme")
	require.NoError(t, err)
	assert.Contains(t, providers, "5215550002")
}

func TestReceiveWebhookMalformedBodySucceeds(t *testing.T) {
	r := newTestEngine(newTestHandler(t))

	// A signed but unparseable body still gets a 200 with zero actions,
	// otherwise Meta keeps retrying it.
	body := []byte("this is not json")
	w := postWebhook(r, body, security.Sign(body, "app-secret"))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Status  string            `json:"status"`
		Actions []entities.Action `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Empty(t, resp.Actions)
}

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := newTestHandler(t)
	SetupRoutes(r, h,
		NewAdminHandler(nil, nil, nil, nil, "http://localhost:8080"),
		NewDispatchHandler(nil, nil, nil, nil, nil, nil),
		usecases.NewAuthUsecase(nil, "test-secret"),
		NewMiddleware("test-secret"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := newTestHandler(t)
	SetupRoutes(r, h,
		NewAdminHandler(nil, nil, nil, nil, "http://localhost:8080"),
		NewDispatchHandler(nil, nil, nil, nil, nil, nil),
		usecases.NewAuthUsecase(nil, "test-secret"),
		NewMiddleware("test-secret"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tenants", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tenants", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
