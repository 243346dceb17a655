package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const graphAPIBase = "https://graph.facebook.com/v18.0"

// MetaClient sends outbound messages through the Meta Graph API on behalf of
// a tenant. The access token is resolved per call since each tenant carries
// its own meta_token secret.
type MetaClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewMetaClient() *MetaClient {
	return &MetaClient{
		baseURL:    graphAPIBase,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewMetaClientWithBase is used by tests to point at a stub server.
func NewMetaClientWithBase(baseURL string) *MetaClient {
	c := NewMetaClient()
	c.baseURL = baseURL
	return c
}

// SendText delivers a plain text message from the tenant's phone number.
func (m *MetaClient) SendText(ctx context.Context, accessToken, phoneID, to, body string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text": map[string]string{
			"body": body,
		},
	}
	return m.post(ctx, accessToken, phoneID, payload)
}

// SendTemplate delivers a pre-approved template message.
func (m *MetaClient) SendTemplate(ctx context.Context, accessToken, phoneID, to, templateName, langCode string) error {
	if langCode == "" {
		langCode = "es"
	}
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template": map[string]interface{}{
			"name": templateName,
			"language": map[string]string{
				"code": langCode,
			},
		},
	}
	return m.post(ctx, accessToken, phoneID, payload)
}

func (m *MetaClient) post(ctx context.Context, accessToken, phoneID string, payload map[string]interface{}) error {
	url := fmt.Sprintf("%s/%s/messages", m.baseURL, phoneID)
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("graph api returned %d: %s", resp.StatusCode, body)
	}
	return nil
}
