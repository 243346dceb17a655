package entities

// TenantSecrets holds references into the secret store, never plaintext values.
type TenantSecrets struct {
	MetaToken     string `json:"meta_token"`
	VerifyToken   string `json:"verify_token"`
	MetaAppSecret string `json:"meta_app_secret"`
}

type Tenant struct {
	Key       string        `json:"key"`
	PhoneID   string        `json:"phone_id"`
	Secrets   TenantSecrets `json:"secrets"`
	Locale    string        `json:"locale"`
	Persona   string        `json:"persona"`
	Templates []string      `json:"templates"`
}
