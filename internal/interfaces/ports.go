package interfaces

import "context"

// SecretStore resolves secret references (e.g. "tenants/acme/VERIFY_TOKEN")
// to plaintext values.
type SecretStore interface {
	GetSecret(ctx context.Context, ref string) (string, error)
}

// ProviderRegistry is the persistent set of senders known to be providers.
// Add must be atomic add-if-absent so concurrent detections never lose an
// entry; implementations scope entries by tenant.
type ProviderRegistry interface {
	Load(ctx context.Context, tenantKey string) (map[string]struct{}, error)
	Add(ctx context.Context, tenantKey string, senders ...string) error
}
