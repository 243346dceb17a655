package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// FileProviderRegistry keeps the provider blacklist in one JSON file per
// tenant ({"providers": [sorted senders]}). Meant for local runs without a
// database; a process-level mutex serializes the read-modify-write in Add,
// which is only safe within a single process.
type FileProviderRegistry struct {
	dataDir string
	mu      sync.Mutex
}

type providersFile struct {
	Providers interface{} `json:"providers"`
}

func NewFileProviderRegistry(dataDir string) *FileProviderRegistry {
	return &FileProviderRegistry{dataDir: dataDir}
}

func (r *FileProviderRegistry) path(tenantKey string) string {
	return filepath.Join(r.dataDir, fmt.Sprintf("providers_%s.json", tenantKey))
}

// Load reads the persisted set. A missing, unreadable or malformed file
// degrades to an empty set: the webhook must keep answering Meta even when
// local state is broken.
func (r *FileProviderRegistry) Load(_ context.Context, tenantKey string) (map[string]struct{}, error) {
	providers := make(map[string]struct{})

	data, err := os.ReadFile(r.path(tenantKey))
	if os.IsNotExist(err) {
		return providers, nil
	}
	if err != nil {
		log.Error().Err(err).Str("tenant", tenantKey).Msg("Providers blacklist is unreadable. Resetting.")
		return providers, nil
	}

	var parsed providersFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		log.Error().Err(err).Str("tenant", tenantKey).Msg("Providers blacklist is not valid JSON. Resetting.")
		return providers, nil
	}

	list, ok := parsed.Providers.([]interface{})
	if !ok {
		log.Warn().Str("tenant", tenantKey).Msg("Providers blacklist has unexpected format. Resetting.")
		return providers, nil
	}

	for _, entry := range list {
		providers[fmt.Sprintf("%v", entry)] = struct{}{}
	}
	return providers, nil
}

// Save persists the set in sorted order, creating the data directory if
// needed. Saving the result of Load writes an identical file.
func (r *FileProviderRegistry) Save(_ context.Context, tenantKey string, providers map[string]struct{}) error {
	if err := os.MkdirAll(r.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	sorted := make([]string, 0, len(providers))
	for sender := range providers {
		sorted = append(sorted, sender)
	}
	sort.Strings(sorted)

	data, err := json.MarshalIndent(map[string][]string{"providers": sorted}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path(tenantKey), data, 0o644)
}

// Add merges the new senders into the persisted set under the registry
// mutex, so two in-process requests cannot lose each other's additions.
func (r *FileProviderRegistry) Add(ctx context.Context, tenantKey string, senders ...string) error {
	if len(senders) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	providers, err := r.Load(ctx, tenantKey)
	if err != nil {
		return err
	}
	for _, sender := range senders {
		providers[sender] = struct{}{}
	}
	return r.Save(ctx, tenantKey, providers)
}
