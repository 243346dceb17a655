package usecases

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"agentes-ia/internal/entities"
	"agentes-ia/internal/interfaces"
)

// Fixed bot copy, kept verbatim from the production persona.
const (
	WelcomePrompt = "¡Hola! Soy BUMI de Viajes Bumeran. ¿Nos visitas como proveedor o como cliente?"
	ClientAck     = "Perfecto, gracias por confirmarlo. Compártenos tu consulta y un asesor te apoyará."
)

// ConfigReader is the slice of the config repository the router needs.
type ConfigReader interface {
	GetConfig(ctx context.Context, tenantKey, key string) (string, error)
}

// ConversationRouter decides the per-sender outcome for each inbound message:
// silence known providers, register newly declared ones, acknowledge clients
// and greet everyone else.
type ConversationRouter struct {
	registry interfaces.ProviderRegistry
	config   ConfigReader
}

func NewConversationRouter(registry interfaces.ProviderRegistry, config ConfigReader) *ConversationRouter {
	return &ConversationRouter{
		registry: registry,
		config:   config,
	}
}

// Route processes a batch of extracted messages and returns the ordered list
// of outbound actions. A malformed message never aborts the batch; it simply
// produces no action. Newly detected providers are registered with a single
// atomic Add after the loop.
func (r *ConversationRouter) Route(ctx context.Context, tenantKey string, msgs []entities.InboundMessage) ([]entities.Action, error) {
	providers, err := r.registry.Load(ctx, tenantKey)
	if err != nil {
		return nil, fmt.Errorf("load provider registry: %w", err)
	}

	masterPrompt := r.masterPrompt(ctx, tenantKey)

	actions := []entities.Action{}
	var newProviders []string

	for _, msg := range msgs {
		if msg.Sender == "" {
			log.Warn().Str("tenant", tenantKey).Msg("Skipping message without sender information.")
			continue
		}

		if _, known := providers[msg.Sender]; known {
			log.Info().
				Str("tenant", tenantKey).
				Str("metric", "incoming_messages_total").
				Str("category", "provider").
				Str("sender", msg.Sender).
				Msg("Ignoring message from provider")
			continue
		}

		if IsProviderIntent(msg.Text) {
			// Silenced from now on; no reply this turn either.
			providers[msg.Sender] = struct{}{}
			newProviders = append(newProviders, msg.Sender)
			log.Info().
				Str("tenant", tenantKey).
				Str("metric", "providers_total").
				Str("sender", msg.Sender).
				Msg("Provider added to blacklist")
			continue
		}

		if IsClientIntent(msg.Text) {
			actions = append(actions, entities.Action{
				To:      msg.Sender,
				Type:    "text",
				Message: ClientAck,
				Next:    entities.NextDelegateToLLM,
				Context: masterPrompt,
			})
			continue
		}

		actions = append(actions, entities.Action{
			To:      msg.Sender,
			Type:    "text",
			Message: WelcomePrompt,
			Next:    entities.NextAwaitIntent,
			Context: masterPrompt,
		})
	}

	if len(newProviders) > 0 {
		if err := r.registry.Add(ctx, tenantKey, newProviders...); err != nil {
			return nil, fmt.Errorf("persist provider registry: %w", err)
		}
	}

	log.Info().
		Str("tenant", tenantKey).
		Str("metric", "incoming_messages_total").
		Int("actions_generated", len(actions)).
		Msg("Incoming message")

	return actions, nil
}

// masterPrompt fetches the tenant's master prompt. A lookup failure only
// costs the context field, never the request.
func (r *ConversationRouter) masterPrompt(ctx context.Context, tenantKey string) string {
	if r.config == nil {
		return ""
	}
	prompt, err := r.config.GetConfig(ctx, tenantKey, "master_prompt")
	if err != nil {
		log.Warn().Err(err).Str("tenant", tenantKey).Msg("Could not load master prompt")
		return ""
	}
	return prompt
}
