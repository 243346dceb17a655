package entities

// InboundMessage is a (sender, text) pair flattened out of a webhook payload.
// Created per request, consumed by the router, never persisted.
type InboundMessage struct {
	Sender string
	Text   string
}
