package entities

// Meta Cloud API webhook payload (entry -> changes -> value -> messages).
// Nested structures are optional pointers so a partial payload never panics.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Messages         []WebhookMessage `json:"messages"`
}

type WebhookMessage struct {
	From        string       `json:"from"`
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	Text        *TextBody    `json:"text,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
}

type TextBody struct {
	Body string `json:"body"`
}

type Interactive struct {
	Type        string            `json:"type"`
	ButtonReply *InteractiveReply `json:"button_reply,omitempty"`
	ListReply   *InteractiveReply `json:"list_reply,omitempty"`
}

type InteractiveReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
