package usecases

import "agentes-ia/internal/entities"

// ExtractMessages flattens a webhook payload into (sender, text) pairs,
// preserving the entries -> changes -> messages traversal order. A message
// without a sender comes through with an empty Sender; the router skips it.
func ExtractMessages(payload entities.WebhookPayload) []entities.InboundMessage {
	var results []entities.InboundMessage
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, message := range change.Value.Messages {
				results = append(results, entities.InboundMessage{
					Sender: message.From,
					Text:   extractMessageText(message),
				})
			}
		}
	}
	return results
}

// extractMessageText pulls the routable text out of a message. Only text
// bodies and interactive reply titles carry intent; every other message type
// yields the empty string.
func extractMessageText(message entities.WebhookMessage) string {
	switch message.Type {
	case "text":
		if message.Text != nil {
			return message.Text.Body
		}
	case "interactive":
		if message.Interactive == nil {
			return ""
		}
		switch message.Interactive.Type {
		case "button_reply":
			if message.Interactive.ButtonReply != nil {
				return message.Interactive.ButtonReply.Title
			}
		case "list_reply":
			if message.Interactive.ListReply != nil {
				return message.Interactive.ListReply.Title
			}
		}
	}
	return ""
}
