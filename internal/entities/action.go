package entities

// Next-stage tags consumed by the downstream orchestration services.
const (
	NextAwaitIntent   = "await_intent"
	NextDelegateToLLM = "delegate_to_llm"
)

// Action is an outbound instruction produced by the conversation router and
// consumed by the dispatcher. Context carries the tenant's master prompt for
// actions delegated to the LLM orchestrator.
type Action struct {
	To      string `json:"to"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Next    string `json:"next"`
	Context string `json:"context,omitempty"`
}
