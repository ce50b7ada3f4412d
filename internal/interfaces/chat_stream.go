package interfaces

// ConnState is the connection state of a streaming chat session
type ConnState string

const (
	ConnIdle       ConnState = "idle"
	ConnConnecting ConnState = "connecting"
	ConnOpen       ConnState = "open"
	ConnClosed     ConnState = "closed"
	ConnErrored    ConnState = "errored"
)

// Fragment is one incremental chunk of assistant-generated text
// delivered over the streaming session.
type Fragment struct {
	ConversationID     string `json:"conversation_id"`
	AssistantMessageID string `json:"assistant_message_id"`
	Text               string `json:"text"`
}

// StateChange is the payload of EventChatState events
type StateChange struct {
	ConversationID string    `json:"conversation_id"`
	State          ConnState `json:"state"`
	// Err carries the transport error detail for ConnErrored
	Err string `json:"err,omitempty"`
}

// StreamHandle exposes the observable side of one live session
type StreamHandle interface {
	// ConversationID identifies the session's conversation
	ConversationID() string

	// State returns the current connection state
	State() ConnState

	// Ready returns a channel closed when the session reaches ConnOpen.
	// Callers awaiting readiness before sending use this, not polling.
	Ready() <-chan struct{}

	// Streaming reports whether the assistant is currently producing
	// output. This flag, not message count, drives typing indicators.
	Streaming() bool
}
