package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	// EventChatFragment fires for each incoming assistant text fragment
	EventChatFragment EventType = "chat_fragment"

	// EventChatState fires when a stream session changes connection state
	EventChatState EventType = "chat_state"

	// EventChatDone fires when the assistant finishes producing output
	EventChatDone EventType = "chat_done"

	// EventSourceChanged fires when the active source changes
	EventSourceChanged EventType = "source_changed"

	// EventQuizGenerated fires after a quiz is persisted for a source
	EventQuizGenerated EventType = "quiz_generated"
)

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages the in-process pub/sub bus. Consumers subscribe
// here rather than the producing service mutating any view state.
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Unsubscribe(eventType EventType, handler EventHandler) error

	// Publish delivers the event to subscribers asynchronously
	Publish(ctx context.Context, event Event) error

	// PublishSync delivers the event and waits for all handlers.
	// Fragment delivery uses this to preserve per-message order.
	PublishSync(ctx context.Context, event Event) error
}
