package models

import "time"

// Sender constants for chat messages
const (
	SenderStudent   = "student"
	SenderAssistant = "assistant"
)

// Conversation is one chat thread with the assistant
type Conversation struct {
	ID        string    `json:"id" badgerhold:"key"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one transcript entry. Append-only, except assistant
// messages under active streaming which grow by appended fragments.
type Message struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id" badgerhold:"index"`
	Sender         string           `json:"sender"`
	Text           string           `json:"text"`
	RelatedVideo   *VideoSuggestion `json:"related_video,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	// Seq orders messages within a conversation; transcript reads sort
	// on it rather than on wall-clock time.
	Seq int64 `json:"seq" badgerhold:"index"`
}

// VideoSuggestion is a structured video recommendation attached to a
// message or returned by the suggestions endpoint.
type VideoSuggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	YouTubeID   string `json:"youtube_id"`
	URL         string `json:"url"`
}
