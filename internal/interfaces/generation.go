package interfaces

import (
	"context"

	"github.com/ternarybob/lectio/internal/models"
)

// GeneratedQuestions is the normalized result of one upload-and-generate
// request against the backend.
type GeneratedQuestions struct {
	JobID     string
	Questions []models.Question
	// Partial is set when the backend flagged a degraded result
	Partial bool
}

// GenerationClient is the outbound contract to the generation backend.
// The backend's question-generation and chat-completion internals are
// external collaborators; only this surface is depended on.
type GenerationClient interface {
	// GenerateQuestions uploads PDF bytes and returns the normalized
	// question set. Non-2xx response bodies surface as the error detail.
	GenerateQuestions(ctx context.Context, name string, data []byte) (*GeneratedQuestions, error)

	// SendChat triggers async generation for a conversation. Content
	// arrives on the stream channel, not in this response.
	SendChat(ctx context.Context, chatID, message string) error

	// SuggestVideos uploads PDF bytes and returns related videos
	SuggestVideos(ctx context.Context, name string, data []byte) ([]models.VideoSuggestion, error)

	// StreamURL returns the push-channel URL for a conversation
	StreamURL(chatID string) string
}
