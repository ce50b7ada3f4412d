package interfaces

import (
	"context"

	"github.com/ternarybob/lectio/internal/models"
)

// BlobStorage owns raw uploaded file bytes exclusively. Writes are
// durable across restarts. Put overwrites per key; Delete of a missing
// key is a no-op success.
type BlobStorage interface {
	Put(ctx context.Context, key, name string, data []byte) error
	Get(ctx context.Context, key string) (*models.StoredBlob, error)
	List(ctx context.Context) ([]models.StoredBlob, error)
	Delete(ctx context.Context, key string) error
}

// QuizStorage persists at most one quiz per source and the aggregate
// score for the latest attempt.
type QuizStorage interface {
	SaveQuiz(ctx context.Context, quiz *models.Quiz) error
	GetQuiz(ctx context.Context, sourceID string) (*models.Quiz, error)
	DeleteQuiz(ctx context.Context, sourceID string) error
	ListQuizzes(ctx context.Context) ([]models.Quiz, error)

	SaveScore(ctx context.Context, score *models.Score) error
	GetScore(ctx context.Context, sourceID string) (*models.Score, error)
	DeleteScore(ctx context.Context, sourceID string) error
}

// AnswerStorage persists answer records keyed by (sourceID, questionID)
type AnswerStorage interface {
	SaveAnswers(ctx context.Context, records []models.AnswerRecord) error
	ListBySource(ctx context.Context, sourceID string) ([]models.AnswerRecord, error)
	DeleteBySource(ctx context.Context, sourceID string) error
}

// ChatStorage persists conversations and their transcripts
type ChatStorage interface {
	SaveConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error

	AppendMessage(ctx context.Context, msg *models.Message) error
	// AppendMessageText appends a fragment to the message with the given
	// id, returning ErrMessageNotFound when no such message exists.
	AppendMessageText(ctx context.Context, conversationID, messageID, delta string) error
	GetMessage(ctx context.Context, conversationID, messageID string) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
}

// KeyValueStorage holds small app-state strings (last-active source id,
// study-time accumulator)
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// StorageManager provides access to all storage backends over one
// connection
type StorageManager interface {
	BlobStorage() BlobStorage
	QuizStorage() QuizStorage
	AnswerStorage() AnswerStorage
	ChatStorage() ChatStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
