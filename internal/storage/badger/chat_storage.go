package badger

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lectio/internal/interfaces"
	"github.com/ternarybob/lectio/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ChatStorage implements the ChatStorage interface for Badger
type ChatStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	// seq orders messages within the process; persisted on each message
	// so transcripts sort stably across restarts
	seq atomic.Int64
}

// NewChatStorage creates a new ChatStorage instance
func NewChatStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ChatStorage {
	s := &ChatStorage{
		db:     db,
		logger: logger,
	}
	s.seq.Store(time.Now().UnixNano())
	return s
}

func messageKey(conversationID, messageID string) string {
	return conversationID + "/" + messageID
}

// SaveConversation persists a conversation record
func (s *ChatStorage) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == "" {
		return fmt.Errorf("%w: conversation id is required", interfaces.ErrValidation)
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(conv.ID, conv); err != nil {
		return fmt.Errorf("%w: failed to save conversation %s: %v", interfaces.ErrStorage, conv.ID, err)
	}
	return nil
}

// GetConversation retrieves a conversation by id
func (s *ChatStorage) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.Store().Get(id, &conv)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get conversation %s: %v", interfaces.ErrStorage, id, err)
	}
	return &conv, nil
}

// ListConversations returns all conversations, most recent first
func (s *ChatStorage) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := s.db.Store().Find(&convs, badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list conversations: %v", interfaces.ErrStorage, err)
	}
	return convs, nil
}

// DeleteConversation removes a conversation and its transcript
func (s *ChatStorage) DeleteConversation(ctx context.Context, id string) error {
	if err := s.db.Store().DeleteMatching(&models.Message{}, badgerhold.Where("ConversationID").Eq(id).Index("ConversationID")); err != nil {
		return fmt.Errorf("%w: failed to delete transcript for %s: %v", interfaces.ErrStorage, id, err)
	}
	err := s.db.Store().Delete(id, &models.Conversation{})
	if err == badgerhold.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: failed to delete conversation %s: %v", interfaces.ErrStorage, id, err)
	}
	return nil
}

// AppendMessage persists a new transcript entry
func (s *ChatStorage) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" || msg.ConversationID == "" {
		return fmt.Errorf("%w: message requires id and conversation id", interfaces.ErrValidation)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if msg.Seq == 0 {
		msg.Seq = s.seq.Add(1)
	}

	key := messageKey(msg.ConversationID, msg.ID)
	if err := s.db.Store().Upsert(key, msg); err != nil {
		return fmt.Errorf("%w: failed to append message %s: %v", interfaces.ErrStorage, key, err)
	}
	return nil
}

// AppendMessageText appends a fragment to an existing message's text,
// returning ErrMessageNotFound when no such message exists. Used
// exclusively by the stream session manager for assistant messages
// under active streaming.
func (s *ChatStorage) AppendMessageText(ctx context.Context, conversationID, messageID, delta string) error {
	key := messageKey(conversationID, messageID)

	var msg models.Message
	err := s.db.Store().Get(key, &msg)
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrMessageNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: failed to load message %s: %v", interfaces.ErrStorage, key, err)
	}

	msg.Text += delta
	if err := s.db.Store().Upsert(key, &msg); err != nil {
		return fmt.Errorf("%w: failed to update message %s: %v", interfaces.ErrStorage, key, err)
	}
	return nil
}

// GetMessage retrieves one transcript entry
func (s *ChatStorage) GetMessage(ctx context.Context, conversationID, messageID string) (*models.Message, error) {
	var msg models.Message
	err := s.db.Store().Get(messageKey(conversationID, messageID), &msg)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get message: %v", interfaces.ErrStorage, err)
	}
	return &msg, nil
}

// ListMessages returns a conversation's transcript in append order
func (s *ChatStorage) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.Store().Find(&msgs, badgerhold.Where("ConversationID").Eq(conversationID).Index("ConversationID").SortBy("Seq"))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list messages for %s: %v", interfaces.ErrStorage, conversationID, err)
	}
	return msgs, nil
}
