package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lectio/internal/common"
	"github.com/ternarybob/lectio/internal/interfaces"
	"github.com/ternarybob/lectio/internal/models"
)

const defaultConversationTitle = "New conversation"

// Service manages conversations and their streaming sessions. At most
// one live session exists at a time: opening a session for any
// conversation tears down whatever session was live before.
type Service struct {
	client interfaces.GenerationClient
	chats  interfaces.ChatStorage
	events interfaces.EventService
	logger arbor.ILogger
	config common.ChatConfig

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewService creates a new chat service
func NewService(
	client interfaces.GenerationClient,
	chats interfaces.ChatStorage,
	events interfaces.EventService,
	logger arbor.ILogger,
	config common.ChatConfig,
) *Service {
	return &Service{
		client:   client,
		chats:    chats,
		events:   events,
		logger:   logger,
		config:   config,
		sessions: make(map[string]*Session),
	}
}

// CreateConversation starts a new chat thread
func (s *Service) CreateConversation(ctx context.Context, title string) (*models.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultConversationTitle
	}

	conv := &models.Conversation{
		ID:        common.NewConversationID(),
		Title:     title,
		CreatedAt: time.Now(),
	}
	if err := s.chats.SaveConversation(ctx, conv); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("conversation_id", conv.ID).
		Msg("Conversation created")
	return conv, nil
}

// GetConversation retrieves a conversation by id
func (s *Service) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	return s.chats.GetConversation(ctx, id)
}

// ListConversations returns all conversations, most recent first
func (s *Service) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	return s.chats.ListConversations(ctx)
}

// DeleteConversation closes any live session and removes the
// conversation and its transcript
func (s *Service) DeleteConversation(ctx context.Context, id string) error {
	s.closeSession(id)
	return s.chats.DeleteConversation(ctx, id)
}

// Messages returns a conversation's transcript in append order
func (s *Service) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	return s.chats.ListMessages(ctx, conversationID)
}

// SuggestVideos asks the backend for videos related to the given
// source material and appends each suggestion to the conversation as
// an assistant message carrying the structured video reference.
func (s *Service) SuggestVideos(ctx context.Context, conversationID, sourceName string, sourceData []byte) ([]models.VideoSuggestion, error) {
	if _, err := s.chats.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	suggestions, err := s.client.SuggestVideos(ctx, sourceName, sourceData)
	if err != nil {
		return nil, err
	}

	for i := range suggestions {
		suggestion := suggestions[i]
		msg := &models.Message{
			ID:             common.NewMessageID(),
			ConversationID: conversationID,
			Sender:         models.SenderAssistant,
			Text:           suggestion.Title,
			RelatedVideo:   &suggestion,
			CreatedAt:      time.Now(),
		}
		if err := s.chats.AppendMessage(ctx, msg); err != nil {
			return nil, err
		}
	}

	s.logger.Debug().
		Str("conversation_id", conversationID).
		Int("videos", len(suggestions)).
		Msg("Video suggestions added to transcript")
	return suggestions, nil
}

// Open establishes the streaming session for the conversation. Any
// previously live session, for this conversation or another, is torn
// down first so only one connection exists at a time. The returned
// handle reflects the session's connection state as it progresses.
func (s *Service) Open(ctx context.Context, conversationID string) (interfaces.StreamHandle, error) {
	if _, err := s.chats.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	sess := newSession(conversationID, s.client, s.chats, s.events, s.logger, s.config.SendQueueLimit)

	s.mu.Lock()
	for id, prior := range s.sessions {
		prior.Close()
		delete(s.sessions, id)
	}
	s.sessions[conversationID] = sess
	s.mu.Unlock()

	sess.start()
	return sess, nil
}

// Send delivers a student message on the conversation's session,
// opening one if none is live. The student message lands in the
// transcript immediately; delivery waits for the stream to open.
func (s *Service) Send(ctx context.Context, conversationID, text string) error {
	s.mu.Lock()
	sess, ok := s.sessions[conversationID]
	if ok && sess.State() == interfaces.ConnClosed {
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		handle, err := s.Open(ctx, conversationID)
		if err != nil {
			return err
		}
		sess = handle.(*Session)
	}
	return sess.Send(ctx, text)
}

// Session returns the live session handle for a conversation, if any
func (s *Service) Session(conversationID string) (interfaces.StreamHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[conversationID]
	if !ok {
		return nil, false
	}
	return sess, true
}

// Reconnect restarts an errored session's stream. Queued sends are
// preserved and flush once the stream reopens.
func (s *Service) Reconnect(conversationID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[conversationID]
	s.mu.Unlock()
	if !ok {
		return interfaces.ErrConversationNotFound
	}
	return sess.Reconnect()
}

// CloseSession tears down the conversation's session if one is live.
// Closing an absent session is a no-op.
func (s *Service) CloseSession(conversationID string) {
	s.closeSession(conversationID)
}

// CloseAll tears down every live session. Called on shutdown before
// storage closes.
func (s *Service) CloseAll() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}

func (s *Service) closeSession(conversationID string) {
	s.mu.Lock()
	sess, ok := s.sessions[conversationID]
	if ok {
		delete(s.sessions, conversationID)
	}
	s.mu.Unlock()

	if ok {
		sess.Close()
	}
}
