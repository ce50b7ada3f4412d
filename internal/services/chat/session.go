package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lectio/internal/common"
	"github.com/ternarybob/lectio/internal/interfaces"
	"github.com/ternarybob/lectio/internal/models"
)

// sendFailureText is appended as an assistant message when a queued
// send cannot be delivered, so the transcript explains the silence.
const sendFailureText = "Sorry, something went wrong sending your message. Please try again."

type pendingSend struct {
	text string
}

// Session is one live streaming connection for a conversation. It moves
// Idle -> Connecting -> Open and ends in Closed (deliberate teardown) or
// Errored (transport failure). Errored sessions can reconnect; queued
// sends survive the gap and flush once the stream is open again.
type Session struct {
	conversationID string
	client         interfaces.GenerationClient
	chats          interfaces.ChatStorage
	events         interfaces.EventService
	logger         arbor.ILogger

	// streamClient carries no total timeout: the stream stays open for
	// the life of the session
	streamClient *http.Client

	ctx    context.Context
	cancel context.CancelFunc

	queue chan pendingSend

	mu           sync.Mutex
	state        interfaces.ConnState
	ready        chan struct{}
	readyClosed  bool
	streaming    bool
	closed       bool
	currentMsgID string
}

var _ interfaces.StreamHandle = (*Session)(nil)

func newSession(
	conversationID string,
	client interfaces.GenerationClient,
	chats interfaces.ChatStorage,
	events interfaces.EventService,
	logger arbor.ILogger,
	queueLimit int,
) *Session {
	if queueLimit <= 0 {
		queueLimit = 32
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		conversationID: conversationID,
		client:         client,
		chats:          chats,
		events:         events,
		logger:         logger,
		streamClient:   &http.Client{},
		ctx:            ctx,
		cancel:         cancel,
		queue:          make(chan pendingSend, queueLimit),
		state:          interfaces.ConnIdle,
		ready:          make(chan struct{}),
	}
}

// start moves the session to Connecting and launches the stream reader
// and the send loop
func (s *Session) start() {
	s.setState(interfaces.ConnConnecting, nil)
	go s.run()
	go s.sendLoop()
}

// ConversationID identifies the session's conversation
func (s *Session) ConversationID() string {
	return s.conversationID
}

// State returns the current connection state
func (s *Session) State() interfaces.ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready returns a channel closed when the session reaches Open. The
// channel is replaced after a transport error, so callers re-fetch it
// per wait rather than caching.
func (s *Session) Ready() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Streaming reports whether the assistant is currently producing output
func (s *Session) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// Send persists the student's message immediately and queues it for
// delivery once the stream is open. The transcript entry appears
// regardless of connection state; only delivery waits for readiness.
func (s *Session) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: session is closed", interfaces.ErrStream)
	}
	s.mu.Unlock()

	student := &models.Message{
		ID:             common.NewMessageID(),
		ConversationID: s.conversationID,
		Sender:         models.SenderStudent,
		Text:           text,
		CreatedAt:      time.Now(),
	}
	if err := s.chats.AppendMessage(ctx, student); err != nil {
		return err
	}

	select {
	case s.queue <- pendingSend{text: text}:
		return nil
	default:
		return fmt.Errorf("%w: send queue is full", interfaces.ErrStream)
	}
}

// Close tears the session down. Idempotent; the context cancels
// immediately so in-flight reads and queued sends stop.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.streaming = false
	s.mu.Unlock()

	s.cancel()
	s.setState(interfaces.ConnClosed, nil)
	return nil
}

// Reconnect restarts the stream after a transport error. Sends queued
// while the session was errored remain queued and flush on Open. No-op
// while the session is connecting or already open. The check and the
// transition happen under one lock hold so racing calls cannot each
// launch a reader.
func (s *Session) Reconnect() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: session is closed", interfaces.ErrStream)
	}
	if s.state == interfaces.ConnConnecting || s.state == interfaces.ConnOpen {
		s.mu.Unlock()
		return nil
	}
	s.transitionLocked(interfaces.ConnConnecting)
	s.mu.Unlock()

	s.publishState(interfaces.ConnConnecting, nil)
	go s.run()
	return nil
}

func (s *Session) run() {
	err := s.consume()

	s.mu.Lock()
	closed := s.closed
	s.streaming = false
	s.mu.Unlock()

	if closed || errors.Is(err, context.Canceled) {
		s.setState(interfaces.ConnClosed, nil)
		return
	}
	if err == nil {
		err = fmt.Errorf("%w: stream ended unexpectedly", interfaces.ErrStream)
	}
	s.logger.Warn().
		Str("conversation_id", s.conversationID).
		Err(err).
		Msg("Chat stream terminated")
	s.setState(interfaces.ConnErrored, err)
}

func (s *Session) consume() error {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.client.StreamURL(s.conversationID), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrStream, err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrStream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: stream returned status %d", interfaces.ErrStream, resp.StatusCode)
	}

	s.setState(interfaces.ConnOpen, nil)
	s.logger.Debug().
		Str("conversation_id", s.conversationID).
		Msg("Chat stream open")

	return readEvents(resp.Body, func(event sseEvent) error {
		switch event.name {
		case "chunk":
			s.handleChunk(event.data)
		case "done":
			s.finishStreaming()
		default:
			// unknown event names are ignored
		}
		return nil
	})
}

// handleChunk merges an incoming fragment into the assistant message it
// belongs to and fans it out on the event bus. Fragments for the same
// assistantMessageId grow one transcript entry; a new id starts a new
// entry. Malformed fragments are logged and skipped.
func (s *Session) handleChunk(data []byte) {
	var payload chunkPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.logger.Warn().
			Str("conversation_id", s.conversationID).
			Err(err).
			Msg("Skipping malformed stream fragment")
		return
	}
	if payload.AssistantMessageID == "" {
		return
	}

	s.mu.Lock()
	isNew := s.currentMsgID != payload.AssistantMessageID
	s.currentMsgID = payload.AssistantMessageID
	s.streaming = true
	s.mu.Unlock()

	if isNew {
		// a reconnect can resume a message started before the drop
		if existing, err := s.chats.GetMessage(s.ctx, s.conversationID, payload.AssistantMessageID); err == nil && existing != nil {
			isNew = false
		}
	}

	if isNew {
		msg := &models.Message{
			ID:             payload.AssistantMessageID,
			ConversationID: s.conversationID,
			Sender:         models.SenderAssistant,
			Text:           payload.Text,
			CreatedAt:      time.Now(),
		}
		if err := s.chats.AppendMessage(s.ctx, msg); err != nil {
			s.logger.Warn().
				Str("conversation_id", s.conversationID).
				Err(err).
				Msg("Failed to persist assistant message")
		}
	} else if payload.Text != "" {
		if err := s.chats.AppendMessageText(s.ctx, s.conversationID, payload.AssistantMessageID, payload.Text); err != nil {
			s.logger.Warn().
				Str("conversation_id", s.conversationID).
				Err(err).
				Msg("Failed to append fragment")
		}
	}

	// synchronous fan-out keeps fragments ordered for every subscriber
	s.events.PublishSync(s.ctx, interfaces.Event{
		Type: interfaces.EventChatFragment,
		Payload: interfaces.Fragment{
			ConversationID:     s.conversationID,
			AssistantMessageID: payload.AssistantMessageID,
			Text:               payload.Text,
		},
	})
}

func (s *Session) finishStreaming() {
	s.mu.Lock()
	s.streaming = false
	messageID := s.currentMsgID
	s.currentMsgID = ""
	s.mu.Unlock()

	s.events.Publish(s.ctx, interfaces.Event{
		Type: interfaces.EventChatDone,
		Payload: interfaces.Fragment{
			ConversationID:     s.conversationID,
			AssistantMessageID: messageID,
		},
	})
}

// sendLoop drains the queue, holding each item until the stream is
// open. Delivery failures append a fallback assistant message so the
// student sees the failure in the transcript.
func (s *Session) sendLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case item := <-s.queue:
			if !s.awaitReady() {
				return
			}
			if err := s.client.SendChat(s.ctx, s.conversationID, item.text); err != nil {
				s.logger.Warn().
					Str("conversation_id", s.conversationID).
					Err(err).
					Msg("Chat send failed")
				s.persistSendFailure()
			}
		}
	}
}

// awaitReady blocks until the stream is open, surviving error and
// reconnect cycles. Returns false when the session is closing.
func (s *Session) awaitReady() bool {
	for {
		s.mu.Lock()
		ready := s.ready
		s.mu.Unlock()

		select {
		case <-s.ctx.Done():
			return false
		case <-ready:
		}

		s.mu.Lock()
		open := s.state == interfaces.ConnOpen
		s.mu.Unlock()
		if open {
			return true
		}
	}
}

func (s *Session) persistSendFailure() {
	msg := &models.Message{
		ID:             common.NewMessageID(),
		ConversationID: s.conversationID,
		Sender:         models.SenderAssistant,
		Text:           sendFailureText,
		CreatedAt:      time.Now(),
	}
	if err := s.chats.AppendMessage(context.Background(), msg); err != nil {
		s.logger.Error().
			Str("conversation_id", s.conversationID).
			Err(err).
			Msg("Failed to persist send failure notice")
		return
	}
	s.events.Publish(context.Background(), interfaces.Event{
		Type: interfaces.EventChatFragment,
		Payload: interfaces.Fragment{
			ConversationID:     s.conversationID,
			AssistantMessageID: msg.ID,
			Text:               msg.Text,
		},
	})
}

// setState transitions the connection state and announces the change on
// the event bus. Same-state transitions are suppressed.
func (s *Session) setState(state interfaces.ConnState, cause error) {
	s.mu.Lock()
	changed := s.transitionLocked(state)
	s.mu.Unlock()

	if changed {
		s.publishState(state, cause)
	}
}

// transitionLocked applies a state change under s.mu. The ready channel
// closes on Open and is replaced on Errored so waiters park until the
// next successful connect. Reports whether the state actually changed.
func (s *Session) transitionLocked(state interfaces.ConnState) bool {
	if s.state == state {
		return false
	}
	s.state = state
	switch state {
	case interfaces.ConnOpen:
		close(s.ready)
		s.readyClosed = true
	case interfaces.ConnErrored:
		// wake any waiter parked on the old channel, then park future
		// waiters on a fresh one until the next successful connect
		if !s.readyClosed {
			close(s.ready)
		}
		s.ready = make(chan struct{})
		s.readyClosed = false
	}
	return true
}

func (s *Session) publishState(state interfaces.ConnState, cause error) {
	change := interfaces.StateChange{
		ConversationID: s.conversationID,
		State:          state,
	}
	if cause != nil {
		change.Err = cause.Error()
	}
	s.events.Publish(context.Background(), interfaces.Event{
		Type:    interfaces.EventChatState,
		Payload: change,
	})
}
