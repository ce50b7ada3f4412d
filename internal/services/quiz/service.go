package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lectio/internal/common"
	"github.com/ternarybob/lectio/internal/interfaces"
	"github.com/ternarybob/lectio/internal/models"
)

// Service owns quiz and answer state: generation, lookup, submission
// with score derivation, and attempt clearing.
type Service struct {
	client  interfaces.GenerationClient
	quizzes interfaces.QuizStorage
	answers interfaces.AnswerStorage
	events  interfaces.EventService
	logger  arbor.ILogger

	// inFlight guards per-source generation: a second request for a
	// source that is already generating is rejected, deterministically,
	// rather than racing on whichever response lands last. Different
	// sources generate concurrently.
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewService creates a new quiz service
func NewService(
	client interfaces.GenerationClient,
	quizzes interfaces.QuizStorage,
	answers interfaces.AnswerStorage,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		client:   client,
		quizzes:  quizzes,
		answers:  answers,
		events:   events,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// GenerateQuiz sends the source's bytes to the generation backend,
// normalizes the response and persists it keyed by sourceID, replacing
// any prior quiz for that source. The result is always written under
// the sourceID this call started with — switching the active source
// while generation is in flight never redirects the write.
func (s *Service) GenerateQuiz(ctx context.Context, sourceID, name string, data []byte) (*models.Quiz, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("%w: source id is required", interfaces.ErrValidation)
	}

	s.mu.Lock()
	if _, busy := s.inFlight[sourceID]; busy {
		s.mu.Unlock()
		return nil, interfaces.ErrGenerationInFlight
	}
	s.inFlight[sourceID] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, sourceID)
		s.mu.Unlock()
	}()

	generated, err := s.client.GenerateQuestions(ctx, name, data)
	if err != nil {
		return nil, err
	}

	quiz := &models.Quiz{
		ID:        common.NewQuizID(),
		SourceID:  sourceID,
		Title:     name,
		Questions: generated.Questions,
		Partial:   generated.Partial,
		CreatedAt: time.Now(),
	}

	if err := s.quizzes.SaveQuiz(ctx, quiz); err != nil {
		return nil, err
	}

	// A fresh quiz invalidates any previous attempt for the source
	if err := s.clearAttempt(ctx, sourceID); err != nil {
		s.logger.Warn().Err(err).Str("source_id", sourceID).Msg("Failed to clear prior attempt after regeneration")
	}

	s.events.Publish(ctx, interfaces.Event{Type: interfaces.EventQuizGenerated, Payload: sourceID})

	s.logger.Info().
		Str("source_id", sourceID).
		Int("questions", len(quiz.Questions)).
		Bool("partial", quiz.Partial).
		Msg("Quiz generated")

	return quiz, nil
}

// GetQuiz is a read-only lookup; no network call. Returns nil when no
// quiz exists for the source.
func (s *Service) GetQuiz(ctx context.Context, sourceID string) (*models.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, sourceID)
	if errors.Is(err, interfaces.ErrQuizNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return quiz, nil
}

// SubmitAnswers evaluates one full attempt and persists the records
// and aggregate score. Submission is all-or-nothing per attempt and is
// rejected when records for the source already exist and no explicit
// clear happened.
func (s *Service) SubmitAnswers(ctx context.Context, sourceID string, values map[string]string) (*models.Score, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, sourceID)
	if errors.Is(err, interfaces.ErrQuizNotFound) {
		return nil, fmt.Errorf("%w: no quiz for source %s", interfaces.ErrValidation, sourceID)
	}
	if err != nil {
		return nil, err
	}

	existing, err := s.answers.ListBySource(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, interfaces.ErrAlreadySubmitted
	}

	now := time.Now()
	records := make([]models.AnswerRecord, 0, len(quiz.Questions))
	correct := 0

	// Every question gets a record; an absent submission is simply
	// incorrect, never an error.
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		value := values[q.ID]
		isCorrect, snapshot := evaluate(q, value)
		if isCorrect {
			correct++
		}
		records = append(records, models.AnswerRecord{
			SourceID:              sourceID,
			QuestionID:            q.ID,
			Value:                 value,
			IsCorrect:             isCorrect,
			CorrectAnswerSnapshot: snapshot,
			SubmittedAt:           now,
		})
	}

	if err := s.answers.SaveAnswers(ctx, records); err != nil {
		return nil, err
	}

	score := &models.Score{
		SourceID:     sourceID,
		CorrectCount: correct,
		TotalCount:   len(quiz.Questions),
		SubmittedAt:  now,
	}
	if err := s.quizzes.SaveScore(ctx, score); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("source_id", sourceID).
		Int("correct", correct).
		Int("total", score.TotalCount).
		Msg("Quiz attempt submitted")

	return score, nil
}

// ClearAttempt deletes all answer records and the persisted score for
// the source, enabling resubmission
func (s *Service) ClearAttempt(ctx context.Context, sourceID string) error {
	return s.clearAttempt(ctx, sourceID)
}

func (s *Service) clearAttempt(ctx context.Context, sourceID string) error {
	if err := s.answers.DeleteBySource(ctx, sourceID); err != nil {
		return err
	}
	return s.quizzes.DeleteScore(ctx, sourceID)
}

// ScoreFor returns the persisted score for a source, nil when no
// attempt exists
func (s *Service) ScoreFor(ctx context.Context, sourceID string) (*models.Score, error) {
	score, err := s.quizzes.GetScore(ctx, sourceID)
	if errors.Is(err, interfaces.ErrScoreNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return score, nil
}

// AnswersFor returns the recorded answers for a source's attempt
func (s *Service) AnswersFor(ctx context.Context, sourceID string) ([]models.AnswerRecord, error) {
	return s.answers.ListBySource(ctx, sourceID)
}
