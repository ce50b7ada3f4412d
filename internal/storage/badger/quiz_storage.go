package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lectio/internal/interfaces"
	"github.com/ternarybob/lectio/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// QuizStorage implements the QuizStorage interface for Badger.
// Quizzes and scores are keyed by source id: at most one of each per
// source, regeneration and resubmission replace the prior record.
type QuizStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewQuizStorage creates a new QuizStorage instance
func NewQuizStorage(db *BadgerDB, logger arbor.ILogger) interfaces.QuizStorage {
	return &QuizStorage{
		db:     db,
		logger: logger,
	}
}

// SaveQuiz persists a quiz keyed by its source id, replacing any prior
// quiz for that source
func (s *QuizStorage) SaveQuiz(ctx context.Context, quiz *models.Quiz) error {
	if quiz.SourceID == "" {
		return fmt.Errorf("%w: quiz source id is required", interfaces.ErrValidation)
	}
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(quiz.SourceID, quiz); err != nil {
		return fmt.Errorf("%w: failed to save quiz for %s: %v", interfaces.ErrStorage, quiz.SourceID, err)
	}

	s.logger.Debug().Str("source_id", quiz.SourceID).Int("questions", len(quiz.Questions)).Msg("Quiz saved")
	return nil
}

// GetQuiz retrieves the quiz for a source
func (s *QuizStorage) GetQuiz(ctx context.Context, sourceID string) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.db.Store().Get(sourceID, &quiz)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get quiz for %s: %v", interfaces.ErrStorage, sourceID, err)
	}
	return &quiz, nil
}

// DeleteQuiz removes the quiz for a source. Missing quiz is a no-op.
func (s *QuizStorage) DeleteQuiz(ctx context.Context, sourceID string) error {
	err := s.db.Store().Delete(sourceID, &models.Quiz{})
	if err == badgerhold.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: failed to delete quiz for %s: %v", interfaces.ErrStorage, sourceID, err)
	}
	return nil
}

// ListQuizzes returns all stored quizzes. This is the explicit listing
// API the aggregation layer scans; nothing depends on key prefixes.
func (s *QuizStorage) ListQuizzes(ctx context.Context) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := s.db.Store().Find(&quizzes, badgerhold.Where("SourceID").Ne("").SortBy("CreatedAt").Reverse())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list quizzes: %v", interfaces.ErrStorage, err)
	}
	return quizzes, nil
}

// SaveScore persists the aggregate score for a source's latest attempt
func (s *QuizStorage) SaveScore(ctx context.Context, score *models.Score) error {
	if score.SourceID == "" {
		return fmt.Errorf("%w: score source id is required", interfaces.ErrValidation)
	}
	if score.SubmittedAt.IsZero() {
		score.SubmittedAt = time.Now()
	}

	if err := s.db.Store().Upsert(score.SourceID, score); err != nil {
		return fmt.Errorf("%w: failed to save score for %s: %v", interfaces.ErrStorage, score.SourceID, err)
	}
	return nil
}

// GetScore retrieves the persisted score for a source
func (s *QuizStorage) GetScore(ctx context.Context, sourceID string) (*models.Score, error) {
	var score models.Score
	err := s.db.Store().Get(sourceID, &score)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrScoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get score for %s: %v", interfaces.ErrStorage, sourceID, err)
	}
	return &score, nil
}

// DeleteScore removes the persisted score for a source. Missing score
// is a no-op.
func (s *QuizStorage) DeleteScore(ctx context.Context, sourceID string) error {
	err := s.db.Store().Delete(sourceID, &models.Score{})
	if err == badgerhold.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: failed to delete score for %s: %v", interfaces.ErrStorage, sourceID, err)
	}
	return nil
}
