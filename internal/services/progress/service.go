package progress

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lectio/internal/interfaces"
	"github.com/ternarybob/lectio/internal/models"
)

const kvKeyStudyTime = "study_time_seconds"

// Service computes dashboard statistics and tracks accumulated study
// time. Stats are derived from current store state on every call; no
// running totals are maintained.
type Service struct {
	quizzes interfaces.QuizStorage
	answers interfaces.AnswerStorage
	kv      interfaces.KeyValueStorage
	logger  arbor.ILogger
}

// NewService creates a new progress service
func NewService(
	quizzes interfaces.QuizStorage,
	answers interfaces.AnswerStorage,
	kv interfaces.KeyValueStorage,
	logger arbor.ILogger,
) *Service {
	return &Service{
		quizzes: quizzes,
		answers: answers,
		kv:      kv,
		logger:  logger,
	}
}

// ComputeDashboard aggregates quiz and attempt state into dashboard
// stats. Sources whose records fail to load are skipped with a warning
// rather than failing the whole aggregation.
func (s *Service) ComputeDashboard(ctx context.Context) (*models.DashboardStats, error) {
	quizzes, err := s.quizzes.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.DashboardStats{
		PerQuizSummaries: make([]models.QuizSummary, 0, len(quizzes)),
	}

	var totalCorrect, totalAnswered int
	for _, quiz := range quizzes {
		summary := models.QuizSummary{
			SourceID:      quiz.SourceID,
			Title:         quiz.Title,
			QuestionCount: len(quiz.Questions),
		}
		stats.TotalQuestions += len(quiz.Questions)

		score, err := s.quizzes.GetScore(ctx, quiz.SourceID)
		switch {
		case errors.Is(err, interfaces.ErrScoreNotFound):
			// quiz exists but no attempt yet
		case err != nil:
			s.logger.Warn().
				Str("source_id", quiz.SourceID).
				Err(err).
				Msg("Skipping source with unreadable score")
			continue
		default:
			summary.Attempted = true
			summary.CorrectCount = score.CorrectCount
			stats.QuizzesTaken++
			totalCorrect += score.CorrectCount
			totalAnswered += score.TotalCount

			topics, err := s.weakTopics(ctx, &quiz)
			if err != nil {
				s.logger.Warn().
					Str("source_id", quiz.SourceID).
					Err(err).
					Msg("Failed to derive weak topics")
			} else {
				stats.WeakTopics = append(stats.WeakTopics, topics...)
			}
		}

		stats.PerQuizSummaries = append(stats.PerQuizSummaries, summary)
	}

	if totalAnswered > 0 {
		stats.OverallAccuracyPercent = float64(totalCorrect) / float64(totalAnswered) * 100
	}

	seconds, err := s.StudyTime(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read study time")
	} else {
		stats.StudyTimeSeconds = seconds
	}

	return stats, nil
}

// AddStudyTime adds elapsed seconds to the persistent accumulator.
// Non-positive deltas are ignored.
func (s *Service) AddStudyTime(ctx context.Context, seconds int64) error {
	if seconds <= 0 {
		return nil
	}
	current, err := s.StudyTime(ctx)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, kvKeyStudyTime, strconv.FormatInt(current+seconds, 10))
}

// StudyTime returns the accumulated study time in seconds
func (s *Service) StudyTime(ctx context.Context) (int64, error) {
	raw, err := s.kv.Get(ctx, kvKeyStudyTime)
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: corrupt study time value %q", interfaces.ErrStorage, raw)
	}
	return seconds, nil
}

// weakTopics returns the prompts of every question answered incorrectly
// in the quiz's latest attempt, in quiz question order
func (s *Service) weakTopics(ctx context.Context, quiz *models.Quiz) ([]string, error) {
	records, err := s.answers.ListBySource(ctx, quiz.SourceID)
	if err != nil {
		return nil, err
	}

	incorrect := make(map[string]bool, len(records))
	for _, record := range records {
		if !record.IsCorrect {
			incorrect[record.QuestionID] = true
		}
	}

	var topics []string
	for _, q := range quiz.Questions {
		if incorrect[q.ID] && q.Prompt != "" {
			topics = append(topics, q.Prompt)
		}
	}
	return topics, nil
}
