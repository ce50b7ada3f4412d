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

// AnswerStorage implements the AnswerStorage interface for Badger.
// Records are keyed by (source id, question id).
type AnswerStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAnswerStorage creates a new AnswerStorage instance
func NewAnswerStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AnswerStorage {
	return &AnswerStorage{
		db:     db,
		logger: logger,
	}
}

func answerKey(sourceID, questionID string) string {
	return sourceID + "/" + questionID
}

// SaveAnswers persists a full attempt's records. Submission is
// all-or-nothing at the service layer; here each record upserts under
// its composite key.
func (s *AnswerStorage) SaveAnswers(ctx context.Context, records []models.AnswerRecord) error {
	now := time.Now()
	for i := range records {
		record := &records[i]
		if record.SourceID == "" || record.QuestionID == "" {
			return fmt.Errorf("%w: answer record requires source and question ids", interfaces.ErrValidation)
		}
		if record.SubmittedAt.IsZero() {
			record.SubmittedAt = now
		}
		key := answerKey(record.SourceID, record.QuestionID)
		if err := s.db.Store().Upsert(key, record); err != nil {
			return fmt.Errorf("%w: failed to save answer %s: %v", interfaces.ErrStorage, key, err)
		}
	}

	s.logger.Debug().Int("count", len(records)).Msg("Answer records saved")
	return nil
}

// ListBySource returns all answer records for a source
func (s *AnswerStorage) ListBySource(ctx context.Context, sourceID string) ([]models.AnswerRecord, error) {
	var records []models.AnswerRecord
	err := s.db.Store().Find(&records, badgerhold.Where("SourceID").Eq(sourceID).Index("SourceID"))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list answers for %s: %v", interfaces.ErrStorage, sourceID, err)
	}
	return records, nil
}

// DeleteBySource removes all answer records for a source
func (s *AnswerStorage) DeleteBySource(ctx context.Context, sourceID string) error {
	err := s.db.Store().DeleteMatching(&models.AnswerRecord{}, badgerhold.Where("SourceID").Eq(sourceID).Index("SourceID"))
	if err != nil {
		return fmt.Errorf("%w: failed to delete answers for %s: %v", interfaces.ErrStorage, sourceID, err)
	}
	return nil
}
