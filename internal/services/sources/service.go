package sources

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lectio/internal/common"
	"github.com/ternarybob/lectio/internal/interfaces"
	"github.com/ternarybob/lectio/internal/models"
	"github.com/ternarybob/lectio/internal/services/pdf"
)

const kvKeyActiveSource = "active_source"

// Service is the source registry: the in-memory, persisted catalog of
// uploaded PDFs and the pointer to the currently active one.
//
// Invariant: the active source is always either nil or a member of the
// current list, and every listed source's blob key resolves in blob
// storage.
type Service struct {
	blobs     interfaces.BlobStorage
	quizzes   interfaces.QuizStorage
	answers   interfaces.AnswerStorage
	kv        interfaces.KeyValueStorage
	inspector *pdf.Inspector
	events    interfaces.EventService
	logger    arbor.ILogger

	mu      sync.RWMutex
	list    []models.Source // most recent first
	activeI int             // index into list, -1 for none
}

// NewService creates a new source registry
func NewService(
	blobs interfaces.BlobStorage,
	quizzes interfaces.QuizStorage,
	answers interfaces.AnswerStorage,
	kv interfaces.KeyValueStorage,
	inspector *pdf.Inspector,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		blobs:     blobs,
		quizzes:   quizzes,
		answers:   answers,
		kv:        kv,
		inspector: inspector,
		events:    events,
		logger:    logger,
		activeI:   -1,
	}
}

// AddSource persists the uploaded bytes, registers the source at the
// head of the list (most recent first) and activates it. The blob write
// happens before the registry insert so a listed source can never lack
// its blob.
func (s *Service) AddSource(ctx context.Context, title string, data []byte) (*models.Source, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: source title is required", interfaces.ErrValidation)
	}

	source := models.Source{
		ID:       common.NewSourceID(),
		Title:    title,
		ByteSize: int64(len(data)),
	}
	source.BlobKey = source.ID

	// Page count is best-effort metadata; an unparseable PDF still uploads
	if pageCount, err := s.inspector.PageCount(data); err != nil {
		s.logger.Warn().Err(err).Str("title", title).Msg("Could not read PDF page count")
	} else {
		source.PageCount = pageCount
	}

	if err := s.blobs.Put(ctx, source.BlobKey, title, data); err != nil {
		return nil, err
	}

	stored, err := s.blobs.Get(ctx, source.BlobKey)
	if err != nil {
		return nil, err
	}
	source.CreatedAt = stored.SavedAt

	s.mu.Lock()
	s.list = append([]models.Source{source}, s.list...)
	s.activeI = 0
	s.mu.Unlock()

	if err := s.kv.Set(ctx, kvKeyActiveSource, source.ID); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist active source id")
	}

	s.events.Publish(ctx, interfaces.Event{Type: interfaces.EventSourceChanged, Payload: source.ID})

	s.logger.Info().
		Str("source_id", source.ID).
		Str("title", title).
		Int64("bytes", source.ByteSize).
		Int("pages", source.PageCount).
		Msg("Source added")

	return &source, nil
}

// List returns the sources, most recent first
func (s *Service) List() []models.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Source, len(s.list))
	copy(out, s.list)
	return out
}

// Get returns the source with the given id
func (s *Service) Get(id string) (*models.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.list {
		if s.list[i].ID == id {
			src := s.list[i]
			return &src, nil
		}
	}
	return nil, interfaces.ErrSourceNotFound
}

// Active returns the currently active source, or nil when none is
// selected
func (s *Service) Active() *models.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activeI < 0 || s.activeI >= len(s.list) {
		return nil
	}
	src := s.list[s.activeI]
	return &src
}

// SetActive points the registry at an existing source
func (s *Service) SetActive(ctx context.Context, id string) error {
	s.mu.Lock()
	found := -1
	for i := range s.list {
		if s.list[i].ID == id {
			found = i
			break
		}
	}
	if found < 0 {
		s.mu.Unlock()
		return interfaces.ErrSourceNotFound
	}
	s.activeI = found
	s.mu.Unlock()

	if err := s.kv.Set(ctx, kvKeyActiveSource, id); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist active source id")
	}

	s.events.Publish(ctx, interfaces.Event{Type: interfaces.EventSourceChanged, Payload: id})
	return nil
}

// RemoveSource deletes a source and cascades: blob, quiz, answer
// records and score all go with it. The active pointer is cleared when
// it referenced the removed source; an emptied registry stays empty.
func (s *Service) RemoveSource(ctx context.Context, id string) error {
	s.mu.Lock()
	found := -1
	for i := range s.list {
		if s.list[i].ID == id {
			found = i
			break
		}
	}
	if found < 0 {
		s.mu.Unlock()
		return interfaces.ErrSourceNotFound
	}
	source := s.list[found]
	s.mu.Unlock()

	// Cascade order is the reverse of creation: derived state first,
	// raw bytes last, so a failure partway never orphans a blob-less
	// source record.
	if err := s.answers.DeleteBySource(ctx, id); err != nil {
		return err
	}
	if err := s.quizzes.DeleteScore(ctx, id); err != nil {
		return err
	}
	if err := s.quizzes.DeleteQuiz(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, source.BlobKey); err != nil {
		return err
	}

	s.mu.Lock()
	// Re-find: the list may have shifted while storage deletes ran
	found = -1
	for i := range s.list {
		if s.list[i].ID == id {
			found = i
			break
		}
	}
	if found >= 0 {
		s.list = append(s.list[:found], s.list[found+1:]...)
		switch {
		case s.activeI == found:
			s.activeI = -1
		case s.activeI > found:
			s.activeI--
		}
	}
	cleared := s.activeI < 0
	s.mu.Unlock()

	if cleared {
		if err := s.kv.Delete(ctx, kvKeyActiveSource); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to clear persisted active source id")
		}
		s.events.Publish(ctx, interfaces.Event{Type: interfaces.EventSourceChanged, Payload: ""})
	}

	s.logger.Info().Str("source_id", id).Msg("Source removed with cascade")
	return nil
}

// Reconcile rebuilds the registry from blob storage. Run at startup:
// the persisted store may have been written by a different process
// instance, so the in-memory view is reconstructed rather than trusted.
// The previously active source id is restored when it still resolves,
// else the most recent source is selected, else nothing is.
func (s *Service) Reconcile(ctx context.Context) error {
	blobs, err := s.blobs.List(ctx)
	if err != nil {
		return err
	}

	list := make([]models.Source, 0, len(blobs))
	for _, blob := range blobs {
		list = append(list, models.Source{
			ID:        blob.Key,
			Title:     blob.Name,
			ByteSize:  int64(len(blob.Bytes)),
			BlobKey:   blob.Key,
			CreatedAt: blob.SavedAt,
		})
	}
	// Most recent first
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	activeI := -1
	lastActive, err := s.kv.Get(ctx, kvKeyActiveSource)
	if err == nil {
		for i := range list {
			if list[i].ID == lastActive {
				activeI = i
				break
			}
		}
	}
	if activeI < 0 && len(list) > 0 {
		activeI = 0
	}

	s.mu.Lock()
	s.list = list
	s.activeI = activeI
	s.mu.Unlock()

	s.logger.Info().
		Int("sources", len(list)).
		Str("active", lastActive).
		Msg("Source registry reconciled from blob storage")

	return nil
}
