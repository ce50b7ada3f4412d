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

// BlobStorage implements the BlobStorage interface for Badger.
// It is the exclusive owner of raw uploaded file bytes.
type BlobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewBlobStorage creates a new BlobStorage instance
func NewBlobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.BlobStorage {
	return &BlobStorage{
		db:     db,
		logger: logger,
	}
}

// Put stores raw bytes under the given key, overwriting any prior entry
func (s *BlobStorage) Put(ctx context.Context, key, name string, data []byte) error {
	if key == "" {
		return fmt.Errorf("%w: blob key is required", interfaces.ErrValidation)
	}

	blob := models.StoredBlob{
		Key:     key,
		Name:    name,
		Bytes:   data,
		SavedAt: time.Now(),
	}

	if err := s.db.Store().Upsert(key, &blob); err != nil {
		return fmt.Errorf("%w: failed to put blob %s: %v", interfaces.ErrStorage, key, err)
	}

	s.logger.Debug().Str("key", key).Str("name", name).Int("bytes", len(data)).Msg("Blob stored")
	return nil
}

// Get retrieves a stored blob by key
func (s *BlobStorage) Get(ctx context.Context, key string) (*models.StoredBlob, error) {
	var blob models.StoredBlob
	err := s.db.Store().Get(key, &blob)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get blob %s: %v", interfaces.ErrStorage, key, err)
	}
	return &blob, nil
}

// List returns all stored blobs ordered by save time, most recent first
func (s *BlobStorage) List(ctx context.Context) ([]models.StoredBlob, error) {
	var blobs []models.StoredBlob
	err := s.db.Store().Find(&blobs, badgerhold.Where("Key").Ne("").SortBy("SavedAt").Reverse())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list blobs: %v", interfaces.ErrStorage, err)
	}
	return blobs, nil
}

// Delete removes a blob. Deleting a missing key is a no-op success.
func (s *BlobStorage) Delete(ctx context.Context, key string) error {
	err := s.db.Store().Delete(key, &models.StoredBlob{})
	if err == badgerhold.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: failed to delete blob %s: %v", interfaces.ErrStorage, key, err)
	}
	s.logger.Debug().Str("key", key).Msg("Blob deleted")
	return nil
}
