package models

import (
	"fmt"
	"time"
)

// Source represents a user-uploaded PDF tracked by the registry,
// independent of its raw bytes. Identity (ID) and storage locator
// (BlobKey) may coincide but are distinct concepts.
type Source struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ByteSize  int64     `json:"byte_size"`
	PageCount int       `json:"page_count,omitempty"`
	BlobKey   string    `json:"blob_key"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate validates the source metadata
func (s *Source) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("source id is required")
	}
	if s.Title == "" {
		return fmt.Errorf("source title is required")
	}
	if s.BlobKey == "" {
		return fmt.Errorf("source blob key is required")
	}
	return nil
}

// StoredBlob holds the raw bytes of an uploaded file. Written once on
// upload, deleted on source removal, never mutated in place.
type StoredBlob struct {
	Key     string    `json:"key" badgerhold:"key"`
	Name    string    `json:"name"`
	Bytes   []byte    `json:"bytes"`
	SavedAt time.Time `json:"saved_at"`
}
