package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lectio/internal/common"
	"github.com/ternarybob/lectio/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db     *BadgerDB
	blob   interfaces.BlobStorage
	quiz   interfaces.QuizStorage
	answer interfaces.AnswerStorage
	chat   interfaces.ChatStorage
	kv     interfaces.KeyValueStorage
	logger arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		blob:   NewBlobStorage(db, logger),
		quiz:   NewQuizStorage(db, logger),
		answer: NewAnswerStorage(db, logger),
		chat:   NewChatStorage(db, logger),
		kv:     NewKVStorage(db, logger),
		logger: logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// BlobStorage returns the Blob storage interface
func (m *Manager) BlobStorage() interfaces.BlobStorage {
	return m.blob
}

// QuizStorage returns the Quiz storage interface
func (m *Manager) QuizStorage() interfaces.QuizStorage {
	return m.quiz
}

// AnswerStorage returns the Answer storage interface
func (m *Manager) AnswerStorage() interfaces.AnswerStorage {
	return m.answer
}

// ChatStorage returns the Chat storage interface
func (m *Manager) ChatStorage() interfaces.ChatStorage {
	return m.chat
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes the underlying database connection
func (m *Manager) Close() error {
	return m.db.Close()
}
