package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lectio/internal/common"
	"github.com/ternarybob/lectio/internal/interfaces"
	"github.com/ternarybob/lectio/internal/services/chat"
	"github.com/ternarybob/lectio/internal/services/events"
	"github.com/ternarybob/lectio/internal/services/generation"
	"github.com/ternarybob/lectio/internal/services/pdf"
	"github.com/ternarybob/lectio/internal/services/progress"
	"github.com/ternarybob/lectio/internal/services/quiz"
	"github.com/ternarybob/lectio/internal/services/sources"
	badgerstore "github.com/ternarybob/lectio/internal/storage/badger"
)

// App wires configuration, storage and every service together. It is
// the embedding surface: hosts construct one App and reach the services
// through it.
type App struct {
	Config  *common.Config
	Logger  arbor.ILogger
	Storage interfaces.StorageManager
	Events  interfaces.EventService

	Sources  *sources.Service
	Quiz     *quiz.Service
	Chat     *chat.Service
	Progress *progress.Service
}

// New loads configuration from path (empty means defaults plus
// environment overrides), opens storage and wires the services. The
// source registry is reconciled from blob storage before New returns,
// so the catalog reflects what actually survived the last run.
func New(ctx context.Context, configPath string) (*App, error) {
	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := common.InitLogger(config)

	storage, err := badgerstore.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	eventService := events.NewService(logger)
	inspector := pdf.NewInspector(logger)
	client := generation.NewClient(&config.Backend, logger)

	sourceService := sources.NewService(
		storage.BlobStorage(),
		storage.QuizStorage(),
		storage.AnswerStorage(),
		storage.KeyValueStorage(),
		inspector,
		eventService,
		logger,
	)
	quizService := quiz.NewService(client, storage.QuizStorage(), storage.AnswerStorage(), eventService, logger)
	chatService := chat.NewService(client, storage.ChatStorage(), eventService, logger, config.Chat)
	progressService := progress.NewService(storage.QuizStorage(), storage.AnswerStorage(), storage.KeyValueStorage(), logger)

	if err := sourceService.Reconcile(ctx); err != nil {
		storage.Close()
		return nil, fmt.Errorf("failed to reconcile source registry: %w", err)
	}

	logger.Info().
		Str("backend", config.Backend.BaseURL).
		Str("data_dir", config.Storage.Badger.Path).
		Msg("Application started")

	return &App{
		Config:   config,
		Logger:   logger,
		Storage:  storage,
		Events:   eventService,
		Sources:  sourceService,
		Quiz:     quizService,
		Chat:     chatService,
		Progress: progressService,
	}, nil
}

// Close shuts the application down: live chat sessions first, storage
// last so in-flight transcript writes land before the store closes.
func (a *App) Close() error {
	a.Chat.CloseAll()

	if err := a.Storage.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}

	a.Logger.Info().Msg("Application stopped")
	return nil
}
