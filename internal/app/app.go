package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/copia/internal/common"
	"github.com/ternarybob/copia/internal/handlers"
	"github.com/ternarybob/copia/internal/interfaces"
	"github.com/ternarybob/copia/internal/services/importer"
	"github.com/ternarybob/copia/internal/services/matcher"
	"github.com/ternarybob/copia/internal/services/normalizer"
	"github.com/ternarybob/copia/internal/services/scheduler"
	"github.com/ternarybob/copia/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Pipeline services
	NormalizerService *normalizer.Service
	MatcherService    *matcher.Service
	ImportService     *importer.Service
	SchedulerService  *scheduler.Service

	// HTTP handlers
	ImportHandler   *handlers.ImportHandler
	MaterialHandler *handlers.MaterialHandler
	APIHandler      *handlers.APIHandler
}

// New creates and wires the application
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	storageManager, err := storage.NewManager(logger, &config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	normalizerService := normalizer.NewService(logger)
	matcherService := matcher.NewService(storageManager.CatalogStorage(), logger)

	processor := importer.NewProcessor(
		storageManager.JobStorage(),
		storageManager.CatalogStorage(),
		normalizerService,
		matcherService,
		config.Import.ChunkSize,
		config.Import.UpsertRateLimit,
		logger,
	)
	importService := importer.NewService(storageManager.JobStorage(), processor, &config.Import, logger)

	staleThreshold := config.Import.StaleThresholdDuration()
	schedulerService := scheduler.NewService(storageManager.JobStorage(), &config.Scheduler, staleThreshold, logger)
	if err := schedulerService.Start(); err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	app := &App{
		Config:            config,
		Logger:            logger,
		StorageManager:    storageManager,
		NormalizerService: normalizerService,
		MatcherService:    matcherService,
		ImportService:     importService,
		SchedulerService:  schedulerService,
		ImportHandler:     handlers.NewImportHandler(importService, staleThreshold, logger),
		MaterialHandler:   handlers.NewMaterialHandler(storageManager.CatalogStorage(), logger),
		APIHandler:        handlers.NewAPIHandler(),
	}

	logger.Info().
		Str("storage", config.Storage.Type).
		Int("chunk_size", config.Import.ChunkSize).
		Int("max_concurrent_jobs", config.Import.MaxConcurrentJobs).
		Msg("Application initialized")

	return app, nil
}

// Close shuts the application down in dependency order: no new work, then
// in-flight jobs, then storage.
func (a *App) Close() error {
	a.SchedulerService.Stop()
	a.ImportService.Stop()

	if err := a.StorageManager.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}

	a.Logger.Info().Msg("Application stopped")
	return nil
}
