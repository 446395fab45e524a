package memory

import (
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/copia/internal/interfaces"
)

// Manager implements the StorageManager interface in memory. Nothing survives
// a restart; the job store additionally expires entries after inactivity.
type Manager struct {
	jobs    *JobStorage
	catalog *CatalogStorage
}

// NewManager creates a new in-memory storage manager
func NewManager(logger arbor.ILogger, expireAfter time.Duration) interfaces.StorageManager {
	logger.Info().Str("expire_after", expireAfter.String()).Msg("Memory storage manager initialized")
	return &Manager{
		jobs:    NewJobStorage(expireAfter, logger),
		catalog: NewCatalogStorage(),
	}
}

// JobStorage returns the import job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.jobs
}

// CatalogStorage returns the material catalog storage interface
func (m *Manager) CatalogStorage() interfaces.CatalogStorage {
	return m.catalog
}

// Close stops background pruning
func (m *Manager) Close() error {
	return m.jobs.Close()
}
