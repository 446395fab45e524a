package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/copia/internal/common"
	"github.com/ternarybob/copia/internal/interfaces"
	"github.com/ternarybob/copia/internal/storage/badger"
	"github.com/ternarybob/copia/internal/storage/memory"
)

// NewManager creates the storage manager selected by configuration.
// "badger" is the durable default; "memory" is a self-expiring fallback for
// development and tests.
func NewManager(logger arbor.ILogger, config *common.StorageConfig) (interfaces.StorageManager, error) {
	switch config.Type {
	case "", "badger":
		return badger.NewManager(logger, &config.Badger)
	case "memory":
		return memory.NewManager(logger, config.Memory.ExpireAfterDuration()), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", config.Type)
	}
}
