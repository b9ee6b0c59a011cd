package file

import (
	"fmt"
	"os"

	"github.com/nextlevelbuilder/jibot/internal/store"
)

// NewFileStores creates all stores backed by JSON documents (standalone mode).
// The reminder backend is the local queue; callers swap it for an external
// backend when configured.
func NewFileStores(cfg store.StoreConfig) (*store.Stores, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	return &store.Stores{
		Facts:     NewFactService(cfg.DataDir, cfg.FactsPerWorkspace),
		Reminders: NewReminderQueue(cfg.DataDir),
		Identity:  NewIdentityService(cfg.DataDir),
		Links:     NewLinkService(cfg.DataDir),
	}, nil
}
