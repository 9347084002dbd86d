package checkpoint

import (
	"fmt"

	config "github.com/surgencelabs/dune-sync/configs"
)

// Store persists the highest block number known to be fully synced.
//
// Read reports absent=false on first run. Write is only ever called with a
// value greater than or equal to the committed one; the orchestrator enforces
// monotonicity, implementations assert it where cheap.
type Store interface {
	Read() (block int64, ok bool, err error)
	Write(block int64) error
	Close() error
}

// NewStore picks the configured backend. Exactly like the storage connector
// selection in the rest of our tooling: first non-nil pointer wins, file is
// the default.
func NewStore(cfg *config.CheckpointConfig) (Store, error) {
	if cfg.Redis != nil {
		return NewRedisStore(cfg.Redis)
	}
	if cfg.Postgres != nil {
		return NewPostgresStore(cfg.Postgres)
	}
	if cfg.File != nil {
		return NewFileStore(cfg.File.Path)
	}
	return nil, fmt.Errorf("no checkpoint backend configured")
}
