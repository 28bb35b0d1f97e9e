// Package engineconfig loads operator-tunable, non-consensus configuration:
// storage backend selection, logging level, read-side pagination defaults.
// Consensus constants (fee bps bounds, dispute/voting windows, guardian
// thresholds) are never configuration — they are spec-fixed and live as Go
// consts beside the code that enforces them, exactly as the Rust original
// keeps them as module-local pub const items.
//
// Grounded on jbrackens-AttaboyGO's internal/infra/config.go: a struct-tag
// driven loader over github.com/caarlos0/env/v11, replacing the teacher's
// manual getEnv/getInt/getFloat loader.
package engineconfig

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the engine's operator-facing settings.
type Config struct {
	StorageBackend string `env:"PREDICTIQ_STORAGE_BACKEND" envDefault:"memory"` // "memory" or "badger"
	StoragePath    string `env:"PREDICTIQ_STORAGE_PATH" envDefault:"./data/predictiq"`
	LogLevel       string `env:"PREDICTIQ_LOG_LEVEL" envDefault:"info"`
	ListPageSize   int    `env:"PREDICTIQ_LIST_PAGE_SIZE" envDefault:"50"`
}

// Load parses environment variables into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("engineconfig: parse: %w", err)
	}
	return cfg, nil
}

// Validate rejects configuration that cannot produce a usable engine.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "memory", "badger":
	default:
		return fmt.Errorf("engineconfig: unknown storage backend %q", c.StorageBackend)
	}
	if c.ListPageSize <= 0 {
		return fmt.Errorf("engineconfig: list page size must be positive, got %d", c.ListPageSize)
	}
	return nil
}
