package cache

import (
	"github.com/flexprice/gatekeeper/internal/config"
	"github.com/flexprice/gatekeeper/internal/logger"
)

// Initialize builds the cache used for effective entitlements and counter
// snapshots
func Initialize(cfg *config.Configuration, log *logger.Logger) Cache {
	log.Infow("initializing cache",
		"enabled", cfg.Cache.Enabled,
		"default_ttl", cfg.Cache.DefaultTTL,
	)
	return NewInMemoryCache(cfg)
}
