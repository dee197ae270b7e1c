package session

import (
	"context"
	"log/slog"
	"time"

	"minibot/internal/config"
	"minibot/internal/domain"
)

const healthProbeTimeout = 5 * time.Second

// Select returns the configured session store. When the remote backend is
// enabled it is probed once; on failure the local sqlite store is used and
// the loop continues without personalization. The returned backend tag
// ("remote" or "local") is surfaced by /status.
func Select(cfg config.SessionConfig, logger *slog.Logger) (domain.SessionStore, string, error) {
	if cfg.Remote.Enabled {
		remote := NewRemoteStore(cfg.Remote.BaseURL, cfg.Remote.APIKey, logger)

		ctx, cancel := context.WithTimeout(context.Background(), healthProbeTimeout)
		defer cancel()
		if err := remote.Healthy(ctx); err == nil {
			logger.Info("using remote personalization store", "baseUrl", cfg.Remote.BaseURL)
			return remote, "remote", nil
		} else {
			logger.Warn("remote session store unavailable, falling back to local", "err", err)
		}
	}

	local, err := NewStore(cfg.DBPath, logger)
	if err != nil {
		return nil, "", err
	}
	logger.Info("using local session store", "dbPath", cfg.DBPath)
	return local, "local", nil
}
