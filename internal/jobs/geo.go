package jobs

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"linktally/internal/config"
	"linktally/internal/pkg/geoip"
)

// GeoRefreshJob reopens the GeoLite database when the file on disk has been
// replaced, typically by an external updater cron.
type GeoRefreshJob struct {
	logger *slog.Logger
	cfg    *config.Config

	mu       sync.Mutex
	lastMod  time.Time
	lastSize int64
}

func NewGeoRefreshJob(logger *slog.Logger, cfg *config.Config) *GeoRefreshJob {
	return &GeoRefreshJob{
		logger: logger,
		cfg:    cfg,
	}
}

// Run reloads the reader if the database file changed since the last check.
func (j *GeoRefreshJob) Run() error {
	if j.cfg.GeoDBPath == "" {
		return nil
	}

	info, err := os.Stat(j.cfg.GeoDBPath)
	if err != nil {
		// Missing file just means enrichment stays off
		j.logger.Debug("GeoLite database not present", slog.String("path", j.cfg.GeoDBPath))
		return nil
	}

	j.mu.Lock()
	changed := info.ModTime() != j.lastMod || info.Size() != j.lastSize
	j.lastMod = info.ModTime()
	j.lastSize = info.Size()
	j.mu.Unlock()

	if !changed {
		return nil
	}

	j.logger.Info("GeoLite database changed on disk, reloading",
		slog.String("path", j.cfg.GeoDBPath))
	geoip.ReloadGeoDB()
	return nil
}
