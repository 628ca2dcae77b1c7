// Package jobs runs the periodic maintenance work: pruning old click events
// and reloading the GeoLite database when the file on disk changes.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"linktally/internal/config"
	"linktally/internal/database"
)

// Scheduler is responsible for running background jobs
type Scheduler struct {
	dbManager *database.DBManager
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	enabled   bool
	isRunning bool
	cfg       *config.Config

	// Mutex to prevent concurrent job executions
	processingMutex sync.Mutex
	isProcessing    bool

	// Job instances
	retentionJob *RetentionJob
	geoJob       *GeoRefreshJob

	// Tickers for each job type
	retentionTicker *time.Ticker
	geoTicker       *time.Ticker
}

func NewScheduler(dbManager *database.DBManager, logger *slog.Logger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := config.GetConfig()

	s := &Scheduler{
		dbManager: dbManager,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		enabled:   true,
		isRunning: false,
		cfg:       cfg,
	}

	// Initialize job instances
	s.retentionJob = NewRetentionJob(dbManager, logger, cfg)
	s.geoJob = NewGeoRefreshJob(logger, cfg)

	return s, nil
}

// executeJobSafely runs a job only if no other job is currently executing
func (s *Scheduler) executeJobSafely(jobName string, jobFunc func() error) {
	s.processingMutex.Lock()
	if s.isProcessing {
		s.logger.Debug("Skipping job execution - previous job still running", slog.String("job", jobName))
		s.processingMutex.Unlock()
		return
	}
	s.isProcessing = true
	s.processingMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", jobName),
				slog.Any("panic", r))
		}

		s.processingMutex.Lock()
		s.isProcessing = false
		s.processingMutex.Unlock()
	}()

	if err := jobFunc(); err != nil {
		s.logger.Error("Error executing job", slog.String("job", jobName), slog.Any("error", err))
	}
}

// Start begins all background jobs
func (s *Scheduler) Start() error {
	if !s.enabled {
		s.logger.Info("Background jobs are disabled.")
		return nil
	}

	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}

	s.logger.Info("Starting background jobs...")

	s.isRunning = true

	s.startRetentionJob()
	s.startGeoRefreshJob()

	s.logger.Info("Background jobs started",
		slog.Bool("enabled", s.enabled),
		slog.Bool("isRunning", s.isRunning))

	return nil
}

func (s *Scheduler) startRetentionJob() {
	if s.cfg.ClickRetentionDays < 1 {
		s.logger.Info("Click retention pruning disabled")
		return
	}

	interval := 24 * time.Hour
	s.logger.Info("Starting click retention job",
		slog.Duration("interval", interval),
		slog.Int("retention_days", s.cfg.ClickRetentionDays))
	s.retentionTicker = time.NewTicker(interval)

	go func() {
		// Run initial pruning
		s.executeJobSafely("retention", s.retentionJob.Run)

		for {
			select {
			case <-s.retentionTicker.C:
				s.executeJobSafely("retention", s.retentionJob.Run)
			case <-s.ctx.Done():
				s.logger.Info("Click retention job stopped")
				return
			}
		}
	}()
}

func (s *Scheduler) startGeoRefreshJob() {
	if s.cfg.GeoDBPath == "" {
		return
	}

	interval := 6 * time.Hour
	s.logger.Info("Starting GeoLite refresh job", slog.Duration("interval", interval))
	s.geoTicker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-s.geoTicker.C:
				s.executeJobSafely("geo_refresh", s.geoJob.Run)
			case <-s.ctx.Done():
				s.logger.Info("GeoLite refresh job stopped")
				return
			}
		}
	}()
}

// Stop halts all background jobs.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background jobs...")
	s.enabled = false

	if s.retentionTicker != nil {
		s.retentionTicker.Stop()
	}
	if s.geoTicker != nil {
		s.geoTicker.Stop()
	}

	s.cancel()
	s.isRunning = false
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	return s.isRunning
}

// PruneClicks allows manual triggering of retention pruning
func (s *Scheduler) PruneClicks() error {
	if !s.enabled {
		return nil
	}
	return s.retentionJob.Run()
}
