// Package scheduler runs periodic database maintenance.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/finsight/finsight/internal/database"
)

// cacheRetention is how long stale price-cache rows are kept before the
// daily purge removes them. Stale rows inside this horizon still serve as
// the fallback when live quotes fail.
const cacheRetention = 7 * 24 * time.Hour

// PricePurger removes price-cache rows older than a cutoff.
type PricePurger interface {
	PurgeOlderThan(cutoff time.Time) (int64, error)
}

// Scheduler owns the cron runner and the maintenance jobs.
type Scheduler struct {
	cron      *cron.Cron
	databases []*database.DB
	purger    PricePurger
	log       zerolog.Logger
}

// New creates a scheduler over the given databases.
func New(databases []*database.DB, purger PricePurger, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		databases: databases,
		purger:    purger,
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the maintenance jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@hourly", s.runWALCheckpoints); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@daily", s.runCachePurge); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Msg("Maintenance scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Maintenance scheduler stopped")
}

// runWALCheckpoints forces a TRUNCATE checkpoint on every database so WAL
// files do not grow without bound between organic checkpoints.
func (s *Scheduler) runWALCheckpoints() {
	for _, db := range s.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			s.log.Error().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
			continue
		}
		s.log.Debug().Str("database", db.Name()).Msg("WAL checkpoint complete")
	}
}

// runCachePurge drops price-cache rows past the retention horizon.
func (s *Scheduler) runCachePurge() {
	cutoff := time.Now().UTC().Add(-cacheRetention)
	purged, err := s.purger.PurgeOlderThan(cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("Price cache purge failed")
		return
	}
	if purged > 0 {
		s.log.Info().Int64("purged", purged).Time("cutoff", cutoff).Msg("Purged stale price cache rows")
	}
}

// HealthSweep pings every database. Exposed for startup verification.
func (s *Scheduler) HealthSweep(ctx context.Context) error {
	for _, db := range s.databases {
		if err := db.HealthCheck(ctx); err != nil {
			return err
		}
	}
	return nil
}
