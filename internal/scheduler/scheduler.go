// Package scheduler runs the daily warm job: shortly after the publisher's
// morning refresh it resolves the trailing window so the first dashboard
// request of the day hits a warm cache, then feeds the latest snapshot to
// the search index and applies archive retention.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"availability-portal/internal/config"
	"availability-portal/internal/search"
	"availability-portal/internal/series"
)

// Scheduler handles the scheduled cache warm task.
type Scheduler struct {
	cron      *cron.Cron
	assembler *series.Assembler
	searcher  *search.SearchClient
	cleanup   func() (int64, error)
	config    *config.Config
	isRunning bool
}

// NewScheduler creates a scheduler. searcher and cleanup are optional.
func NewScheduler(assembler *series.Assembler, searcher *search.SearchClient, cleanup func() (int64, error), cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		assembler: assembler,
		searcher:  searcher,
		cleanup:   cleanup,
		config:    cfg,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	if !s.config.Scheduler.DailyWarmEnabled {
		log.Println("[Scheduler] Daily warm is disabled in configuration")
		return nil
	}

	cronSpec := s.parseDailyWarmTime(s.config.Scheduler.DailyWarmTime)

	_, err := s.cron.AddFunc(cronSpec, func() {
		log.Println("[Scheduler] Starting daily warm job...")
		if err := s.runDailyWarm(); err != nil {
			log.Printf("[Scheduler] Daily warm failed: %v", err)
		} else {
			log.Println("[Scheduler] Daily warm completed successfully")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("[Scheduler] Started with daily warm at %s (cron: %s)", s.config.Scheduler.DailyWarmTime, cronSpec)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if s.isRunning {
		s.cron.Stop()
		s.isRunning = false
		log.Println("[Scheduler] Stopped")
	}
}

// runDailyWarm resolves the trailing window, re-indexes the latest day
// and applies archive retention.
func (s *Scheduler) runDailyWarm() error {
	windowDays := s.config.Scheduler.WarmWindowDays
	if windowDays < 1 {
		windowDays = s.config.Analytics.DefaultWindowDays
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Analytics.GetResolveTimeout())
	defer cancel()

	seriesData, err := s.assembler.BuildSeries(ctx, time.Now().UTC(), windowDays)
	if err != nil {
		return err
	}
	log.Printf("[Scheduler] Warmed %d of %d days", len(seriesData.Snapshots), windowDays)

	if s.searcher != nil {
		if latest := seriesData.Latest(); latest != nil {
			if err := s.searcher.IndexSnapshot(latest); err != nil {
				log.Printf("[Scheduler] Failed to index latest snapshot: %v", err)
			} else {
				log.Printf("[Scheduler] Indexed %d records for %s", len(latest.Records), latest.DateKey)
			}
		}
	}

	if s.cleanup != nil {
		if removed, err := s.cleanup(); err != nil {
			log.Printf("[Scheduler] Archive cleanup failed: %v", err)
		} else if removed > 0 {
			log.Printf("[Scheduler] Archive cleanup removed %d rows", removed)
		}
	}

	return nil
}

// RunNow immediately executes the warm job (for manual trigger)
func (s *Scheduler) RunNow() error {
	log.Println("[Scheduler] Manual trigger - starting warm job...")
	return s.runDailyWarm()
}

// parseDailyWarmTime converts HH:MM format to cron specification
// Example: "06:45" -> "45 6 * * *" (run at 6:45 AM every day)
func (s *Scheduler) parseDailyWarmTime(timeStr string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	// Default to 6:45 AM, just after the publish band, if parsing fails
	log.Printf("[Scheduler] Failed to parse time '%s', using default 06:45", timeStr)
	return "45 6 * * *"
}
