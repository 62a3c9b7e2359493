// Package jobs holds the scheduled recompute jobs.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsohq/pulso/internal/batch"
	"github.com/pulsohq/pulso/internal/period"
	"github.com/pulsohq/pulso/pkg/logger"
)

// VenueLister enumerates the venues eligible for recompute.
type VenueLister interface {
	ActiveVenueIDs(ctx context.Context) ([]int64, error)
}

// WeeklyCloseJob closes out the previous ISO week for every active
// venue, creating missing rows before recomputing. Runs Monday morning
// once the weekend's sales have landed.
type WeeklyCloseJob struct {
	driver *batch.Driver
	venues VenueLister
	logger *logger.Logger
}

// NewWeeklyCloseJob creates a new weekly close job
func NewWeeklyCloseJob(driver *batch.Driver, venues VenueLister, log *logger.Logger) *WeeklyCloseJob {
	return &WeeklyCloseJob{
		driver: driver,
		venues: venues,
		logger: log,
	}
}

// Name returns the job name
func (j *WeeklyCloseJob) Name() string {
	return "weekly_close"
}

// Schedule returns the cron schedule (Mondays at 5 AM)
func (j *WeeklyCloseJob) Schedule() string {
	return "0 0 5 * * MON"
}

// Run recomputes the previous week for all active venues
func (j *WeeklyCloseJob) Run(ctx context.Context) error {
	week := period.Of(time.Now().AddDate(0, 0, -7))

	venueIDs, err := j.venues.ActiveVenueIDs(ctx)
	if err != nil {
		return fmt.Errorf("list active venues: %w", err)
	}

	summary, err := j.driver.Run(ctx, batch.Expand(venueIDs, week))
	if err != nil {
		return fmt.Errorf("weekly close batch: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"year":      week.Year,
		"week":      week.Number,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
	}).Info("Weekly close completed")

	if summary.Failed > 0 {
		return fmt.Errorf("weekly close: %d of %d venues failed", summary.Failed, summary.Total)
	}
	return nil
}
