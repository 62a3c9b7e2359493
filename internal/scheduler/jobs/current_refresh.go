package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsohq/pulso/internal/batch"
	"github.com/pulsohq/pulso/internal/period"
	"github.com/pulsohq/pulso/pkg/logger"
)

// CurrentRefreshJob refreshes the running week every night so the
// dashboards track the week as it unfolds. Missing rows are created on
// the fly, which also seeds the first recompute of a new week.
type CurrentRefreshJob struct {
	driver *batch.Driver
	venues VenueLister
	logger *logger.Logger
}

// NewCurrentRefreshJob creates a new current-week refresh job
func NewCurrentRefreshJob(driver *batch.Driver, venues VenueLister, log *logger.Logger) *CurrentRefreshJob {
	return &CurrentRefreshJob{
		driver: driver,
		venues: venues,
		logger: log,
	}
}

// Name returns the job name
func (j *CurrentRefreshJob) Name() string {
	return "current_refresh"
}

// Schedule returns the cron schedule (every day at 6 AM)
func (j *CurrentRefreshJob) Schedule() string {
	return "0 0 6 * * *"
}

// Run recomputes the current week for all active venues
func (j *CurrentRefreshJob) Run(ctx context.Context) error {
	week := period.Of(time.Now())

	venueIDs, err := j.venues.ActiveVenueIDs(ctx)
	if err != nil {
		return fmt.Errorf("list active venues: %w", err)
	}

	summary, err := j.driver.Run(ctx, batch.Expand(venueIDs, week))
	if err != nil {
		return fmt.Errorf("current refresh batch: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"year":      week.Year,
		"week":      week.Number,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
	}).Info("Current week refresh completed")

	return nil
}
