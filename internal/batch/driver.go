// Package batch fans a recompute over many venue-weeks in paced
// groups, so a backfill never floods the database that production
// traffic is reading from.
package batch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pulsohq/pulso/internal/engine"
	"github.com/pulsohq/pulso/internal/period"
	"github.com/pulsohq/pulso/pkg/logger"
)

// Recomputer is the engine surface the driver needs.
type Recomputer interface {
	EnsureWeek(ctx context.Context, venueID int64, week period.Week) error
	Recompute(ctx context.Context, venueID int64, week period.Week) (*engine.Result, error)
}

// Unit is one venue-week to recompute.
type Unit struct {
	VenueID int64       `json:"venue_id"`
	Week    period.Week `json:"week"`
}

// UnitResult is the outcome for one unit. Failed units carry the error
// text so a run report stays serializable.
type UnitResult struct {
	Unit     Unit          `json:"unit"`
	Degraded int           `json:"degraded"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Summary is one completed batch run.
type Summary struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
	Results   []UnitResult  `json:"results"`
}

// Config paces the run. GroupSize units run concurrently, then the
// driver waits GroupDelay before starting the next group.
type Config struct {
	GroupSize     int
	GroupDelay    time.Duration
	CreateMissing bool
}

// DefaultConfig returns the standard pacing.
func DefaultConfig() Config {
	return Config{
		GroupSize:  3,
		GroupDelay: 2 * time.Second,
	}
}

// Driver runs batches of recomputes.
type Driver struct {
	engine  Recomputer
	config  Config
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewDriver creates a batch driver.
func NewDriver(eng Recomputer, config Config, log *logger.Logger) *Driver {
	if config.GroupSize <= 0 {
		config.GroupSize = DefaultConfig().GroupSize
	}
	return &Driver{
		engine:  eng,
		config:  config,
		limiter: rate.NewLimiter(rate.Every(config.GroupDelay), 1),
		logger:  log.WithField("component", "batch"),
	}
}

// Run processes every unit, continuing past individual failures. A
// cancelled context stops the run between groups.
func (d *Driver) Run(ctx context.Context, units []Unit) (*Summary, error) {
	start := time.Now()
	summary := &Summary{
		Total:   len(units),
		Results: make([]UnitResult, 0, len(units)),
	}

	d.logger.WithFields(map[string]interface{}{
		"units":      len(units),
		"group_size": d.config.GroupSize,
	}).Info("Batch run started")

	for offset := 0; offset < len(units); offset += d.config.GroupSize {
		if err := d.limiter.Wait(ctx); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}

		end := offset + d.config.GroupSize
		if end > len(units) {
			end = len(units)
		}

		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for _, unit := range units[offset:end] {
			wg.Add(1)
			go func(u Unit) {
				defer wg.Done()
				res := d.runUnit(ctx, u)
				mu.Lock()
				summary.Results = append(summary.Results, res)
				if res.Error == "" {
					summary.Succeeded++
				} else {
					summary.Failed++
				}
				mu.Unlock()
			}(unit)
		}
		wg.Wait()
	}

	summary.Duration = time.Since(start)
	d.logger.WithFields(map[string]interface{}{
		"total":     summary.Total,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"duration":  summary.Duration,
	}).Info("Batch run finished")

	return summary, nil
}

func (d *Driver) runUnit(ctx context.Context, u Unit) UnitResult {
	out := UnitResult{Unit: u}

	if d.config.CreateMissing {
		if err := d.engine.EnsureWeek(ctx, u.VenueID, u.Week); err != nil {
			out.Error = err.Error()
			return out
		}
	}

	res, err := d.engine.Recompute(ctx, u.VenueID, u.Week)
	if err != nil {
		d.logger.WithError(err).WithFields(map[string]interface{}{
			"venue_id": u.VenueID,
			"year":     u.Week.Year,
			"week":     u.Week.Number,
		}).Error("Unit recompute failed")
		out.Error = err.Error()
		return out
	}

	out.Degraded = len(res.Degraded)
	out.Duration = res.Duration
	return out
}

// Expand builds one unit per venue for a single week.
func Expand(venueIDs []int64, week period.Week) []Unit {
	units := make([]Unit, 0, len(venueIDs))
	for _, id := range venueIDs {
		units = append(units, Unit{VenueID: id, Week: week})
	}
	return units
}
