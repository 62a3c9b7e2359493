// Package retention measures how much of the current week's customer
// set reappears from trailing lookback windows, matching customers by
// normalized phone identifiers.
package retention

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pulsohq/pulso/internal/period"
	"github.com/pulsohq/pulso/internal/source"
	"github.com/pulsohq/pulso/pkg/logger"
)

// Config holds the lookback lags, the tolerance band width anchored at
// each lag point, and the minimum digit count for a usable identifier.
type Config struct {
	LagsDays      []int
	ToleranceDays int
	MinDigits     int
}

// DefaultConfig returns the 30/60 day lookbacks.
func DefaultConfig() Config {
	return Config{
		LagsDays:      []int{30, 60},
		ToleranceDays: 7,
		MinDigits:     10,
	}
}

// Report maps lag days to retention percentage.
type Report struct {
	Rates map[int]float64
}

// Rate returns the percentage for a lag, zero when absent.
func (r Report) Rate(lagDays int) float64 {
	return r.Rates[lagDays]
}

// Calculator computes weekly retention.
type Calculator struct {
	reader source.Reader
	config Config
	logger *logger.Logger
}

// NewCalculator creates a retention calculator.
func NewCalculator(reader source.Reader, config Config, log *logger.Logger) *Calculator {
	return &Calculator{
		reader: reader,
		config: config,
		logger: log.WithField("component", "retention"),
	}
}

// Compute aggregates one venue-week.
func (c *Calculator) Compute(ctx context.Context, venueID int64, week period.Week) (Report, error) {
	r := Report{Rates: make(map[int]float64, len(c.config.LagsDays))}

	current, err := c.customerSet(ctx, venueID, week.Start, week.End)
	if err != nil {
		return r, fmt.Errorf("read current week customers: %w", err)
	}

	for _, lag := range c.config.LagsDays {
		// Tolerance band anchored at the lag point, not the full lag
		// period: [start - lag - tolerance, start - lag].
		bandEnd := week.Start.AddDate(0, 0, -lag)
		bandStart := bandEnd.AddDate(0, 0, -c.config.ToleranceDays)

		past, err := c.customerSet(ctx, venueID, bandStart, bandEnd)
		if err != nil {
			return r, fmt.Errorf("read lag %dd customers: %w", lag, err)
		}

		r.Rates[lag] = overlapPct(current, past)
	}

	c.logger.WithFields(map[string]interface{}{
		"venue_id": venueID,
		"week":     week.Number,
		"current":  len(current),
		"rates":    r.Rates,
	}).Debug("Retention computed")

	return r, nil
}

// customerSet builds the distinct set of normalized identifiers seen in
// the visit source during a window.
func (c *Calculator) customerSet(ctx context.Context, venueID int64, start, end time.Time) (map[string]struct{}, error) {
	rows, err := c.reader.ReadAll(ctx, source.Query{
		Source:  source.Visits,
		Columns: source.Columns(source.Visits),
		Filters: []source.Filter{
			source.Eq("venue_id", venueID),
			source.Gte("business_date", start),
			source.Lte("business_date", end),
		},
	})
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{})
	for _, v := range source.DecodeVisits(rows) {
		if id, ok := normalize(v.Phone, c.config.MinDigits); ok {
			set[id] = struct{}{}
		}
	}
	return set, nil
}

// normalize strips every non-digit character; identifiers shorter than
// minDigits are unusable.
func normalize(phone string, minDigits int) (string, bool) {
	var sb strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	if sb.Len() < minDigits {
		return "", false
	}
	return sb.String(), true
}

// overlapPct is |current ∩ past| / |past| * 100, zero for an empty past.
func overlapPct(current, past map[string]struct{}) float64 {
	if len(past) == 0 {
		return 0
	}

	matched := 0
	for id := range past {
		if _, ok := current[id]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(past)) * 100
}
