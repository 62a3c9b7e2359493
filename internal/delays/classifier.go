// Package delays computes mean fulfillment latency per channel and
// buckets late orders against per-channel severity thresholds.
package delays

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pulsohq/pulso/internal/contracts"
	"github.com/pulsohq/pulso/internal/period"
	"github.com/pulsohq/pulso/internal/source"
	"github.com/pulsohq/pulso/pkg/logger"
)

// Thresholds are one channel's severity cutoffs.
type Thresholds struct {
	Minor time.Duration
	Major time.Duration
}

// Config holds the per-channel thresholds. The bar channel reads the
// first checkpoint elapsed time, the kitchen channel the second.
type Config struct {
	Bar     Thresholds
	Kitchen Thresholds
}

// DefaultConfig returns the venue reporting convention's thresholds.
func DefaultConfig() Config {
	return Config{
		Bar:     Thresholds{Minor: 4 * time.Minute, Major: 8 * time.Minute},
		Kitchen: Thresholds{Minor: 15 * time.Minute, Major: 20 * time.Minute},
	}
}

// ChannelStats summarizes one fulfillment channel.
type ChannelStats struct {
	Units       int
	MeanSeconds float64
	MinorCount  int
	MajorCount  int
	MinorPct    float64
	MajorPct    float64
}

// Report is the weekly delay picture.
type Report struct {
	Bar           ChannelStats
	Kitchen       ChannelStats
	Cancellations int
	Breakdown     []contracts.DelayGroup
}

// Classifier computes the weekly delay report.
type Classifier struct {
	reader source.Reader
	config Config
	logger *logger.Logger
}

// NewClassifier creates a delay classifier.
func NewClassifier(reader source.Reader, config Config, log *logger.Logger) *Classifier {
	return &Classifier{
		reader: reader,
		config: config,
		logger: log.WithField("component", "delays"),
	}
}

type lateOrder struct {
	weekday int
	product string
	seconds float64
}

// Compute aggregates one venue-week.
func (c *Classifier) Compute(ctx context.Context, venueID int64, week period.Week) (Report, error) {
	var r Report

	rows, err := c.reader.ReadAll(ctx, source.Query{
		Source:  source.Timings,
		Columns: source.Columns(source.Timings),
		Filters: []source.Filter{
			source.Eq("venue_id", venueID),
			source.Gte("business_date", week.Start),
			source.Lte("business_date", week.End),
		},
	})
	if err != nil {
		return r, fmt.Errorf("read prep timings: %w", err)
	}

	var barSum, kitchenSum float64
	var late []lateOrder

	for _, t := range source.DecodeTimings(rows) {
		if t.Cancelled {
			r.Cancellations++
			continue
		}

		var elapsed float64
		var stats *ChannelStats
		var thresholds Thresholds
		if t.Category == "drink" {
			elapsed = t.ElapsedBar
			stats = &r.Bar
			thresholds = c.config.Bar
		} else {
			elapsed = t.ElapsedKitchen
			stats = &r.Kitchen
			thresholds = c.config.Kitchen
		}

		// Non-positive readings are sensor artifacts.
		if elapsed <= 0 {
			continue
		}

		stats.Units++
		if t.Category == "drink" {
			barSum += elapsed
		} else {
			kitchenSum += elapsed
		}

		if elapsed >= thresholds.Minor.Seconds() {
			stats.MinorCount++
		}
		if elapsed >= thresholds.Major.Seconds() {
			stats.MajorCount++
			late = append(late, lateOrder{
				weekday: int(t.Date.Weekday()),
				product: t.Product,
				seconds: elapsed,
			})
		}
	}

	finishChannel(&r.Bar, barSum)
	finishChannel(&r.Kitchen, kitchenSum)
	r.Breakdown = groupLateOrders(late)

	c.logger.WithFields(map[string]interface{}{
		"venue_id":      venueID,
		"week":          week.Number,
		"bar_units":     r.Bar.Units,
		"kitchen_units": r.Kitchen.Units,
		"cancellations": r.Cancellations,
	}).Debug("Delays classified")

	return r, nil
}

// finishChannel derives the mean and percentages. All positive values
// count toward the mean, no outlier trimming, matching the venue's own
// reporting convention.
func finishChannel(stats *ChannelStats, sum float64) {
	if stats.Units == 0 {
		return
	}
	n := float64(stats.Units)
	stats.MeanSeconds = sum / n
	stats.MinorPct = float64(stats.MinorCount) / n * 100
	stats.MajorPct = float64(stats.MajorCount) / n * 100
}

// groupLateOrders buckets major-delay orders by (weekday, product),
// sorted by weekday then mean lateness descending within each weekday.
func groupLateOrders(late []lateOrder) []contracts.DelayGroup {
	type key struct {
		weekday int
		product string
	}
	type acc struct {
		count int
		sum   float64
	}

	buckets := make(map[key]*acc)
	for _, o := range late {
		k := key{weekday: o.weekday, product: o.product}
		if buckets[k] == nil {
			buckets[k] = &acc{}
		}
		buckets[k].count++
		buckets[k].sum += o.seconds
	}

	groups := make([]contracts.DelayGroup, 0, len(buckets))
	for k, a := range buckets {
		groups = append(groups, contracts.DelayGroup{
			Weekday:     k.weekday,
			Product:     k.product,
			Count:       a.count,
			MeanSeconds: a.sum / float64(a.count),
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Weekday != groups[j].Weekday {
			return groups[i].Weekday < groups[j].Weekday
		}
		if groups[i].MeanSeconds != groups[j].MeanSeconds {
			return groups[i].MeanSeconds > groups[j].MeanSeconds
		}
		return groups[i].Product < groups[j].Product
	})

	return groups
}
