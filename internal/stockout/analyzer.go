// Package stockout filters per-day product availability snapshots
// through allow/deny lists and computes a day-weighted average
// unavailability percentage per macro-group.
package stockout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pulsohq/pulso/internal/period"
	"github.com/pulsohq/pulso/internal/source"
	"github.com/pulsohq/pulso/pkg/logger"
)

// Macro-groups. Locations outside the lookup are excluded from group
// stats but still counted in the grand totals.
const (
	GroupBar      = "bar"
	GroupPrepared = "prepared"
	GroupKitchen  = "kitchen"
)

// Config holds the deny lists and the location lookup.
type Config struct {
	IgnoreLocations    []string
	IgnoreCategories   []string
	IgnoreNamePatterns []string
	LocationGroups     map[string]string
}

// DefaultConfig returns the standard filters and lookup.
func DefaultConfig() Config {
	return Config{
		IgnoreLocations:    []string{"togo_counter", "takeaway"},
		IgnoreCategories:   []string{"happy_hour_bundle", "house_use", "promo_combo"},
		IgnoreNamePatterns: []string{"combo", "happy hour", "open bar"},
		LocationGroups: map[string]string{
			"bar":          GroupBar,
			"bottle_shop":  GroupBar,
			"counter_bar":  GroupPrepared,
			"drinks_prep":  GroupPrepared,
			"kitchen":      GroupKitchen,
			"grill":        GroupKitchen,
		},
	}
}

// Report is the weekly stockout picture. Group percentages are
// arithmetic means of daily percentages, giving each day equal weight
// regardless of catalog size that day.
type Report struct {
	BarPct      float64
	PreparedPct float64
	KitchenPct  float64

	TotalTracked     int
	TotalUnavailable int
}

// Analyzer computes the weekly stockout report.
type Analyzer struct {
	reader source.Reader
	config Config
	logger *logger.Logger
}

// NewAnalyzer creates a stockout analyzer.
func NewAnalyzer(reader source.Reader, config Config, log *logger.Logger) *Analyzer {
	return &Analyzer{
		reader: reader,
		config: config,
		logger: log.WithField("component", "stockout"),
	}
}

type dayCounts struct {
	total       int
	unavailable int
}

// Compute aggregates one venue-week.
func (a *Analyzer) Compute(ctx context.Context, venueID int64, week period.Week) (Report, error) {
	var r Report

	rows, err := a.reader.ReadAll(ctx, source.Query{
		Source:  source.Availability,
		Columns: source.Columns(source.Availability),
		Filters: []source.Filter{
			source.Eq("venue_id", venueID),
			source.Gte("inspection_date", week.Start),
			source.Lte("inspection_date", week.End),
		},
	})
	if err != nil {
		return r, fmt.Errorf("read availability snapshots: %w", err)
	}

	days := map[string]map[time.Time]*dayCounts{
		GroupBar:      {},
		GroupPrepared: {},
		GroupKitchen:  {},
	}

	for _, snap := range source.DecodeAvailability(rows) {
		if !a.keep(snap.Location, snap.Category, snap.ProductName) {
			continue
		}
		if !snap.Active {
			continue
		}

		r.TotalTracked++
		if !snap.Sellable {
			r.TotalUnavailable++
		}

		group, ok := a.config.LocationGroups[snap.Location]
		if !ok {
			// Grand totals only.
			continue
		}

		day := snap.Date.Truncate(24 * time.Hour)
		counts := days[group][day]
		if counts == nil {
			counts = &dayCounts{}
			days[group][day] = counts
		}
		counts.total++
		if !snap.Sellable {
			counts.unavailable++
		}
	}

	r.BarPct = dayWeightedPct(days[GroupBar])
	r.PreparedPct = dayWeightedPct(days[GroupPrepared])
	r.KitchenPct = dayWeightedPct(days[GroupKitchen])

	a.logger.WithFields(map[string]interface{}{
		"venue_id":    venueID,
		"week":        week.Number,
		"tracked":     r.TotalTracked,
		"unavailable": r.TotalUnavailable,
	}).Debug("Stockout analyzed")

	return r, nil
}

// keep applies the deny lists; rows from ignored locations, ignored
// categories or matching name patterns never reach any stat.
func (a *Analyzer) keep(location, category, name string) bool {
	if location == "" {
		return false
	}
	for _, loc := range a.config.IgnoreLocations {
		if location == loc {
			return false
		}
	}
	for _, cat := range a.config.IgnoreCategories {
		if category == cat {
			return false
		}
	}

	lower := strings.ToLower(name)
	for _, pattern := range a.config.IgnoreNamePatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	return true
}

// dayWeightedPct averages the per-day percentages, not the pooled counts.
func dayWeightedPct(days map[time.Time]*dayCounts) float64 {
	if len(days) == 0 {
		return 0
	}

	var sum float64
	for _, c := range days {
		if c.total > 0 {
			sum += float64(c.unavailable) / float64(c.total) * 100
		}
	}
	return sum / float64(len(days))
}
