// Package costs splits ledger expenses into fixed categories, allocated
// proportionally to the days of the week falling in each calendar
// month, and variable categories summed directly within the week.
package costs

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsohq/pulso/internal/period"
	"github.com/pulsohq/pulso/internal/source"
	"github.com/pulsohq/pulso/pkg/logger"
)

// Config names the ledger categories per treatment. Fixed categories
// accrue at month granularity and must be prorated; variable, COGS and
// promotion categories accrue daily and are summed inside the window.
type Config struct {
	FixedCategories    []string
	VariableCategories []string
	COGSCategories     []string
	PromoCategories    []string
}

// DefaultConfig returns the standard category sets.
func DefaultConfig() Config {
	return Config{
		FixedCategories:    []string{"payroll", "transport_stipend", "retainer", "labor_provision"},
		VariableCategories: []string{"freelance", "staff_meals"},
		COGSCategories:     []string{"food_supplies", "beverage_supplies"},
		PromoCategories:    []string{"promotion", "sponsored_media"},
	}
}

// Summary holds the weekly cost totals. Ratios against revenue are
// derived at record assembly, not here.
type Summary struct {
	FixedTotal    float64
	VariableTotal float64
	LaborTotal    float64
	COGSTotal     float64
	PromoTotal    float64
}

// segment is the part of the week falling inside one calendar month.
type segment struct {
	monthStart  time.Time
	monthEnd    time.Time
	daysInWeek  int
	daysInMonth int
}

// Allocator computes the weekly cost summary.
type Allocator struct {
	reader source.Reader
	config Config
	logger *logger.Logger
}

// NewAllocator creates a cost allocator.
func NewAllocator(reader source.Reader, config Config, log *logger.Logger) *Allocator {
	return &Allocator{
		reader: reader,
		config: config,
		logger: log.WithField("component", "costs"),
	}
}

// Compute aggregates one venue-week.
func (a *Allocator) Compute(ctx context.Context, venueID int64, week period.Week) (Summary, error) {
	var s Summary

	// Fixed categories: full-month totals weighted by the week's share
	// of each month's days. A week fully inside one month reduces to a
	// single segment with weight 7/days-in-month.
	for _, seg := range monthSegments(week) {
		rows, err := a.reader.ReadAll(ctx, source.Query{
			Source:  source.Ledger,
			Columns: source.Columns(source.Ledger),
			Filters: []source.Filter{
				source.Eq("venue_id", venueID),
				source.Gte("accrual_date", seg.monthStart),
				source.Lte("accrual_date", seg.monthEnd),
				source.In("category", a.config.FixedCategories),
			},
		})
		if err != nil {
			return s, fmt.Errorf("read fixed ledger for %s: %w", seg.monthStart.Format("2006-01"), err)
		}

		var monthTotal float64
		for _, e := range source.DecodeLedger(rows) {
			monthTotal += e.Amount
		}
		s.FixedTotal += monthTotal * float64(seg.daysInWeek) / float64(seg.daysInMonth)
	}

	// Variable, COGS and promotion categories: direct sums inside the
	// week window, no proration.
	window := append(append(append([]string{}, a.config.VariableCategories...),
		a.config.COGSCategories...), a.config.PromoCategories...)
	rows, err := a.reader.ReadAll(ctx, source.Query{
		Source:  source.Ledger,
		Columns: source.Columns(source.Ledger),
		Filters: []source.Filter{
			source.Eq("venue_id", venueID),
			source.Gte("accrual_date", week.Start),
			source.Lte("accrual_date", week.End),
			source.In("category", window),
		},
	})
	if err != nil {
		return s, fmt.Errorf("read weekly ledger: %w", err)
	}

	for _, e := range source.DecodeLedger(rows) {
		switch {
		case contains(a.config.VariableCategories, e.Category):
			s.VariableTotal += e.Amount
		case contains(a.config.COGSCategories, e.Category):
			s.COGSTotal += e.Amount
		case contains(a.config.PromoCategories, e.Category):
			s.PromoTotal += e.Amount
		}
	}

	s.LaborTotal = s.FixedTotal + s.VariableTotal

	a.logger.WithFields(map[string]interface{}{
		"venue_id": venueID,
		"week":     week.Number,
		"fixed":    s.FixedTotal,
		"variable": s.VariableTotal,
		"cogs":     s.COGSTotal,
	}).Debug("Costs allocated")

	return s, nil
}

// monthSegments splits the week at month boundaries. The day-count math
// is uniform, so a single-month week needs no special-casing.
func monthSegments(week period.Week) []segment {
	var segs []segment

	cursor := week.Start
	for !cursor.After(week.End) {
		monthStart := time.Date(cursor.Year(), cursor.Month(), 1, 0, 0, 0, 0, time.UTC)
		monthEnd := monthStart.AddDate(0, 1, -1)

		segEnd := monthEnd
		if segEnd.After(week.End) {
			segEnd = week.End
		}

		segs = append(segs, segment{
			monthStart:  monthStart,
			monthEnd:    monthEnd,
			daysInWeek:  int(segEnd.Sub(cursor).Hours()/24) + 1,
			daysInMonth: monthEnd.Day(),
		})

		cursor = monthEnd.AddDate(0, 0, 1)
	}

	return segs
}

func contains(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}
