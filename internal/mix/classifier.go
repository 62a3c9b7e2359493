// Package mix maps raw sale-location labels into the three sales
// categories and computes each category's value-weighted share of the
// week's classified revenue.
package mix

import (
	"context"
	"fmt"

	"github.com/pulsohq/pulso/internal/period"
	"github.com/pulsohq/pulso/internal/source"
	"github.com/pulsohq/pulso/pkg/logger"
)

// Sales categories.
const (
	CategoryBeverages = "beverages"
	CategoryKitchen   = "kitchen"
	CategoryPrepared  = "prepared"
)

// Config maps sale locations to categories. Rows outside the lookup are
// excluded from both numerator and denominator.
type Config struct {
	LocationCategories map[string]string
}

// DefaultConfig returns the standard lookup.
func DefaultConfig() Config {
	return Config{
		LocationCategories: map[string]string{
			"bar":         CategoryBeverages,
			"bottle_shop": CategoryBeverages,
			"counter_bar": CategoryPrepared,
			"drinks_prep": CategoryPrepared,
			"kitchen":     CategoryKitchen,
			"grill":       CategoryKitchen,
		},
	}
}

// Report holds each category's weekly revenue total and share.
type Report struct {
	BeveragesTotal float64
	KitchenTotal   float64
	PreparedTotal  float64

	BeveragesPct float64
	KitchenPct   float64
	PreparedPct  float64
}

// Classifier computes the weekly sales mix.
type Classifier struct {
	reader source.Reader
	config Config
	logger *logger.Logger
}

// NewClassifier creates a mix classifier.
func NewClassifier(reader source.Reader, config Config, log *logger.Logger) *Classifier {
	return &Classifier{
		reader: reader,
		config: config,
		logger: log.WithField("component", "mix"),
	}
}

// Compute aggregates one venue-week. Totals sum across the whole week,
// value-weighted, not averaged per day.
func (c *Classifier) Compute(ctx context.Context, venueID int64, week period.Week) (Report, error) {
	var r Report

	rows, err := c.reader.ReadAll(ctx, source.Query{
		Source:  source.Payments,
		Columns: source.Columns(source.Payments),
		Filters: []source.Filter{
			source.Eq("venue_id", venueID),
			source.Gte("business_date", week.Start),
			source.Lte("business_date", week.End),
		},
	})
	if err != nil {
		return r, fmt.Errorf("read payments: %w", err)
	}

	for _, p := range source.DecodePayments(rows) {
		switch c.config.LocationCategories[p.Location] {
		case CategoryBeverages:
			r.BeveragesTotal += p.NetAmount
		case CategoryKitchen:
			r.KitchenTotal += p.NetAmount
		case CategoryPrepared:
			r.PreparedTotal += p.NetAmount
		}
	}

	classified := r.BeveragesTotal + r.KitchenTotal + r.PreparedTotal
	if classified > 0 {
		r.BeveragesPct = r.BeveragesTotal / classified * 100
		r.KitchenPct = r.KitchenTotal / classified * 100
		r.PreparedPct = r.PreparedTotal / classified * 100
	}

	c.logger.WithFields(map[string]interface{}{
		"venue_id":   venueID,
		"week":       week.Number,
		"classified": classified,
	}).Debug("Sales mix classified")

	return r, nil
}
