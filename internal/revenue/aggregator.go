// Package revenue combines the venue's revenue channels into the weekly
// gross/net figures and the headcount-normalized average tickets.
package revenue

import (
	"context"
	"fmt"

	"github.com/pulsohq/pulso/internal/period"
	"github.com/pulsohq/pulso/internal/source"
	"github.com/pulsohq/pulso/pkg/logger"
)

// Config holds channel names, the exclusion tag and the sales-timing
// cutoffs. The deferred method is an institutional convention for
// house accounts, not a real payment.
type Config struct {
	PrimaryChannel    string
	SecondaryChannels []string
	DeferredMethod    string
	EarlyCutoffHour   int
	LateCutoffHour    int
}

// DefaultConfig returns the standard channel layout.
func DefaultConfig() Config {
	return Config{
		PrimaryChannel:    "pos",
		SecondaryChannels: []string{"delivery", "kiosk"},
		DeferredMethod:    "house_account",
		EarlyCutoffHour:   20,
		LateCutoffHour:    23,
	}
}

// Summary is the weekly revenue picture.
type Summary struct {
	Gross   float64
	Net     float64
	Entry   float64
	InVenue float64
	Repique float64
	Margin  float64

	EarlyShare float64
	LateShare  float64

	AvgTicket        float64
	AvgTicketEntry   float64
	AvgTicketInVenue float64

	CustomersServed int
}

// Aggregator computes the weekly revenue summary.
type Aggregator struct {
	reader source.Reader
	config Config
	logger *logger.Logger
}

// NewAggregator creates a revenue aggregator.
func NewAggregator(reader source.Reader, config Config, log *logger.Logger) *Aggregator {
	return &Aggregator{
		reader: reader,
		config: config,
		logger: log.WithField("component", "revenue"),
	}
}

// Compute aggregates one venue-week.
func (a *Aggregator) Compute(ctx context.Context, venueID int64, week period.Week) (Summary, error) {
	var s Summary

	channels := append([]string{a.config.PrimaryChannel}, a.config.SecondaryChannels...)
	rows, err := a.reader.ReadAll(ctx, source.Query{
		Source:  source.Payments,
		Columns: source.Columns(source.Payments),
		Filters: []source.Filter{
			source.Eq("venue_id", venueID),
			source.Gte("business_date", week.Start),
			source.Lte("business_date", week.End),
			source.In("channel", channels),
		},
	})
	if err != nil {
		return s, fmt.Errorf("read payments: %w", err)
	}

	var primaryNet, earlyNet, lateNet, secondaryNet float64
	for _, p := range source.DecodePayments(rows) {
		if p.Channel == a.config.PrimaryChannel {
			s.Gross += p.GrossAmount
			if p.Method == a.config.DeferredMethod {
				// House-account rows are not real revenue.
				continue
			}
			primaryNet += p.NetAmount
			if p.SoldAt.Hour() < a.config.EarlyCutoffHour {
				earlyNet += p.NetAmount
			}
			if p.SoldAt.Hour() >= a.config.LateCutoffHour {
				lateNet += p.NetAmount
			}
			continue
		}
		secondaryNet += p.NetAmount
	}

	s.Net = primaryNet + secondaryNet
	if primaryNet > 0 {
		s.EarlyShare = earlyNet / primaryNet * 100
		s.LateShare = lateNet / primaryNet * 100
	}

	visitRows, err := a.reader.ReadAll(ctx, source.Query{
		Source:  source.Visits,
		Columns: source.Columns(source.Visits),
		Filters: []source.Filter{
			source.Eq("venue_id", venueID),
			source.Gte("business_date", week.Start),
			source.Lte("business_date", week.End),
		},
	})
	if err != nil {
		return s, fmt.Errorf("read visit periods: %w", err)
	}

	// The visit-period source is the only one carrying reliable
	// headcounts, so tickets come from it rather than revenue/headcount.
	var paySum, entryTicketSum float64
	var headSum int
	for _, v := range source.DecodeVisits(visitRows) {
		s.Entry += v.EntryFee
		s.Repique += v.Repique
		s.CustomersServed += v.Headcount

		if v.Amount > 0 {
			paySum += v.Amount
			entryTicketSum += v.EntryFee
			headSum += v.Headcount
		}
	}

	s.InVenue = s.Net - s.Entry
	s.Margin = s.InVenue - s.Repique

	if headSum > 0 {
		s.AvgTicket = paySum / float64(headSum)
		s.AvgTicketEntry = entryTicketSum / float64(headSum)
		s.AvgTicketInVenue = (paySum - entryTicketSum) / float64(headSum)
	}

	a.logger.WithFields(map[string]interface{}{
		"venue_id": venueID,
		"week":     week.Number,
		"gross":    s.Gross,
		"net":      s.Net,
		"served":   s.CustomersServed,
	}).Debug("Revenue aggregated")

	return s, nil
}
