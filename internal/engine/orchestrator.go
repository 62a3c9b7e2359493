// Package engine sequences the weekly aggregators for one venue-week
// and writes the idempotent summary record.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pulsohq/pulso/internal/contracts"
	"github.com/pulsohq/pulso/internal/costs"
	"github.com/pulsohq/pulso/internal/delays"
	"github.com/pulsohq/pulso/internal/guest"
	"github.com/pulsohq/pulso/internal/mix"
	"github.com/pulsohq/pulso/internal/period"
	"github.com/pulsohq/pulso/internal/retention"
	"github.com/pulsohq/pulso/internal/revenue"
	"github.com/pulsohq/pulso/internal/source"
	"github.com/pulsohq/pulso/internal/stockout"
	"github.com/pulsohq/pulso/pkg/logger"
)

// Orchestrator runs a full recompute for one venue-week. The
// aggregators depend only on raw sources, never on each other, so they
// fan out in parallel and join before record assembly.
type Orchestrator struct {
	store Store

	revenue   *revenue.Aggregator
	costs     *costs.Allocator
	delays    *delays.Classifier
	stockout  *stockout.Analyzer
	retention *retention.Calculator
	mix       *mix.Classifier
	guest     *guest.Aggregator

	logger *logger.Logger
}

// Result is one completed recompute.
type Result struct {
	Record   *contracts.WeeklyPerformance `json:"record"`
	Degraded []contracts.Degradation      `json:"degraded,omitempty"`
	Duration time.Duration                `json:"duration"`
}

// NewOrchestrator wires the aggregators over one reader and store.
func NewOrchestrator(store Store, reader source.Reader, cfg Config, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		revenue:   revenue.NewAggregator(reader, cfg.Revenue, log),
		costs:     costs.NewAllocator(reader, cfg.Costs, log),
		delays:    delays.NewClassifier(reader, cfg.Delays, log),
		stockout:  stockout.NewAnalyzer(reader, cfg.Stockout, log),
		retention: retention.NewCalculator(reader, cfg.Retention, log),
		mix:       mix.NewClassifier(reader, cfg.Mix, log),
		guest:     guest.NewAggregator(reader, log),
		logger:    log.WithField("component", "engine"),
	}
}

// EnsureWeek creates the zero-valued row when the week first becomes
// relevant. Terminal success for creation-only calls.
func (o *Orchestrator) EnsureWeek(ctx context.Context, venueID int64, week period.Week) error {
	if venueID <= 0 {
		return fmt.Errorf("%w: venue id %d", ErrMalformedInput, venueID)
	}
	return o.store.CreateEmpty(ctx, venueID, week)
}

// Recompute rebuilds every derived metric for one venue-week and
// upserts the record. A missing target row is fatal; any single
// aggregator failure degrades that metric group to its zero value.
// Concurrent recomputes of the same venue-week must be serialized by
// the caller.
func (o *Orchestrator) Recompute(ctx context.Context, venueID int64, week period.Week) (*Result, error) {
	if venueID <= 0 {
		return nil, fmt.Errorf("%w: venue id %d", ErrMalformedInput, venueID)
	}

	start := time.Now()

	// The week lookup is the only fatal step.
	if _, err := o.store.Get(ctx, venueID, week.Year, week.Number); err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		degraded []contracts.Degradation

		revSummary   revenue.Summary
		costSummary  costs.Summary
		delayReport  delays.Report
		stockReport  stockout.Report
		retReport    retention.Report
		mixReport    mix.Report
		guestSummary guest.Summary

		newCustomers, returningCustomers int
		activeCustomers                  int
	)

	degrade := func(section string, err error) {
		mu.Lock()
		defer mu.Unlock()
		degraded = append(degraded, contracts.Degradation{Section: section, Reason: err.Error()})
		o.logger.WithError(err).WithFields(map[string]interface{}{
			"venue_id": venueID,
			"year":     week.Year,
			"week":     week.Number,
			"section":  section,
		}).Warn("Aggregator degraded to zero values")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if revSummary, err = o.revenue.Compute(gctx, venueID, week); err != nil {
			degrade("revenue", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if costSummary, err = o.costs.Compute(gctx, venueID, week); err != nil {
			degrade("costs", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if delayReport, err = o.delays.Compute(gctx, venueID, week); err != nil {
			degrade("delays", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if stockReport, err = o.stockout.Compute(gctx, venueID, week); err != nil {
			degrade("stockout", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if retReport, err = o.retention.Compute(gctx, venueID, week); err != nil {
			degrade("retention", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if mixReport, err = o.mix.Compute(gctx, venueID, week); err != nil {
			degrade("mix", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if guestSummary, err = o.guest.Compute(gctx, venueID, week); err != nil {
			degrade("guest", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if newCustomers, returningCustomers, err = o.store.CustomerBreakdown(gctx, venueID, week.Start, week.End); err != nil {
			degrade("customer_breakdown", err)
		}
		if activeCustomers, err = o.store.ActiveCustomerCount(gctx, venueID, week.End); err != nil {
			degrade("active_customers", err)
		}
		return nil
	})

	_ = g.Wait()

	rec := o.assemble(venueID, week, revSummary, costSummary, delayReport,
		stockReport, retReport, mixReport, guestSummary,
		newCustomers, returningCustomers, activeCustomers)

	if err := o.store.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("write weekly record: %w", err)
	}

	result := &Result{
		Record:   rec,
		Degraded: degraded,
		Duration: time.Since(start),
	}

	o.logger.WithFields(map[string]interface{}{
		"venue_id": venueID,
		"year":     week.Year,
		"week":     week.Number,
		"degraded": len(degraded),
		"duration": result.Duration,
	}).Info("Weekly recompute written")

	return result, nil
}

// assemble builds the full record. Every ratio against revenue is
// derived here so aggregators stay independent of each other.
func (o *Orchestrator) assemble(
	venueID int64, week period.Week,
	rev revenue.Summary, cost costs.Summary, delay delays.Report,
	stock stockout.Report, ret retention.Report, mixRep mix.Report, g guest.Summary,
	newCustomers, returningCustomers, activeCustomers int,
) *contracts.WeeklyPerformance {
	rec := &contracts.WeeklyPerformance{
		VenueID:    venueID,
		Year:       week.Year,
		WeekNumber: week.Number,
		WeekStart:  week.Start,
		WeekEnd:    week.End,

		GrossRevenue:      rev.Gross,
		NetRevenue:        rev.Net,
		EntryRevenue:      rev.Entry,
		InVenueRevenue:    rev.InVenue,
		RepiqueTotal:      rev.Repique,
		MarginRevenue:     rev.Margin,
		EarlyRevenueShare: rev.EarlyShare,
		LateRevenueShare:  rev.LateShare,

		AvgTicket:        rev.AvgTicket,
		AvgTicketEntry:   rev.AvgTicketEntry,
		AvgTicketInVenue: rev.AvgTicketInVenue,

		CustomersServed: rev.CustomersServed,
		ActiveCustomers: activeCustomers,
		Retention30Pct:  ret.Rate(30),
		Retention60Pct:  ret.Rate(60),

		LaborCostTotal: cost.LaborTotal,

		ReservationsTotal:   g.ReservationsTotal,
		ReservationsHonored: g.ReservationsHonored,
		ReservedPeople:      g.ReservedPeople,
		ShowedPeople:        g.ShowedPeople,

		ReviewCount:   g.ReviewCount,
		ReviewAverage: g.ReviewAverage,
		NPSOverall:    g.NPSOverall,
		NPSFood:       g.NPSFood,
		NPSService:    g.NPSService,
		NPSAmbience:   g.NPSAmbience,

		KitchenUnits:         delay.Kitchen.Units,
		BarUnits:             delay.Bar.Units,
		KitchenMeanSeconds:   delay.Kitchen.MeanSeconds,
		BarMeanSeconds:       delay.Bar.MeanSeconds,
		KitchenMinorDelays:   delay.Kitchen.MinorCount,
		KitchenMajorDelays:   delay.Kitchen.MajorCount,
		KitchenMinorDelayPct: delay.Kitchen.MinorPct,
		KitchenMajorDelayPct: delay.Kitchen.MajorPct,
		BarMinorDelays:       delay.Bar.MinorCount,
		BarMajorDelays:       delay.Bar.MajorCount,
		BarMinorDelayPct:     delay.Bar.MinorPct,
		BarMajorDelayPct:     delay.Bar.MajorPct,
		Cancellations:        delay.Cancellations,
		DelayBreakdown:       delay.Breakdown,

		StockoutBarPct:      stock.BarPct,
		StockoutPreparedPct: stock.PreparedPct,
		StockoutKitchenPct:  stock.KitchenPct,

		MixBeveragesPct: mixRep.BeveragesPct,
		MixKitchenPct:   mixRep.KitchenPct,
		MixPreparedPct:  mixRep.PreparedPct,
	}

	if total := newCustomers + returningCustomers; total > 0 {
		rec.NewCustomerPct = float64(newCustomers) / float64(total) * 100
	}

	if rev.Net > 0 {
		rec.LaborCostPct = cost.LaborTotal / rev.Net * 100
		rec.COGSPct = cost.COGSTotal / rev.Net * 100
		rec.PromoCostPct = cost.PromoTotal / rev.Net * 100
	}

	return rec
}
