package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsohq/pulso/internal/contracts"
	"github.com/pulsohq/pulso/internal/period"
	"github.com/pulsohq/pulso/internal/source"
	"github.com/pulsohq/pulso/internal/source/sourcetest"
	"github.com/pulsohq/pulso/pkg/logger"
)

type recordKey struct {
	venueID    int64
	year, week int
}

type fakeStore struct {
	mu      sync.Mutex
	records map[recordKey]*contracts.WeeklyPerformance

	newCustomers       int
	returningCustomers int
	activeCustomers    int

	upserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[recordKey]*contracts.WeeklyPerformance)}
}

func (s *fakeStore) Get(_ context.Context, venueID int64, year, weekNumber int) (*contracts.WeeklyPerformance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recordKey{venueID, year, weekNumber}]
	if !ok {
		return nil, ErrWeekNotFound
	}
	return rec, nil
}

func (s *fakeStore) CreateEmpty(_ context.Context, venueID int64, week period.Week) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{venueID, week.Year, week.Number}
	if _, ok := s.records[key]; ok {
		return nil
	}
	s.records[key] = &contracts.WeeklyPerformance{
		VenueID:    venueID,
		Year:       week.Year,
		WeekNumber: week.Number,
		WeekStart:  week.Start,
		WeekEnd:    week.End,
	}
	return nil
}

func (s *fakeStore) Upsert(_ context.Context, rec *contracts.WeeklyPerformance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	s.records[recordKey{rec.VenueID, rec.Year, rec.WeekNumber}] = rec
	return nil
}

func (s *fakeStore) CustomerBreakdown(_ context.Context, _ int64, _, _ time.Time) (int, int, error) {
	return s.newCustomers, s.returningCustomers, nil
}

func (s *fakeStore) ActiveCustomerCount(_ context.Context, _ int64, _ time.Time) (int, error) {
	return s.activeCustomers, nil
}

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

// seedWeek loads a small but complete venue-week into the fake reader.
// Week 18 of 2024 straddles April (Mon 29, Tue 30) and May (Wed 1 to
// Sun 5), which exercises the month-proportional cost split too.
func seedWeek(r *sourcetest.Reader) {
	r.Add(source.Payments,
		source.Row{int64(1), day(2024, 5, 1, 0), day(2024, 5, 1, 21), "pos", "card", "bar", 100.0, 110.0},
		source.Row{int64(1), day(2024, 5, 2, 0), day(2024, 5, 2, 19), "pos", "cash", "kitchen", 50.0, 55.0},
		source.Row{int64(1), day(2024, 5, 2, 0), day(2024, 5, 2, 23), "pos", "house_account", "bar", 40.0, 44.0},
		source.Row{int64(1), day(2024, 5, 3, 0), day(2024, 5, 3, 22), "delivery", "card", "kitchen", 30.0, 33.0},
	)
	r.Add(source.Visits,
		source.Row{int64(1), day(2024, 5, 1, 0), 120.0, int64(3), 20.0, 5.0, "11987654321"},
		source.Row{int64(1), day(2024, 5, 2, 0), 0.0, int64(2), 0.0, 0.0, "11912345678"},
	)
	r.Add(source.Ledger,
		// Fixed categories are read over the full month and prorated.
		source.Row{int64(1), day(2024, 4, 10, 0), "payroll", 300.0},
		source.Row{int64(1), day(2024, 5, 20, 0), "payroll", 310.0},
		source.Row{int64(1), day(2024, 5, 2, 0), "freelance", 30.0},
		source.Row{int64(1), day(2024, 5, 3, 0), "food_supplies", 36.0},
		source.Row{int64(1), day(2024, 4, 30, 0), "promotion", 18.0},
	)
	r.Add(source.Timings,
		source.Row{int64(1), day(2024, 5, 1, 0), "bar", "drink", "caipirinha", 120.0, 0.0, false},
		source.Row{int64(1), day(2024, 5, 1, 0), "bar", "drink", "gin tonic", 500.0, 0.0, false},
		source.Row{int64(1), day(2024, 5, 2, 0), "kitchen", "food", "burger", 0.0, 1300.0, false},
		source.Row{int64(1), day(2024, 5, 2, 0), "kitchen", "food", "fries", 0.0, 600.0, true},
	)
	r.Add(source.Reviews,
		source.Row{int64(1), day(2024, 5, 4, 0), 5.0},
		source.Row{int64(1), day(2024, 5, 5, 0), 4.0},
	)
	r.Add(source.Surveys,
		source.Row{int64(1), day(2024, 5, 4, 12), "overall", int64(10)},
		source.Row{int64(1), day(2024, 5, 4, 12), "overall", int64(6)},
	)
}

func testWeek(t *testing.T) period.Week {
	t.Helper()
	week, err := period.For(2024, 18)
	require.NoError(t, err)
	return week
}

func newTestOrchestrator(store Store, reader source.Reader) *Orchestrator {
	return NewOrchestrator(store, reader, DefaultConfig(), logger.NewNop())
}

func TestRecomputeMissingWeekIsFatal(t *testing.T) {
	o := newTestOrchestrator(newFakeStore(), sourcetest.NewReader())

	_, err := o.Recompute(context.Background(), 1, testWeek(t))
	require.ErrorIs(t, err, ErrWeekNotFound)
}

func TestRecomputeRejectsMalformedVenue(t *testing.T) {
	o := newTestOrchestrator(newFakeStore(), sourcetest.NewReader())

	_, err := o.Recompute(context.Background(), 0, testWeek(t))
	require.ErrorIs(t, err, ErrMalformedInput)

	err = o.EnsureWeek(context.Background(), -3, testWeek(t))
	require.ErrorIs(t, err, ErrMalformedInput)
}

func TestRecomputeFullWeek(t *testing.T) {
	week := testWeek(t)
	store := newFakeStore()
	store.newCustomers = 3
	store.returningCustomers = 7
	store.activeCustomers = 42
	require.NoError(t, store.CreateEmpty(context.Background(), 1, week))

	reader := sourcetest.NewReader()
	seedWeek(reader)

	o := newTestOrchestrator(store, reader)
	res, err := o.Recompute(context.Background(), 1, week)
	require.NoError(t, err)
	require.Empty(t, res.Degraded)

	rec := res.Record
	// Gross keeps the house-account row, net drops it.
	assert.InDelta(t, 209.0, rec.GrossRevenue, 0.001)
	assert.InDelta(t, 180.0, rec.NetRevenue, 0.001)
	assert.InDelta(t, 20.0, rec.EntryRevenue, 0.001)
	assert.InDelta(t, 160.0, rec.InVenueRevenue, 0.001)
	assert.InDelta(t, 155.0, rec.MarginRevenue, 0.001)
	assert.InDelta(t, 120.0/3, rec.AvgTicket, 0.001)
	assert.Equal(t, 5, rec.CustomersServed)

	// April payroll 300*2/30, May payroll 310*5/31, freelance 30.
	assert.InDelta(t, 100.0, rec.LaborCostTotal, 0.001)
	assert.InDelta(t, 100.0/180*100, rec.LaborCostPct, 0.001)
	assert.InDelta(t, 36.0/180*100, rec.COGSPct, 0.001)
	assert.InDelta(t, 18.0/180*100, rec.PromoCostPct, 0.001)

	assert.Equal(t, 2, rec.BarUnits)
	assert.Equal(t, 1, rec.KitchenUnits)
	assert.Equal(t, 1, rec.BarMinorDelays)
	assert.Equal(t, 1, rec.KitchenMinorDelays)
	assert.Equal(t, 1, rec.KitchenMajorDelays)
	assert.Equal(t, 1, rec.Cancellations)

	assert.Equal(t, 2, rec.ReviewCount)
	assert.InDelta(t, 4.5, rec.ReviewAverage, 0.001)
	// One promoter, one detractor.
	assert.InDelta(t, 0.0, rec.NPSOverall, 0.001)

	assert.InDelta(t, 30.0, rec.NewCustomerPct, 0.001)
	assert.Equal(t, 42, rec.ActiveCustomers)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	week := testWeek(t)
	store := newFakeStore()
	store.newCustomers = 2
	store.returningCustomers = 8
	require.NoError(t, store.CreateEmpty(context.Background(), 1, week))

	reader := sourcetest.NewReader()
	seedWeek(reader)

	o := newTestOrchestrator(store, reader)
	first, err := o.Recompute(context.Background(), 1, week)
	require.NoError(t, err)
	second, err := o.Recompute(context.Background(), 1, week)
	require.NoError(t, err)

	assert.Equal(t, first.Record, second.Record)
	assert.Equal(t, 2, store.upserts)
}

func TestRecomputeAdditivity(t *testing.T) {
	week := testWeek(t)
	store := newFakeStore()
	require.NoError(t, store.CreateEmpty(context.Background(), 1, week))

	reader := sourcetest.NewReader()
	seedWeek(reader)

	o := newTestOrchestrator(store, reader)
	res, err := o.Recompute(context.Background(), 1, week)
	require.NoError(t, err)

	rec := res.Record
	assert.InDelta(t, rec.NetRevenue-rec.EntryRevenue, rec.InVenueRevenue, 0.001)
	assert.InDelta(t, rec.InVenueRevenue-rec.RepiqueTotal, rec.MarginRevenue, 0.001)
	assert.LessOrEqual(t, rec.BarMajorDelays, rec.BarMinorDelays)
	assert.LessOrEqual(t, rec.KitchenMajorDelays, rec.KitchenMinorDelays)
}

func TestRecomputeDegradesFailedSections(t *testing.T) {
	week := testWeek(t)
	store := newFakeStore()
	require.NoError(t, store.CreateEmpty(context.Background(), 1, week))

	reader := sourcetest.NewReader()
	seedWeek(reader)
	reader.Fail(source.Payments)

	o := newTestOrchestrator(store, reader)
	res, err := o.Recompute(context.Background(), 1, week)
	require.NoError(t, err)

	sections := make(map[string]bool)
	for _, d := range res.Degraded {
		sections[d.Section] = true
	}
	// Revenue and sales mix both read payments.
	assert.True(t, sections["revenue"])
	assert.True(t, sections["mix"])

	rec := res.Record
	assert.Zero(t, rec.NetRevenue)
	assert.Zero(t, rec.MixBeveragesPct)
	// Costs read the ledger and survive the payment outage.
	assert.InDelta(t, 100.0, rec.LaborCostTotal, 0.001)
	assert.Equal(t, 1, store.upserts)
}
