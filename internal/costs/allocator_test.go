package costs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsohq/pulso/internal/period"
	"github.com/pulsohq/pulso/internal/source"
	"github.com/pulsohq/pulso/internal/source/sourcetest"
	"github.com/pulsohq/pulso/pkg/logger"
)

const venueID = int64(3)

func entry(date time.Time, category string, amount float64) source.Row {
	return source.Row{venueID, date, category, amount}
}

func TestMonthSegmentsSingleMonth(t *testing.T) {
	week, err := period.For(2024, 24) // 2024-06-10 .. 2024-06-16
	require.NoError(t, err)

	segs := monthSegments(week)
	require.Len(t, segs, 1)
	assert.Equal(t, 7, segs[0].daysInWeek)
	assert.Equal(t, 30, segs[0].daysInMonth)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), segs[0].monthStart)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), segs[0].monthEnd)
}

func TestMonthSegmentsStraddle(t *testing.T) {
	week, err := period.For(2024, 18) // 2024-04-29 .. 2024-05-05
	require.NoError(t, err)

	segs := monthSegments(week)
	require.Len(t, segs, 2)

	assert.Equal(t, 2, segs[0].daysInWeek, "Apr 29-30")
	assert.Equal(t, 30, segs[0].daysInMonth)
	assert.Equal(t, 5, segs[1].daysInWeek, "May 1-5")
	assert.Equal(t, 31, segs[1].daysInMonth)
}

func TestComputeSingleMonthProration(t *testing.T) {
	week, err := period.For(2024, 24)
	require.NoError(t, err)

	reader := sourcetest.NewReader()
	// Payroll accrues across the whole month; only 7/30 belongs to the week.
	reader.Add(source.Ledger,
		entry(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "payroll", 30000),
		entry(time.Date(2024, 6, 25, 0, 0, 0, 0, time.UTC), "retainer", 6000),
		// Variable and COGS inside the window.
		entry(week.Start.AddDate(0, 0, 1), "freelance", 900),
		entry(week.Start.AddDate(0, 0, 3), "staff_meals", 100),
		entry(week.Start.AddDate(0, 0, 2), "food_supplies", 2500),
		entry(week.Start.AddDate(0, 0, 4), "promotion", 400),
		// Variable outside the window: ignored.
		entry(week.End.AddDate(0, 0, 3), "freelance", 777),
	)

	alloc := NewAllocator(reader, DefaultConfig(), logger.NewNop())
	got, err := alloc.Compute(context.Background(), venueID, week)
	require.NoError(t, err)

	wantFixed := 36000.0 * 7.0 / 30.0
	assert.InDelta(t, wantFixed, got.FixedTotal, 1e-9)
	assert.InDelta(t, 1000.0, got.VariableTotal, 1e-9)
	assert.InDelta(t, wantFixed+1000.0, got.LaborTotal, 1e-9)
	assert.InDelta(t, 2500.0, got.COGSTotal, 1e-9)
	assert.InDelta(t, 400.0, got.PromoTotal, 1e-9)
}

func TestComputeStraddleProrationSumsToSegments(t *testing.T) {
	week, err := period.For(2024, 18) // Apr 29 .. May 5
	require.NoError(t, err)

	reader := sourcetest.NewReader()
	reader.Add(source.Ledger,
		entry(time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC), "payroll", 30000),
		entry(time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC), "payroll", 31000),
	)

	alloc := NewAllocator(reader, DefaultConfig(), logger.NewNop())
	got, err := alloc.Compute(context.Background(), venueID, week)
	require.NoError(t, err)

	want := 30000.0*2.0/30.0 + 31000.0*5.0/31.0
	assert.InDelta(t, want, got.FixedTotal, 1e-9)
}

func TestComputeEmpty(t *testing.T) {
	week, err := period.For(2024, 24)
	require.NoError(t, err)

	alloc := NewAllocator(sourcetest.NewReader(), DefaultConfig(), logger.NewNop())
	got, err := alloc.Compute(context.Background(), venueID, week)
	require.NoError(t, err)

	assert.Zero(t, got.LaborTotal)
	assert.Zero(t, got.COGSTotal)
}
