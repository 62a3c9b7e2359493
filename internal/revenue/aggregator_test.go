package revenue

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

const venueID = int64(7)

func testWeek(t *testing.T) period.Week {
	t.Helper()
	week, err := period.For(2024, 24) // Mon 2024-06-10 .. Sun 2024-06-16
	require.NoError(t, err)
	return week
}

func payment(day time.Time, hour int, channel, method string, amount float64) source.Row {
	return source.Row{venueID, day, day.Add(time.Duration(hour) * time.Hour), channel, method, "salao", amount, amount}
}

func visit(day time.Time, amount float64, headcount int, entryFee, repique float64, phone string) source.Row {
	return source.Row{venueID, day, amount, int32(headcount), entryFee, repique, phone}
}

func TestComputeEndToEnd(t *testing.T) {
	week := testWeek(t)
	mon, wed := week.Start, week.Start.AddDate(0, 0, 2)

	reader := sourcetest.NewReader()
	reader.Add(source.Payments,
		// Primary channel: 10,000 gross, of which 1,200 on house account.
		payment(mon, 21, "pos", "credit", 6000),
		payment(wed, 19, "pos", "cash", 2800),
		payment(wed, 23, "pos", "house_account", 1200),
		// Secondary channels.
		payment(mon, 20, "delivery", "credit", 500),
		payment(wed, 21, "kiosk", "debit", 300),
		// Other weeks and channels are filtered out.
		payment(week.End.AddDate(0, 0, 1), 21, "pos", "cash", 999),
	)
	reader.Add(source.Visits,
		visit(mon, 5000, 120, 500, 30, "11911110000"),
		visit(wed, 3800, 80, 300, 20, "11922220000"),
		visit(wed, -100, 15, 0, 0, ""), // refund row: headcount still served, ticket-excluded
	)

	agg := NewAggregator(reader, DefaultConfig(), logger.NewNop())
	got, err := agg.Compute(context.Background(), venueID, week)
	require.NoError(t, err)

	assert.InDelta(t, 10000.0, got.Gross, 1e-9)
	assert.InDelta(t, 9600.0, got.Net, 1e-9, "net = 10000 - 1200 + 500 + 300")
	assert.InDelta(t, 800.0, got.Entry, 1e-9)
	assert.InDelta(t, 50.0, got.Repique, 1e-9)
	assert.InDelta(t, 8800.0, got.InVenue, 1e-9, "in_venue = net - entry")
	assert.InDelta(t, 8750.0, got.Margin, 1e-9, "margin = in_venue - repique")

	assert.Equal(t, 215, got.CustomersServed)

	// Tickets divide positive visit payments by the same rows' headcounts.
	assert.InDelta(t, 8800.0/200.0, got.AvgTicket, 1e-9)
	assert.InDelta(t, 800.0/200.0, got.AvgTicketEntry, 1e-9)
	assert.InDelta(t, 8000.0/200.0, got.AvgTicketInVenue, 1e-9)
}

func TestComputeSalesTiming(t *testing.T) {
	week := testWeek(t)
	mon := week.Start

	reader := sourcetest.NewReader()
	reader.Add(source.Payments,
		payment(mon, 18, "pos", "credit", 300), // early
		payment(mon, 21, "pos", "credit", 500), // neither
		payment(mon, 23, "pos", "credit", 200), // late
		payment(mon, 23, "pos", "house_account", 400), // excluded entirely
	)

	agg := NewAggregator(reader, DefaultConfig(), logger.NewNop())
	got, err := agg.Compute(context.Background(), venueID, week)
	require.NoError(t, err)

	assert.InDelta(t, 30.0, got.EarlyShare, 1e-9)
	assert.InDelta(t, 20.0, got.LateShare, 1e-9)
}

func TestComputeEmptyWeek(t *testing.T) {
	agg := NewAggregator(sourcetest.NewReader(), DefaultConfig(), logger.NewNop())
	got, err := agg.Compute(context.Background(), venueID, testWeek(t))
	require.NoError(t, err)

	assert.Zero(t, got.Gross)
	assert.Zero(t, got.Net)
	assert.Zero(t, got.AvgTicket)
	assert.Zero(t, got.EarlyShare)
}

func TestComputeSourceFailure(t *testing.T) {
	reader := sourcetest.NewReader()
	reader.Fail(source.Payments)

	agg := NewAggregator(reader, DefaultConfig(), logger.NewNop())
	_, err := agg.Compute(context.Background(), venueID, testWeek(t))
	assert.Error(t, err)
}
