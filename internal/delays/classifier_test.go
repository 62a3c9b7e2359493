package delays

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

const venueID = int64(5)

func timing(date time.Time, category, product string, elapsedBar, elapsedKitchen float64, cancelled bool) source.Row {
	return source.Row{venueID, date, "salao", category, product, elapsedBar, elapsedKitchen, cancelled}
}

func TestComputeChannels(t *testing.T) {
	week, err := period.For(2024, 24)
	require.NoError(t, err)
	mon, tue := week.Start, week.Start.AddDate(0, 0, 1)

	reader := sourcetest.NewReader()
	reader.Add(source.Timings,
		// Bar channel (drink, elapsed A): minor >= 240s, major >= 480s.
		timing(mon, "drink", "caipirinha", 120, 0, false),
		timing(mon, "drink", "caipirinha", 300, 0, false), // minor only
		timing(tue, "drink", "gin_tonica", 600, 0, false), // minor + major
		timing(tue, "drink", "gin_tonica", -5, 0, false),  // artifact, dropped
		// Kitchen channel (food, elapsed B): minor >= 900s, major >= 1200s.
		timing(mon, "food", "burger", 0, 800, false),
		timing(mon, "food", "burger", 0, 1000, false),  // minor only
		timing(tue, "food", "parmegiana", 0, 1500, false), // minor + major
		timing(tue, "food", "parmegiana", 0, 1300, true),  // cancelled
	)

	cls := NewClassifier(reader, DefaultConfig(), logger.NewNop())
	got, err := cls.Compute(context.Background(), venueID, week)
	require.NoError(t, err)

	assert.Equal(t, 3, got.Bar.Units)
	assert.InDelta(t, (120.0+300.0+600.0)/3.0, got.Bar.MeanSeconds, 1e-9)
	assert.Equal(t, 2, got.Bar.MinorCount)
	assert.Equal(t, 1, got.Bar.MajorCount)
	assert.InDelta(t, 200.0/3.0, got.Bar.MinorPct, 1e-9)
	assert.InDelta(t, 100.0/3.0, got.Bar.MajorPct, 1e-9)

	assert.Equal(t, 3, got.Kitchen.Units)
	assert.InDelta(t, (800.0+1000.0+1500.0)/3.0, got.Kitchen.MeanSeconds, 1e-9)
	assert.Equal(t, 2, got.Kitchen.MinorCount)
	assert.Equal(t, 1, got.Kitchen.MajorCount)

	assert.Equal(t, 1, got.Cancellations)
}

func TestMajorNeverExceedsMinor(t *testing.T) {
	week, err := period.For(2024, 24)
	require.NoError(t, err)

	reader := sourcetest.NewReader()
	elapsed := []float64{30, 250, 480, 500, 900, 100, 240, 479}
	for _, e := range elapsed {
		reader.Add(source.Timings, timing(week.Start, "drink", "mojito", e, 0, false))
	}

	cls := NewClassifier(reader, DefaultConfig(), logger.NewNop())
	got, err := cls.Compute(context.Background(), venueID, week)
	require.NoError(t, err)

	// Anything at/above the major threshold is also at/above the minor one.
	assert.LessOrEqual(t, got.Bar.MajorCount, got.Bar.MinorCount)
	assert.Equal(t, 6, got.Bar.MinorCount)
	assert.Equal(t, 3, got.Bar.MajorCount)
}

func TestBreakdownSorting(t *testing.T) {
	week, err := period.For(2024, 24)
	require.NoError(t, err)
	mon := week.Start // Monday

	reader := sourcetest.NewReader()
	reader.Add(source.Timings,
		timing(mon, "drink", "mojito", 500, 0, false),
		timing(mon, "drink", "mojito", 700, 0, false),
		timing(mon, "drink", "caipirinha", 900, 0, false),
		timing(mon.AddDate(0, 0, 1), "drink", "mojito", 480, 0, false),
	)

	cls := NewClassifier(reader, DefaultConfig(), logger.NewNop())
	got, err := cls.Compute(context.Background(), venueID, week)
	require.NoError(t, err)

	require.Len(t, got.Breakdown, 3)

	// Monday groups first, highest mean lateness first within the day.
	assert.Equal(t, int(time.Monday), got.Breakdown[0].Weekday)
	assert.Equal(t, "caipirinha", got.Breakdown[0].Product)
	assert.InDelta(t, 900.0, got.Breakdown[0].MeanSeconds, 1e-9)

	assert.Equal(t, "mojito", got.Breakdown[1].Product)
	assert.Equal(t, 2, got.Breakdown[1].Count)
	assert.InDelta(t, 600.0, got.Breakdown[1].MeanSeconds, 1e-9)

	assert.Equal(t, int(time.Tuesday), got.Breakdown[2].Weekday)
}

func TestComputeEmpty(t *testing.T) {
	week, err := period.For(2024, 24)
	require.NoError(t, err)

	cls := NewClassifier(sourcetest.NewReader(), DefaultConfig(), logger.NewNop())
	got, err := cls.Compute(context.Background(), venueID, week)
	require.NoError(t, err)

	assert.Zero(t, got.Bar.Units)
	assert.Zero(t, got.Kitchen.MeanSeconds)
	assert.Empty(t, got.Breakdown)
}
