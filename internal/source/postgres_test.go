package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSQL(t *testing.T) {
	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)

	q := Query{
		Source:  Ledger,
		Columns: Columns(Ledger),
		Filters: []Filter{
			Eq("venue_id", int64(7)),
			Gte("accrual_date", start),
			Lte("accrual_date", end),
			In("category", []string{"payroll", "meals"}),
		},
	}

	sql, args := buildSQL(q)

	assert.Equal(t,
		"SELECT venue_id, accrual_date, category, amount FROM raw.expense_ledger"+
			" WHERE venue_id = $1 AND accrual_date >= $2 AND accrual_date <= $3 AND category = ANY($4)"+
			" ORDER BY id LIMIT $5 OFFSET $6",
		sql)
	require.Len(t, args, 4)
	assert.Equal(t, int64(7), args[0])
}

func TestBuildSQLNoFilters(t *testing.T) {
	sql, args := buildSQL(Query{Source: Reviews, Columns: Columns(Reviews)})

	assert.Equal(t, "SELECT venue_id, review_date, rating FROM raw.reviews ORDER BY id LIMIT $1 OFFSET $2", sql)
	assert.Empty(t, args)
}

func TestQueryValidate(t *testing.T) {
	tests := []struct {
		name    string
		q       Query
		wantErr bool
	}{
		{
			name: "valid",
			q:    Query{Source: Visits, Filters: []Filter{Eq("venue_id", int64(1))}},
		},
		{
			name:    "unknown source",
			q:       Query{Source: "orders"},
			wantErr: true,
		},
		{
			name:    "unknown filter column",
			q:       Query{Source: Visits, Filters: []Filter{Eq("customer_id", 1)}},
			wantErr: true,
		},
		{
			name:    "unknown op",
			q:       Query{Source: Visits, Filters: []Filter{{Column: "venue_id", Op: "like", Value: "x"}}},
			wantErr: true,
		},
		{
			name:    "unknown projection column",
			q:       Query{Source: Reviews, Columns: []string{"stars"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCoerce(t *testing.T) {
	assert.Equal(t, "abc", asString([]byte("abc")))
	assert.Equal(t, 12.5, asFloat(float32(12.5)))
	assert.Equal(t, 42.0, asFloat(int64(42)))
	assert.Equal(t, int64(7), asInt64(int32(7)))
	assert.True(t, asBool("t"))
	assert.False(t, asBool(nil))

	day := asTime("2024-06-12")
	assert.Equal(t, time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), day)
	assert.True(t, asTime(nil).IsZero())
}

func TestDecodeVisitsSkipsShortRows(t *testing.T) {
	rows := []Row{
		{int64(1), time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), 250.0, int32(4), 80.0, 5.0, "+55 (11) 91234-5678"},
		{int64(1)}, // malformed
	}

	visits := DecodeVisits(rows)
	require.Len(t, visits, 1)
	assert.Equal(t, 4, visits[0].Headcount)
	assert.Equal(t, 250.0, visits[0].Amount)
	assert.Equal(t, "+55 (11) 91234-5678", visits[0].Phone)
}
