package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsohq/pulso/internal/contracts"
	"github.com/pulsohq/pulso/internal/engine"
	"github.com/pulsohq/pulso/pkg/config"
	"github.com/pulsohq/pulso/pkg/logger"
	"github.com/pulsohq/pulso/pkg/redis"
)

type fakeRecordReader struct {
	rec *contracts.WeeklyPerformance
}

func (f *fakeRecordReader) Get(_ context.Context, venueID int64, year, weekNumber int) (*contracts.WeeklyPerformance, error) {
	if f.rec == nil || f.rec.VenueID != venueID || f.rec.Year != year || f.rec.WeekNumber != weekNumber {
		return nil, engine.ErrWeekNotFound
	}
	return f.rec, nil
}

func disabledCache(t *testing.T) *redis.Cache {
	t.Helper()
	client, err := redis.New(&config.Config{})
	require.NoError(t, err)
	return redis.NewCache(client, "pulso")
}

func TestRecordsGet(t *testing.T) {
	store := &fakeRecordReader{rec: &contracts.WeeklyPerformance{
		VenueID:    7,
		Year:       2026,
		WeekNumber: 35,
		NetRevenue: 9600,
	}}
	h := NewRecordsHandler(store, disabledCache(t), time.Minute, logger.NewNop())

	req := httptest.NewRequest("GET", "/api/records?venue_id=7&year=2026&week_number=35", nil)
	rr := httptest.NewRecorder()
	h.Get(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Success bool                        `json:"success"`
		Cached  bool                        `json:"cached"`
		Data    contracts.WeeklyPerformance `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.False(t, body.Cached)
	assert.InDelta(t, 9600.0, body.Data.NetRevenue, 0.001)
}

func TestRecordsGetNotFound(t *testing.T) {
	h := NewRecordsHandler(&fakeRecordReader{}, disabledCache(t), time.Minute, logger.NewNop())

	req := httptest.NewRequest("GET", "/api/records?venue_id=7&year=2026&week_number=35", nil)
	rr := httptest.NewRecorder()
	h.Get(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRecordsGetRequiresVenue(t *testing.T) {
	h := NewRecordsHandler(&fakeRecordReader{}, disabledCache(t), time.Minute, logger.NewNop())

	req := httptest.NewRequest("GET", "/api/records", nil)
	rr := httptest.NewRecorder()
	h.Get(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
