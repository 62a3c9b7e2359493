package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsohq/pulso/internal/batch"
	"github.com/pulsohq/pulso/internal/contracts"
	"github.com/pulsohq/pulso/internal/engine"
	"github.com/pulsohq/pulso/internal/period"
	"github.com/pulsohq/pulso/pkg/logger"
)

type fakeEngine struct {
	mu         sync.Mutex
	recomputed []int64
	ensured    []int64
	missing    bool
}

func (f *fakeEngine) EnsureWeek(_ context.Context, venueID int64, _ period.Week) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured = append(f.ensured, venueID)
	return nil
}

func (f *fakeEngine) Recompute(_ context.Context, venueID int64, week period.Week) (*engine.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing {
		return nil, engine.ErrWeekNotFound
	}
	f.recomputed = append(f.recomputed, venueID)
	return &engine.Result{Record: &contracts.WeeklyPerformance{
		VenueID:    venueID,
		Year:       week.Year,
		WeekNumber: week.Number,
	}}, nil
}

type fakeVenues struct {
	ids []int64
}

func (f *fakeVenues) ActiveVenueIDs(context.Context) ([]int64, error) {
	return f.ids, nil
}

func newRecomputeHandler(eng *fakeEngine, venues *fakeVenues) *RecomputeHandler {
	driver := batch.NewDriver(eng, batch.Config{GroupSize: 2, GroupDelay: time.Millisecond}, logger.NewNop())
	return NewRecomputeHandler(eng, driver, venues, logger.NewNop())
}

func TestRecomputeSingleVenue(t *testing.T) {
	eng := &fakeEngine{}
	h := newRecomputeHandler(eng, &fakeVenues{})

	body := `{"venue_id": 7, "year": 2026, "week_number": 35}`
	req := httptest.NewRequest("POST", "/api/recompute", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Recompute(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []int64{7}, eng.recomputed)
}

func TestRecomputeMissingWeekIs404(t *testing.T) {
	eng := &fakeEngine{missing: true}
	h := newRecomputeHandler(eng, &fakeVenues{})

	body := `{"venue_id": 7, "year": 2026, "week_number": 35}`
	req := httptest.NewRequest("POST", "/api/recompute", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Recompute(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRecomputeInvalidWeek(t *testing.T) {
	h := newRecomputeHandler(&fakeEngine{}, &fakeVenues{})

	body := `{"venue_id": 7, "year": 2026, "week_number": 60}`
	req := httptest.NewRequest("POST", "/api/recompute", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Recompute(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRecomputeAllFansOut(t *testing.T) {
	eng := &fakeEngine{}
	h := newRecomputeHandler(eng, &fakeVenues{ids: []int64{1, 2, 3, 4}})

	body := `{"recompute_all": true, "year": 2026, "week_number": 35, "limit": 3}`
	req := httptest.NewRequest("POST", "/api/recompute", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Recompute(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.ElementsMatch(t, []int64{1, 2, 3}, eng.recomputed)

	var resp struct {
		Data batch.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Data.Succeeded)
}

func TestEnsureWeek(t *testing.T) {
	eng := &fakeEngine{}
	h := newRecomputeHandler(eng, &fakeVenues{})

	body := `{"venue_id": 9, "year": 2026, "week_number": 1}`
	req := httptest.NewRequest("POST", "/api/recompute/ensure", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.EnsureWeek(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []int64{9}, eng.ensured)
}
