package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pulsohq/pulso/internal/batch"
	"github.com/pulsohq/pulso/internal/engine"
	"github.com/pulsohq/pulso/internal/period"
	"github.com/pulsohq/pulso/pkg/logger"
)

// VenueLister enumerates the venues eligible for recompute.
type VenueLister interface {
	ActiveVenueIDs(ctx context.Context) ([]int64, error)
}

// RecomputeHandler handles recompute API endpoints.
type RecomputeHandler struct {
	engine batch.Recomputer
	driver *batch.Driver
	venues VenueLister
	logger *logger.Logger
}

// NewRecomputeHandler creates a recompute handler.
func NewRecomputeHandler(eng batch.Recomputer, driver *batch.Driver, venues VenueLister, log *logger.Logger) *RecomputeHandler {
	return &RecomputeHandler{
		engine: eng,
		driver: driver,
		venues: venues,
		logger: log,
	}
}

// RecomputeRequest selects what to recompute. Year and week default to
// the current ISO week; recompute_all fans out over every active
// venue instead of a single one.
type RecomputeRequest struct {
	VenueID      int64 `json:"venue_id"`
	Year         int   `json:"year"`
	WeekNumber   int   `json:"week_number"`
	RecomputeAll bool  `json:"recompute_all"`
	Limit        int   `json:"limit"`
}

func (req *RecomputeRequest) week() (period.Week, error) {
	if req.Year == 0 && req.WeekNumber == 0 {
		return period.Of(time.Now()), nil
	}
	return period.For(req.Year, req.WeekNumber)
}

// Recompute rebuilds the weekly record for one venue, or for every
// active venue when recompute_all is set.
// POST /api/recompute
func (h *RecomputeHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RecomputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	week, err := req.week()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.RecomputeAll {
		h.recomputeAll(ctx, w, week, req.Limit)
		return
	}

	result, err := h.engine.Recompute(ctx, req.VenueID, week)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrWeekNotFound):
			respondError(w, http.StatusNotFound, "Weekly record not found for this venue-week")
		case errors.Is(err, engine.ErrMalformedInput):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.WithError(err).Error("Recompute failed")
			respondError(w, http.StatusInternalServerError, "Recompute failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}

func (h *RecomputeHandler) recomputeAll(ctx context.Context, w http.ResponseWriter, week period.Week, limit int) {
	venueIDs, err := h.venues.ActiveVenueIDs(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list active venues")
		respondError(w, http.StatusInternalServerError, "Failed to list active venues")
		return
	}
	if limit > 0 && limit < len(venueIDs) {
		venueIDs = venueIDs[:limit]
	}

	summary, err := h.driver.Run(ctx, batch.Expand(venueIDs, week))
	if err != nil {
		h.logger.WithError(err).Error("Batch recompute aborted")
		respondError(w, http.StatusInternalServerError, "Batch recompute aborted")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    summary,
	})
}

// EnsureRequest targets one venue-week for creation.
type EnsureRequest struct {
	VenueID    int64 `json:"venue_id"`
	Year       int   `json:"year"`
	WeekNumber int   `json:"week_number"`
}

// EnsureWeek creates the zero-valued weekly row if it does not exist.
// POST /api/recompute/ensure
func (h *RecomputeHandler) EnsureWeek(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req EnsureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	week, err := (&RecomputeRequest{Year: req.Year, WeekNumber: req.WeekNumber}).week()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.EnsureWeek(ctx, req.VenueID, week); err != nil {
		if errors.Is(err, engine.ErrMalformedInput) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithError(err).Error("Failed to ensure weekly row")
		respondError(w, http.StatusInternalServerError, "Failed to ensure weekly row")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"venue_id":    req.VenueID,
			"year":        week.Year,
			"week_number": week.Number,
		},
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
