package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pulsohq/pulso/internal/contracts"
	"github.com/pulsohq/pulso/internal/engine"
	"github.com/pulsohq/pulso/internal/period"
	"github.com/pulsohq/pulso/pkg/logger"
	"github.com/pulsohq/pulso/pkg/redis"
)

// RecordReader fetches stored weekly records.
type RecordReader interface {
	Get(ctx context.Context, venueID int64, year, weekNumber int) (*contracts.WeeklyPerformance, error)
}

// RecordsHandler serves stored weekly performance records. Reads go
// through the cache; recomputes overwrite the row, so entries carry a
// short TTL instead of explicit invalidation.
type RecordsHandler struct {
	store  RecordReader
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewRecordsHandler creates a records handler.
func NewRecordsHandler(store RecordReader, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *RecordsHandler {
	return &RecordsHandler{
		store:  store,
		cache:  cache,
		ttl:    ttl,
		logger: log,
	}
}

// Get returns one weekly record.
// GET /api/records?venue_id=1&year=2026&week_number=35
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	venueID, err := strconv.ParseInt(r.URL.Query().Get("venue_id"), 10, 64)
	if err != nil || venueID <= 0 {
		respondError(w, http.StatusBadRequest, "venue_id is required")
		return
	}

	week := period.Of(time.Now())
	year, weekNumber := week.Year, week.Number
	if v := r.URL.Query().Get("year"); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			respondError(w, http.StatusBadRequest, "invalid year")
			return
		}
	}
	if v := r.URL.Query().Get("week_number"); v != "" {
		if weekNumber, err = strconv.Atoi(v); err != nil {
			respondError(w, http.StatusBadRequest, "invalid week_number")
			return
		}
	}

	cacheKey := fmt.Sprintf("records:%d:%d:%d", venueID, year, weekNumber)

	var rec contracts.WeeklyPerformance
	if found, err := h.cache.Get(ctx, cacheKey, &rec); err == nil && found {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"cached":  true,
			"data":    rec,
		})
		return
	}

	stored, err := h.store.Get(ctx, venueID, year, weekNumber)
	if err != nil {
		if errors.Is(err, engine.ErrWeekNotFound) {
			respondError(w, http.StatusNotFound, "Weekly record not found")
			return
		}
		h.logger.WithError(err).Error("Failed to get weekly record")
		respondError(w, http.StatusInternalServerError, "Failed to get weekly record")
		return
	}

	if err := h.cache.Set(ctx, cacheKey, stored, h.ttl); err != nil {
		h.logger.WithError(err).Warn("Failed to cache weekly record")
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"cached":  false,
		"data":    stored,
	})
}
