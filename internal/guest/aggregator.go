// Package guest aggregates the reservation, review and satisfaction
// survey sources into the record's reservation and reputation groups.
package guest

import (
	"context"
	"fmt"

	"github.com/pulsohq/pulso/internal/period"
	"github.com/pulsohq/pulso/internal/source"
	"github.com/pulsohq/pulso/pkg/logger"
)

// Survey categories.
const (
	SurveyOverall  = "overall"
	SurveyFood     = "food"
	SurveyService  = "service"
	SurveyAmbience = "ambience"
)

// NPS score cutoffs on the 0-10 scale.
const (
	promoterMin  = 9
	detractorMax = 6
)

// Summary holds the weekly reservation and reputation figures.
type Summary struct {
	ReservationsTotal   int
	ReservationsHonored int
	ReservedPeople      int
	ShowedPeople        int

	ReviewCount   int
	ReviewAverage float64

	NPSOverall  float64
	NPSFood     float64
	NPSService  float64
	NPSAmbience float64
}

// Aggregator computes the weekly guest summary.
type Aggregator struct {
	reader source.Reader
	logger *logger.Logger
}

// NewAggregator creates a guest aggregator.
func NewAggregator(reader source.Reader, log *logger.Logger) *Aggregator {
	return &Aggregator{
		reader: reader,
		logger: log.WithField("component", "guest"),
	}
}

// Compute aggregates one venue-week.
func (a *Aggregator) Compute(ctx context.Context, venueID int64, week period.Week) (Summary, error) {
	var s Summary

	resRows, err := a.reader.ReadAll(ctx, source.Query{
		Source:  source.Reservations,
		Columns: source.Columns(source.Reservations),
		Filters: []source.Filter{
			source.Eq("venue_id", venueID),
			source.Gte("reserved_for", week.Start),
			source.Lte("reserved_for", week.End),
		},
	})
	if err != nil {
		return s, fmt.Errorf("read reservations: %w", err)
	}

	for _, res := range source.DecodeReservations(resRows) {
		s.ReservationsTotal++
		s.ReservedPeople += res.People
		if res.Honored {
			s.ReservationsHonored++
			s.ShowedPeople += res.ShowedPeople
		}
	}

	reviewRows, err := a.reader.ReadAll(ctx, source.Query{
		Source:  source.Reviews,
		Columns: source.Columns(source.Reviews),
		Filters: []source.Filter{
			source.Eq("venue_id", venueID),
			source.Gte("review_date", week.Start),
			source.Lte("review_date", week.End),
		},
	})
	if err != nil {
		return s, fmt.Errorf("read reviews: %w", err)
	}

	var ratingSum float64
	for _, rev := range source.DecodeReviews(reviewRows) {
		s.ReviewCount++
		ratingSum += rev.Rating
	}
	if s.ReviewCount > 0 {
		s.ReviewAverage = ratingSum / float64(s.ReviewCount)
	}

	surveyRows, err := a.reader.ReadAll(ctx, source.Query{
		Source:  source.Surveys,
		Columns: source.Columns(source.Surveys),
		Filters: []source.Filter{
			source.Eq("venue_id", venueID),
			source.Gte("answered_at", week.Start),
			source.Lte("answered_at", week.End),
		},
	})
	if err != nil {
		return s, fmt.Errorf("read surveys: %w", err)
	}

	type npsAcc struct {
		promoters  int
		detractors int
		total      int
	}
	nps := map[string]*npsAcc{
		SurveyOverall:  {},
		SurveyFood:     {},
		SurveyService:  {},
		SurveyAmbience: {},
	}

	for _, resp := range source.DecodeSurveys(surveyRows) {
		acc, ok := nps[resp.Category]
		if !ok {
			continue
		}
		acc.total++
		if resp.Score >= promoterMin {
			acc.promoters++
		} else if resp.Score <= detractorMax {
			acc.detractors++
		}
	}

	score := func(acc *npsAcc) float64 {
		if acc.total == 0 {
			return 0
		}
		return float64(acc.promoters-acc.detractors) / float64(acc.total) * 100
	}
	s.NPSOverall = score(nps[SurveyOverall])
	s.NPSFood = score(nps[SurveyFood])
	s.NPSService = score(nps[SurveyService])
	s.NPSAmbience = score(nps[SurveyAmbience])

	a.logger.WithFields(map[string]interface{}{
		"venue_id":     venueID,
		"week":         week.Number,
		"reservations": s.ReservationsTotal,
		"reviews":      s.ReviewCount,
	}).Debug("Guest metrics aggregated")

	return s, nil
}
