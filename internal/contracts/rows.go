package contracts

import "time"

// Raw source rows. These are immutable historical facts fetched fresh on
// every recompute; they relate to WeeklyPerformance only through the
// (venue_id, date within week) join.

// PaymentLine is one settled transaction line from a revenue channel.
type PaymentLine struct {
	VenueID     int64
	Date        time.Time
	SoldAt      time.Time
	Channel     string
	Method      string
	Location    string
	NetAmount   float64
	GrossAmount float64
}

// VisitPeriod is one table/visit closure from the point of sale. It is
// the only source carrying reliable headcounts and customer phones.
type VisitPeriod struct {
	VenueID   int64
	Date      time.Time
	Amount    float64
	Headcount int
	EntryFee  float64
	Repique   float64
	Phone     string
}

// LedgerEntry is one signed expense accrual.
type LedgerEntry struct {
	VenueID     int64
	AccrualDate time.Time
	Category    string
	Amount      float64
}

// AvailabilitySnapshot is one per-day product availability inspection.
type AvailabilitySnapshot struct {
	VenueID     int64
	Date        time.Time
	ProductID   int64
	ProductName string
	Location    string
	Category    string
	Active      bool
	Sellable    bool
}

// PrepTiming is one order fulfillment timing row. ElapsedBar and
// ElapsedKitchen are the two checkpoint readings in seconds; only
// positive readings are valid observations.
type PrepTiming struct {
	VenueID        int64
	Date           time.Time
	Location       string
	Category       string // "drink" or "food"
	Product        string
	ElapsedBar     float64
	ElapsedKitchen float64
	Cancelled      bool
}

// Reservation is one booking row.
type Reservation struct {
	VenueID        int64
	Date           time.Time
	People         int
	Honored        bool
	ShowedPeople   int
}

// Review is one aggregated external review.
type Review struct {
	VenueID int64
	Date    time.Time
	Rating  float64
}

// SurveyResponse is one satisfaction survey answer, scored 0-10.
type SurveyResponse struct {
	VenueID  int64
	Date     time.Time
	Category string // overall, food, service, ambience
	Score    int
}
