package contracts

import "time"

// WeeklyPerformance is one fully derived summary row per
// (venue_id, year, week_number). Every field is either a direct
// aggregate over raw sources or a deterministic function of other
// fields in the same record; the engine never patches it partially.
type WeeklyPerformance struct {
	VenueID    int64     `json:"venue_id"`
	Year       int       `json:"year"`
	WeekNumber int       `json:"week_number"`
	WeekStart  time.Time `json:"week_start"`
	WeekEnd    time.Time `json:"week_end"`

	// Revenue
	GrossRevenue       float64 `json:"gross_revenue"`
	NetRevenue         float64 `json:"net_revenue"`
	EntryRevenue       float64 `json:"entry_revenue"`
	InVenueRevenue     float64 `json:"in_venue_revenue"`
	RepiqueTotal       float64 `json:"repique_total"`
	MarginRevenue      float64 `json:"margin_revenue"`
	EarlyRevenueShare  float64 `json:"early_revenue_share"`
	LateRevenueShare   float64 `json:"late_revenue_share"`

	// Tickets
	AvgTicket        float64 `json:"avg_ticket"`
	AvgTicketEntry   float64 `json:"avg_ticket_entry"`
	AvgTicketInVenue float64 `json:"avg_ticket_in_venue"`

	// Customers
	CustomersServed int     `json:"customers_served"`
	NewCustomerPct  float64 `json:"new_customer_pct"`
	ActiveCustomers int     `json:"active_customers"`
	Retention30Pct  float64 `json:"retention_30_pct"`
	Retention60Pct  float64 `json:"retention_60_pct"`

	// Cost ratios
	COGSPct        float64 `json:"cogs_pct"`
	LaborCostTotal float64 `json:"labor_cost_total"`
	LaborCostPct   float64 `json:"labor_cost_pct"`
	PromoCostPct   float64 `json:"promo_cost_pct"`

	// Reservations
	ReservationsTotal   int `json:"reservations_total"`
	ReservationsHonored int `json:"reservations_honored"`
	ReservedPeople      int `json:"reserved_people"`
	ShowedPeople        int `json:"showed_people"`

	// Reputation
	ReviewCount   int     `json:"review_count"`
	ReviewAverage float64 `json:"review_average"`
	NPSOverall    float64 `json:"nps_overall"`
	NPSFood       float64 `json:"nps_food"`
	NPSService    float64 `json:"nps_service"`
	NPSAmbience   float64 `json:"nps_ambience"`

	// Product operations
	KitchenUnits         int          `json:"kitchen_units"`
	BarUnits             int          `json:"bar_units"`
	KitchenMeanSeconds   float64      `json:"kitchen_mean_seconds"`
	BarMeanSeconds       float64      `json:"bar_mean_seconds"`
	KitchenMinorDelays   int          `json:"kitchen_minor_delays"`
	KitchenMajorDelays   int          `json:"kitchen_major_delays"`
	KitchenMinorDelayPct float64      `json:"kitchen_minor_delay_pct"`
	KitchenMajorDelayPct float64      `json:"kitchen_major_delay_pct"`
	BarMinorDelays       int          `json:"bar_minor_delays"`
	BarMajorDelays       int          `json:"bar_major_delays"`
	BarMinorDelayPct     float64      `json:"bar_minor_delay_pct"`
	BarMajorDelayPct     float64      `json:"bar_major_delay_pct"`
	Cancellations        int          `json:"cancellations"`
	DelayBreakdown       []DelayGroup `json:"delay_breakdown,omitempty"`

	// Stockout per macro-group
	StockoutBarPct      float64 `json:"stockout_bar_pct"`
	StockoutPreparedPct float64 `json:"stockout_prepared_pct"`
	StockoutKitchenPct  float64 `json:"stockout_kitchen_pct"`

	// Sales mix per category
	MixBeveragesPct float64 `json:"mix_beverages_pct"`
	MixKitchenPct   float64 `json:"mix_kitchen_pct"`
	MixPreparedPct  float64 `json:"mix_prepared_pct"`

	UpdatedAt time.Time `json:"updated_at"`
}

// DelayGroup is one (weekday, product) bucket of major-delay orders.
// Weekday follows time.Weekday numbering (Sunday = 0).
type DelayGroup struct {
	Weekday     int     `json:"weekday"`
	Product     string  `json:"product"`
	Count       int     `json:"count"`
	MeanSeconds float64 `json:"mean_seconds"`
}

// Degradation records one aggregator that fell back to zero values
// during a recompute.
type Degradation struct {
	Section string `json:"section"`
	Reason  string `json:"reason"`
}
