package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsohq/pulso/internal/contracts"
	"github.com/pulsohq/pulso/internal/period"
)

// Store is what the orchestrator needs from persistence.
type Store interface {
	Get(ctx context.Context, venueID int64, year, weekNumber int) (*contracts.WeeklyPerformance, error)
	CreateEmpty(ctx context.Context, venueID int64, week period.Week) error
	Upsert(ctx context.Context, rec *contracts.WeeklyPerformance) error
	CustomerBreakdown(ctx context.Context, venueID int64, start, end time.Time) (newCount, returningCount int, err error)
	ActiveCustomerCount(ctx context.Context, venueID int64, asOf time.Time) (int, error)
}

// Repository persists weekly performance records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a record repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `
	venue_id, year, week_number, week_start, week_end,
	gross_revenue, net_revenue, entry_revenue, in_venue_revenue, repique_total, margin_revenue,
	early_revenue_share, late_revenue_share,
	avg_ticket, avg_ticket_entry, avg_ticket_in_venue,
	customers_served, new_customer_pct, active_customers, retention_30_pct, retention_60_pct,
	cogs_pct, labor_cost_total, labor_cost_pct, promo_cost_pct,
	reservations_total, reservations_honored, reserved_people, showed_people,
	review_count, review_average, nps_overall, nps_food, nps_service, nps_ambience,
	kitchen_units, bar_units, kitchen_mean_seconds, bar_mean_seconds,
	kitchen_minor_delays, kitchen_major_delays, kitchen_minor_delay_pct, kitchen_major_delay_pct,
	bar_minor_delays, bar_major_delays, bar_minor_delay_pct, bar_major_delay_pct,
	cancellations, delay_breakdown,
	stockout_bar_pct, stockout_prepared_pct, stockout_kitchen_pct,
	mix_beverages_pct, mix_kitchen_pct, mix_prepared_pct,
	updated_at`

// Get retrieves one record, ErrWeekNotFound when absent.
func (r *Repository) Get(ctx context.Context, venueID int64, year, weekNumber int) (*contracts.WeeklyPerformance, error) {
	query := `SELECT ` + recordColumns + `
		FROM metrics.weekly_performance
		WHERE venue_id = $1 AND year = $2 AND week_number = $3`

	var rec contracts.WeeklyPerformance
	var breakdownJSON []byte

	err := r.pool.QueryRow(ctx, query, venueID, year, weekNumber).Scan(
		&rec.VenueID, &rec.Year, &rec.WeekNumber, &rec.WeekStart, &rec.WeekEnd,
		&rec.GrossRevenue, &rec.NetRevenue, &rec.EntryRevenue, &rec.InVenueRevenue, &rec.RepiqueTotal, &rec.MarginRevenue,
		&rec.EarlyRevenueShare, &rec.LateRevenueShare,
		&rec.AvgTicket, &rec.AvgTicketEntry, &rec.AvgTicketInVenue,
		&rec.CustomersServed, &rec.NewCustomerPct, &rec.ActiveCustomers, &rec.Retention30Pct, &rec.Retention60Pct,
		&rec.COGSPct, &rec.LaborCostTotal, &rec.LaborCostPct, &rec.PromoCostPct,
		&rec.ReservationsTotal, &rec.ReservationsHonored, &rec.ReservedPeople, &rec.ShowedPeople,
		&rec.ReviewCount, &rec.ReviewAverage, &rec.NPSOverall, &rec.NPSFood, &rec.NPSService, &rec.NPSAmbience,
		&rec.KitchenUnits, &rec.BarUnits, &rec.KitchenMeanSeconds, &rec.BarMeanSeconds,
		&rec.KitchenMinorDelays, &rec.KitchenMajorDelays, &rec.KitchenMinorDelayPct, &rec.KitchenMajorDelayPct,
		&rec.BarMinorDelays, &rec.BarMajorDelays, &rec.BarMinorDelayPct, &rec.BarMajorDelayPct,
		&rec.Cancellations, &breakdownJSON,
		&rec.StockoutBarPct, &rec.StockoutPreparedPct, &rec.StockoutKitchenPct,
		&rec.MixBeveragesPct, &rec.MixKitchenPct, &rec.MixPreparedPct,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWeekNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get weekly record: %w", err)
	}

	if len(breakdownJSON) > 0 {
		if err := json.Unmarshal(breakdownJSON, &rec.DelayBreakdown); err != nil {
			return nil, fmt.Errorf("unmarshal delay breakdown: %w", err)
		}
	}

	return &rec, nil
}

// CreateEmpty inserts a zero-valued row when the week first becomes
// relevant; an existing row is left untouched.
func (r *Repository) CreateEmpty(ctx context.Context, venueID int64, week period.Week) error {
	query := `
		INSERT INTO metrics.weekly_performance (venue_id, year, week_number, week_start, week_end, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (venue_id, year, week_number) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query, venueID, week.Year, week.Number, week.Start, week.End)
	if err != nil {
		return fmt.Errorf("create empty weekly record: %w", err)
	}
	return nil
}

// Upsert writes the full recomputed record, keyed by
// (venue_id, year, week_number). The row is always overwritten whole;
// this engine never patches fields individually.
func (r *Repository) Upsert(ctx context.Context, rec *contracts.WeeklyPerformance) error {
	breakdownJSON, err := json.Marshal(rec.DelayBreakdown)
	if err != nil {
		return fmt.Errorf("marshal delay breakdown: %w", err)
	}

	query := `
		INSERT INTO metrics.weekly_performance (` + recordColumns + `)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11,
			$12, $13,
			$14, $15, $16,
			$17, $18, $19, $20, $21,
			$22, $23, $24, $25,
			$26, $27, $28, $29,
			$30, $31, $32, $33, $34, $35,
			$36, $37, $38, $39,
			$40, $41, $42, $43,
			$44, $45, $46, $47,
			$48, $49,
			$50, $51, $52,
			$53, $54, $55,
			NOW()
		)
		ON CONFLICT (venue_id, year, week_number) DO UPDATE SET
			week_start = EXCLUDED.week_start,
			week_end = EXCLUDED.week_end,
			gross_revenue = EXCLUDED.gross_revenue,
			net_revenue = EXCLUDED.net_revenue,
			entry_revenue = EXCLUDED.entry_revenue,
			in_venue_revenue = EXCLUDED.in_venue_revenue,
			repique_total = EXCLUDED.repique_total,
			margin_revenue = EXCLUDED.margin_revenue,
			early_revenue_share = EXCLUDED.early_revenue_share,
			late_revenue_share = EXCLUDED.late_revenue_share,
			avg_ticket = EXCLUDED.avg_ticket,
			avg_ticket_entry = EXCLUDED.avg_ticket_entry,
			avg_ticket_in_venue = EXCLUDED.avg_ticket_in_venue,
			customers_served = EXCLUDED.customers_served,
			new_customer_pct = EXCLUDED.new_customer_pct,
			active_customers = EXCLUDED.active_customers,
			retention_30_pct = EXCLUDED.retention_30_pct,
			retention_60_pct = EXCLUDED.retention_60_pct,
			cogs_pct = EXCLUDED.cogs_pct,
			labor_cost_total = EXCLUDED.labor_cost_total,
			labor_cost_pct = EXCLUDED.labor_cost_pct,
			promo_cost_pct = EXCLUDED.promo_cost_pct,
			reservations_total = EXCLUDED.reservations_total,
			reservations_honored = EXCLUDED.reservations_honored,
			reserved_people = EXCLUDED.reserved_people,
			showed_people = EXCLUDED.showed_people,
			review_count = EXCLUDED.review_count,
			review_average = EXCLUDED.review_average,
			nps_overall = EXCLUDED.nps_overall,
			nps_food = EXCLUDED.nps_food,
			nps_service = EXCLUDED.nps_service,
			nps_ambience = EXCLUDED.nps_ambience,
			kitchen_units = EXCLUDED.kitchen_units,
			bar_units = EXCLUDED.bar_units,
			kitchen_mean_seconds = EXCLUDED.kitchen_mean_seconds,
			bar_mean_seconds = EXCLUDED.bar_mean_seconds,
			kitchen_minor_delays = EXCLUDED.kitchen_minor_delays,
			kitchen_major_delays = EXCLUDED.kitchen_major_delays,
			kitchen_minor_delay_pct = EXCLUDED.kitchen_minor_delay_pct,
			kitchen_major_delay_pct = EXCLUDED.kitchen_major_delay_pct,
			bar_minor_delays = EXCLUDED.bar_minor_delays,
			bar_major_delays = EXCLUDED.bar_major_delays,
			bar_minor_delay_pct = EXCLUDED.bar_minor_delay_pct,
			bar_major_delay_pct = EXCLUDED.bar_major_delay_pct,
			cancellations = EXCLUDED.cancellations,
			delay_breakdown = EXCLUDED.delay_breakdown,
			stockout_bar_pct = EXCLUDED.stockout_bar_pct,
			stockout_prepared_pct = EXCLUDED.stockout_prepared_pct,
			stockout_kitchen_pct = EXCLUDED.stockout_kitchen_pct,
			mix_beverages_pct = EXCLUDED.mix_beverages_pct,
			mix_kitchen_pct = EXCLUDED.mix_kitchen_pct,
			mix_prepared_pct = EXCLUDED.mix_prepared_pct,
			updated_at = NOW()
	`

	_, err = r.pool.Exec(ctx, query,
		rec.VenueID, rec.Year, rec.WeekNumber, rec.WeekStart, rec.WeekEnd,
		rec.GrossRevenue, rec.NetRevenue, rec.EntryRevenue, rec.InVenueRevenue, rec.RepiqueTotal, rec.MarginRevenue,
		rec.EarlyRevenueShare, rec.LateRevenueShare,
		rec.AvgTicket, rec.AvgTicketEntry, rec.AvgTicketInVenue,
		rec.CustomersServed, rec.NewCustomerPct, rec.ActiveCustomers, rec.Retention30Pct, rec.Retention60Pct,
		rec.COGSPct, rec.LaborCostTotal, rec.LaborCostPct, rec.PromoCostPct,
		rec.ReservationsTotal, rec.ReservationsHonored, rec.ReservedPeople, rec.ShowedPeople,
		rec.ReviewCount, rec.ReviewAverage, rec.NPSOverall, rec.NPSFood, rec.NPSService, rec.NPSAmbience,
		rec.KitchenUnits, rec.BarUnits, rec.KitchenMeanSeconds, rec.BarMeanSeconds,
		rec.KitchenMinorDelays, rec.KitchenMajorDelays, rec.KitchenMinorDelayPct, rec.KitchenMajorDelayPct,
		rec.BarMinorDelays, rec.BarMajorDelays, rec.BarMinorDelayPct, rec.BarMajorDelayPct,
		rec.Cancellations, breakdownJSON,
		rec.StockoutBarPct, rec.StockoutPreparedPct, rec.StockoutKitchenPct,
		rec.MixBeveragesPct, rec.MixKitchenPct, rec.MixPreparedPct,
	)
	if err != nil {
		return fmt.Errorf("upsert weekly record: %w", err)
	}
	return nil
}

// ActiveVenueIDs lists venues eligible for recompute.
func (r *Repository) ActiveVenueIDs(ctx context.Context) ([]int64, error) {
	query := `SELECT id FROM core.venues WHERE status = 'active' ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query active venues: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan venue id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CustomerBreakdown calls the bulk new/returning stored procedure for a
// window.
func (r *Repository) CustomerBreakdown(ctx context.Context, venueID int64, start, end time.Time) (int, int, error) {
	query := `SELECT new_customers, returning_customers FROM metrics.customer_breakdown($1, $2, $3)`

	var newCount, returningCount int
	err := r.pool.QueryRow(ctx, query, venueID, start, end).Scan(&newCount, &returningCount)
	if err != nil {
		return 0, 0, fmt.Errorf("customer breakdown: %w", err)
	}
	return newCount, returningCount, nil
}

// ActiveCustomerCount calls the active-customer-count stored procedure.
func (r *Repository) ActiveCustomerCount(ctx context.Context, venueID int64, asOf time.Time) (int, error) {
	query := `SELECT metrics.active_customer_count($1, $2)`

	var count int
	err := r.pool.QueryRow(ctx, query, venueID, asOf).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("active customer count: %w", err)
	}
	return count, nil
}
