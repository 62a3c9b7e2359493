package source

import (
	"github.com/pulsohq/pulso/internal/contracts"
)

// Logical source names. Aggregators reference these, never table names.
const (
	Payments     = "pos_payments"
	Visits       = "visit_periods"
	Ledger       = "expense_ledger"
	Availability = "availability_snapshots"
	Timings      = "prep_timings"
	Reservations = "reservations"
	Reviews      = "reviews"
	Surveys      = "survey_responses"
)

// sourceDef binds a logical source to its table, stable order column
// and canonical projection.
type sourceDef struct {
	table   string
	orderBy string
	columns []string
}

func (d sourceDef) hasColumn(name string) bool {
	for _, c := range d.columns {
		if c == name {
			return true
		}
	}
	return false
}

var registry = map[string]sourceDef{
	Payments: {
		table:   "raw.pos_payments",
		orderBy: "id",
		columns: []string{"venue_id", "business_date", "sold_at", "channel", "payment_method", "sale_location", "net_amount", "gross_amount"},
	},
	Visits: {
		table:   "raw.visit_periods",
		orderBy: "id",
		columns: []string{"venue_id", "business_date", "amount", "headcount", "entry_fee", "repique", "customer_phone"},
	},
	Ledger: {
		table:   "raw.expense_ledger",
		orderBy: "id",
		columns: []string{"venue_id", "accrual_date", "category", "amount"},
	},
	Availability: {
		table:   "raw.availability_snapshots",
		orderBy: "id",
		columns: []string{"venue_id", "inspection_date", "product_id", "product_name", "location", "category", "active", "sellable"},
	},
	Timings: {
		table:   "raw.prep_timings",
		orderBy: "id",
		columns: []string{"venue_id", "business_date", "location", "category", "product", "elapsed_bar", "elapsed_kitchen", "cancelled"},
	},
	Reservations: {
		table:   "raw.reservations",
		orderBy: "id",
		columns: []string{"venue_id", "reserved_for", "people", "honored", "showed_people"},
	},
	Reviews: {
		table:   "raw.reviews",
		orderBy: "id",
		columns: []string{"venue_id", "review_date", "rating"},
	},
	Surveys: {
		table:   "raw.survey_responses",
		orderBy: "id",
		columns: []string{"venue_id", "answered_at", "category", "score"},
	},
}

// Columns returns the canonical projection of a source. Decoders assume
// this order, so queries should use it unchanged.
func Columns(name string) []string {
	def, ok := registry[name]
	if !ok {
		return nil
	}
	cols := make([]string, len(def.columns))
	copy(cols, def.columns)
	return cols
}

// ColumnIndex returns the position of a column in the canonical
// projection, or -1.
func ColumnIndex(name, column string) int {
	def, ok := registry[name]
	if !ok {
		return -1
	}
	for i, c := range def.columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Decoders coerce raw rows into typed structs at the read boundary.
// Downstream aggregators operate on typed values only; rows that fail
// coercion fall back to zero values, never panic.

// DecodePayments decodes pos_payments rows.
func DecodePayments(rows []Row) []contracts.PaymentLine {
	out := make([]contracts.PaymentLine, 0, len(rows))
	for _, r := range rows {
		if len(r) < 8 {
			continue
		}
		out = append(out, contracts.PaymentLine{
			VenueID:     asInt64(r[0]),
			Date:        asTime(r[1]),
			SoldAt:      asTime(r[2]),
			Channel:     asString(r[3]),
			Method:      asString(r[4]),
			Location:    asString(r[5]),
			NetAmount:   asFloat(r[6]),
			GrossAmount: asFloat(r[7]),
		})
	}
	return out
}

// DecodeVisits decodes visit_periods rows.
func DecodeVisits(rows []Row) []contracts.VisitPeriod {
	out := make([]contracts.VisitPeriod, 0, len(rows))
	for _, r := range rows {
		if len(r) < 7 {
			continue
		}
		out = append(out, contracts.VisitPeriod{
			VenueID:   asInt64(r[0]),
			Date:      asTime(r[1]),
			Amount:    asFloat(r[2]),
			Headcount: asInt(r[3]),
			EntryFee:  asFloat(r[4]),
			Repique:   asFloat(r[5]),
			Phone:     asString(r[6]),
		})
	}
	return out
}

// DecodeLedger decodes expense_ledger rows.
func DecodeLedger(rows []Row) []contracts.LedgerEntry {
	out := make([]contracts.LedgerEntry, 0, len(rows))
	for _, r := range rows {
		if len(r) < 4 {
			continue
		}
		out = append(out, contracts.LedgerEntry{
			VenueID:     asInt64(r[0]),
			AccrualDate: asTime(r[1]),
			Category:    asString(r[2]),
			Amount:      asFloat(r[3]),
		})
	}
	return out
}

// DecodeAvailability decodes availability_snapshots rows.
func DecodeAvailability(rows []Row) []contracts.AvailabilitySnapshot {
	out := make([]contracts.AvailabilitySnapshot, 0, len(rows))
	for _, r := range rows {
		if len(r) < 8 {
			continue
		}
		out = append(out, contracts.AvailabilitySnapshot{
			VenueID:     asInt64(r[0]),
			Date:        asTime(r[1]),
			ProductID:   asInt64(r[2]),
			ProductName: asString(r[3]),
			Location:    asString(r[4]),
			Category:    asString(r[5]),
			Active:      asBool(r[6]),
			Sellable:    asBool(r[7]),
		})
	}
	return out
}

// DecodeTimings decodes prep_timings rows.
func DecodeTimings(rows []Row) []contracts.PrepTiming {
	out := make([]contracts.PrepTiming, 0, len(rows))
	for _, r := range rows {
		if len(r) < 8 {
			continue
		}
		out = append(out, contracts.PrepTiming{
			VenueID:        asInt64(r[0]),
			Date:           asTime(r[1]),
			Location:       asString(r[2]),
			Category:       asString(r[3]),
			Product:        asString(r[4]),
			ElapsedBar:     asFloat(r[5]),
			ElapsedKitchen: asFloat(r[6]),
			Cancelled:      asBool(r[7]),
		})
	}
	return out
}

// DecodeReservations decodes reservations rows.
func DecodeReservations(rows []Row) []contracts.Reservation {
	out := make([]contracts.Reservation, 0, len(rows))
	for _, r := range rows {
		if len(r) < 5 {
			continue
		}
		out = append(out, contracts.Reservation{
			VenueID:      asInt64(r[0]),
			Date:         asTime(r[1]),
			People:       asInt(r[2]),
			Honored:      asBool(r[3]),
			ShowedPeople: asInt(r[4]),
		})
	}
	return out
}

// DecodeReviews decodes reviews rows.
func DecodeReviews(rows []Row) []contracts.Review {
	out := make([]contracts.Review, 0, len(rows))
	for _, r := range rows {
		if len(r) < 3 {
			continue
		}
		out = append(out, contracts.Review{
			VenueID: asInt64(r[0]),
			Date:    asTime(r[1]),
			Rating:  asFloat(r[2]),
		})
	}
	return out
}

// DecodeSurveys decodes survey_responses rows.
func DecodeSurveys(rows []Row) []contracts.SurveyResponse {
	out := make([]contracts.SurveyResponse, 0, len(rows))
	for _, r := range rows {
		if len(r) < 4 {
			continue
		}
		out = append(out, contracts.SurveyResponse{
			VenueID:  asInt64(r[0]),
			Date:     asTime(r[1]),
			Category: asString(r[2]),
			Score:    asInt(r[3]),
		})
	}
	return out
}
