// Package source is the engine's only I/O primitive: a paginated reader
// over named raw data sources. Aggregators never touch the database
// directly; they describe what they need as a Query and decode the rows
// through the typed schema in schema.go.
package source

import (
	"context"
	"fmt"
)

// Op is a filter predicate operator.
type Op string

const (
	OpGte Op = "gte"
	OpLte Op = "lte"
	OpEq  Op = "eq"
	OpIn  Op = "in"
)

// Filter is one predicate over a named column.
type Filter struct {
	Column string
	Op     Op
	Value  interface{}
}

// Query describes a full read of one source.
type Query struct {
	Source   string
	Columns  []string
	Filters  []Filter
	PageSize int
}

// Row holds one row's values, positionally matching the query columns.
type Row []interface{}

// DefaultPageSize is the window size used when Query.PageSize is zero.
const DefaultPageSize = 1000

// Reader reads the full result set matching a query, transparently
// paging through fixed-size windows. Implementations return whatever
// was accumulated before a mid-read failure; partial results are this
// engine's resilience model, not a hard error.
type Reader interface {
	ReadAll(ctx context.Context, q Query) ([]Row, error)
}

// Gte builds a greater-or-equal filter.
func Gte(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpGte, Value: value}
}

// Lte builds a less-or-equal filter.
func Lte(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpLte, Value: value}
}

// Eq builds an equality filter.
func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// In builds a set-membership filter.
func In(column string, values interface{}) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

// validate rejects malformed queries before any I/O.
func (q Query) validate() error {
	src, ok := registry[q.Source]
	if !ok {
		return fmt.Errorf("unknown source %q", q.Source)
	}

	for _, f := range q.Filters {
		switch f.Op {
		case OpGte, OpLte, OpEq, OpIn:
		default:
			return fmt.Errorf("unknown filter op %q on %s.%s", f.Op, q.Source, f.Column)
		}
		if !src.hasColumn(f.Column) {
			return fmt.Errorf("source %q has no column %q", q.Source, f.Column)
		}
	}

	for _, col := range q.Columns {
		if !src.hasColumn(col) {
			return fmt.Errorf("source %q has no column %q", q.Source, col)
		}
	}

	return nil
}
