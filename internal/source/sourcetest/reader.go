// Package sourcetest provides an in-memory source.Reader for aggregator
// tests. Rows are stored in each source's canonical projection order and
// the fake applies the same filter predicates the real reader would.
package sourcetest

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsohq/pulso/internal/source"
)

// Reader is an in-memory source.Reader.
type Reader struct {
	rows    map[string][]source.Row
	failing map[string]bool
}

// NewReader creates an empty fake reader.
func NewReader() *Reader {
	return &Reader{
		rows:    make(map[string][]source.Row),
		failing: make(map[string]bool),
	}
}

// Add appends rows to a source. Rows must follow the source's canonical
// column order.
func (r *Reader) Add(src string, rows ...source.Row) {
	r.rows[src] = append(r.rows[src], rows...)
}

// Fail makes every read of the source return an error.
func (r *Reader) Fail(src string) {
	r.failing[src] = true
}

// ReadAll returns the stored rows matching the query's filters.
func (r *Reader) ReadAll(_ context.Context, q source.Query) ([]source.Row, error) {
	if r.failing[q.Source] {
		return nil, fmt.Errorf("source %s unavailable", q.Source)
	}

	var out []source.Row
	for _, row := range r.rows[q.Source] {
		if matches(q, row) {
			out = append(out, row)
		}
	}
	return out, nil
}

func matches(q source.Query, row source.Row) bool {
	for _, f := range q.Filters {
		idx := source.ColumnIndex(q.Source, f.Column)
		if idx < 0 || idx >= len(row) {
			return false
		}
		if !apply(f, row[idx]) {
			return false
		}
	}
	return true
}

func apply(f source.Filter, value interface{}) bool {
	switch f.Op {
	case source.OpEq:
		return cmp(value, f.Value) == 0
	case source.OpGte:
		return cmp(value, f.Value) >= 0
	case source.OpLte:
		return cmp(value, f.Value) <= 0
	case source.OpIn:
		switch set := f.Value.(type) {
		case []string:
			for _, s := range set {
				if cmp(value, s) == 0 {
					return true
				}
			}
		case []interface{}:
			for _, s := range set {
				if cmp(value, s) == 0 {
					return true
				}
			}
		}
		return false
	}
	return false
}

// cmp orders two loosely typed values: times as times, numbers as
// floats, everything else as strings.
func cmp(a, b interface{}) int {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		switch {
		case at.Before(bt):
			return -1
		case at.After(bt):
			return 1
		default:
			return 0
		}
	}

	af, aok := asNumber(a)
	bf, bok := asNumber(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	as := fmt.Sprintf("%v", a)
	bs := fmt.Sprintf("%v", b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
