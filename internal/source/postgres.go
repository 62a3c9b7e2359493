package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsohq/pulso/pkg/logger"
)

// PGReader is the production Reader over a pgx connection pool.
type PGReader struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPGReader creates a Postgres-backed reader.
func NewPGReader(pool *pgxpool.Pool, log *logger.Logger) *PGReader {
	return &PGReader{
		pool:   pool,
		logger: log.WithField("component", "source_reader"),
	}
}

// ReadAll fetches every row matching the query, requesting fixed-size
// windows until a short page comes back. A failed page is logged and
// the rows accumulated so far are returned; the metric built on top
// degrades rather than the whole recompute failing.
func (r *PGReader) ReadAll(ctx context.Context, q Query) ([]Row, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	if len(q.Columns) == 0 {
		q.Columns = Columns(q.Source)
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	sql, args := buildSQL(q)

	var all []Row
	for page := 0; ; page++ {
		pageRows, err := r.readPage(ctx, sql, args, pageSize, page*pageSize)
		if err != nil {
			r.logger.WithError(err).WithFields(map[string]interface{}{
				"source": q.Source,
				"page":   page,
				"rows":   len(all),
			}).Warn("Source page read failed, returning partial result")
			return all, nil
		}

		all = append(all, pageRows...)
		if len(pageRows) < pageSize {
			return all, nil
		}
	}
}

// readPage runs one window of the paginated query.
func (r *PGReader) readPage(ctx context.Context, sql string, args []interface{}, limit, offset int) ([]Row, error) {
	pageArgs := append(append([]interface{}{}, args...), limit, offset)

	rows, err := r.pool.Query(ctx, sql, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("query page: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		out = append(out, Row(values))
	}
	return out, rows.Err()
}

// buildSQL renders the query into positional-arg SQL. The two trailing
// placeholders are LIMIT and OFFSET, appended per page by readPage.
func buildSQL(q Query) (string, []interface{}) {
	def := registry[q.Source]

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(q.Columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(def.table)

	args := make([]interface{}, 0, len(q.Filters))
	for i, f := range q.Filters {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}

		args = append(args, f.Value)
		switch f.Op {
		case OpGte:
			fmt.Fprintf(&sb, "%s >= $%d", f.Column, len(args))
		case OpLte:
			fmt.Fprintf(&sb, "%s <= $%d", f.Column, len(args))
		case OpEq:
			fmt.Fprintf(&sb, "%s = $%d", f.Column, len(args))
		case OpIn:
			fmt.Fprintf(&sb, "%s = ANY($%d)", f.Column, len(args))
		}
	}

	fmt.Fprintf(&sb, " ORDER BY %s LIMIT $%d OFFSET $%d", def.orderBy, len(args)+1, len(args)+2)
	return sb.String(), args
}
