package repositories

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/models"
)

// buildSelect appends WHERE, ORDER BY and LIMIT clauses for q to base.
// Column names must be in columns; values are always bound as arguments.
// defaultOrder is used when q has no order, id breaks ties.
func buildSelect(base string, q models.Query, columns []string, defaultOrder string) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString(base)
	args := make([]any, 0, len(q.Filters)+1)

	for i, f := range q.Filters {
		if !slices.Contains(columns, f.Column) {
			return "", nil, apperrors.New(apperrors.KindValidation, fmt.Sprintf("unknown column %q", f.Column))
		}
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(f.Column)
		sb.WriteString(" = ?")
		args = append(args, f.Value)
	}

	order := defaultOrder
	if q.Order != nil {
		if !slices.Contains(columns, q.Order.Column) {
			return "", nil, apperrors.New(apperrors.KindValidation, fmt.Sprintf("unknown column %q", q.Order.Column))
		}
		direction := "DESC"
		if q.Order.Ascending {
			direction = "ASC"
		}
		order = q.Order.Column + " " + direction
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(order)
	if !strings.HasPrefix(order, "id ") {
		sb.WriteString(", id ASC")
	}

	limit := q.Limit
	if limit <= 0 || limit > models.MaxQueryLimit {
		limit = models.MaxQueryLimit
	}
	sb.WriteString(" LIMIT ?")
	args = append(args, limit)

	return sb.String(), args, nil
}
