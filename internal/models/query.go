package models

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Reserved query parameters; every other parameter is a column filter
const (
	queryParamOrder  = "order"
	queryParamLimit  = "limit"
	queryParamSelect = "select"
)

// MaxQueryLimit caps the number of rows one table read may return
const MaxQueryLimit = 500

// Filter is an equality filter on one column ("road_id=eq.3")
type Filter struct {
	Column string
	Value  string
}

// Order sorts a table read by one column
type Order struct {
	Column    string
	Ascending bool
}

// Query describes a table read: equality filters, one order column and a limit
type Query struct {
	Filters []Filter
	Order   *Order
	Limit   int
}

// Eq returns the value of the first equality filter on column
func (q Query) Eq(column string) (string, bool) {
	for _, f := range q.Filters {
		if f.Column == column {
			return f.Value, true
		}
	}
	return "", false
}

// WithoutFilter returns a copy of q with every filter on column removed
func (q Query) WithoutFilter(column string) Query {
	out := q
	out.Filters = make([]Filter, 0, len(q.Filters))
	for _, f := range q.Filters {
		if f.Column != column {
			out.Filters = append(out.Filters, f)
		}
	}
	return out
}

// Values encodes the query as URL parameters
func (q Query) Values() url.Values {
	v := url.Values{}
	for _, f := range q.Filters {
		v.Add(f.Column, "eq."+f.Value)
	}
	if q.Order != nil {
		direction := "desc"
		if q.Order.Ascending {
			direction = "asc"
		}
		v.Set(queryParamOrder, q.Order.Column+"."+direction)
	}
	if q.Limit > 0 {
		v.Set(queryParamLimit, strconv.Itoa(q.Limit))
	}
	return v
}

// ParseQuery decodes URL parameters into a Query, accepting only the given columns
// The "select" parameter is accepted and ignored: reads always return whole rows
func ParseQuery(values url.Values, columns []string) (Query, error) {
	var q Query
	for key, vals := range values {
		switch key {
		case queryParamSelect:
			continue
		case queryParamOrder:
			column, direction, found := strings.Cut(vals[0], ".")
			if !slices.Contains(columns, column) {
				return Query{}, fmt.Errorf("unknown order column %q", column)
			}
			if found && direction != "asc" && direction != "desc" {
				return Query{}, fmt.Errorf("invalid order direction %q", direction)
			}
			q.Order = &Order{Column: column, Ascending: !found || direction == "asc"}
		case queryParamLimit:
			limit, err := strconv.Atoi(vals[0])
			if err != nil || limit < 1 {
				return Query{}, fmt.Errorf("invalid limit %q", vals[0])
			}
			q.Limit = min(limit, MaxQueryLimit)
		default:
			if !slices.Contains(columns, key) {
				return Query{}, fmt.Errorf("unknown filter column %q", key)
			}
			for _, raw := range vals {
				value, ok := strings.CutPrefix(raw, "eq.")
				if !ok {
					return Query{}, fmt.Errorf("unsupported filter %q on %q", raw, key)
				}
				q.Filters = append(q.Filters, Filter{Column: key, Value: value})
			}
		}
	}
	// Map iteration order is random; keep filters deterministic for SQL building
	slices.SortStableFunc(q.Filters, func(a, b Filter) int {
		return strings.Compare(a.Column, b.Column)
	})
	return q, nil
}
