package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/models"
)

// Table names
const (
	TableRoads        = "roads"
	TableRoadSegments = "road_segments"
	TableRoadReports  = "road_reports"
)

// QueryBuilder reads and writes one table
type QueryBuilder struct {
	client *Client
	table  string
	query  models.Query
}

// From starts a query on table
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{client: c, table: table}
}

// Eq adds an equality filter
func (b *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	b.query.Filters = append(b.query.Filters, models.Filter{Column: column, Value: fmt.Sprint(value)})
	return b
}

// Order sorts the result by column
func (b *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	b.query.Order = &models.Order{Column: column, Ascending: ascending}
	return b
}

// Limit caps the number of rows
func (b *QueryBuilder) Limit(n int) *QueryBuilder {
	b.query.Limit = n
	return b
}

// Where replaces the filters, order and limit with q
func (b *QueryBuilder) Where(q models.Query) *QueryBuilder {
	b.query = q
	return b
}

// Select reads the matching rows into dest, a pointer to a slice
func (b *QueryBuilder) Select(ctx context.Context, dest any) error {
	return b.client.do(ctx, request{
		method:     http.MethodGet,
		path:       "/" + url.PathEscape(b.table),
		query:      b.query.Values(),
		authorized: true,
	}, dest)
}

// Insert creates one row and decodes the stored row into dest
func (b *QueryBuilder) Insert(ctx context.Context, record, dest any) error {
	return b.client.do(ctx, request{
		method:     http.MethodPost,
		path:       "/" + url.PathEscape(b.table),
		body:       record,
		authorized: true,
	}, dest)
}

// Update changes the row selected by an "id" filter and decodes it into dest
func (b *QueryBuilder) Update(ctx context.Context, fields, dest any) error {
	id, ok := b.query.Eq("id")
	if !ok || id == "" {
		return apperrors.New(apperrors.KindValidation, "update requires an id filter")
	}

	return b.client.do(ctx, request{
		method:     http.MethodPatch,
		path:       "/" + url.PathEscape(b.table) + "/" + url.PathEscape(id),
		body:       fields,
		authorized: true,
	}, dest)
}
