// Package pagination provides limit/offset query parsing and a paged
// response envelope shared by all list endpoints.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	// DefaultLimit is used when no limit parameter is present.
	DefaultLimit = 50
	// MaxLimit caps the page size regardless of what the client asks for.
	MaxLimit = 200
)

// Params holds the parsed pagination parameters of a list request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext parses limit and offset from the request query, applying the
// default and cap. Malformed or negative values fall back to the defaults.
func FromContext(c echo.Context) Params {
	p := Params{Limit: DefaultLimit}

	if raw := c.QueryParam("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			p.Limit = v
		}
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	if raw := c.QueryParam("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			p.Offset = v
		}
	}
	return p
}

// Response is the envelope returned by list endpoints.
type Response struct {
	Items   interface{} `json:"items"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

// NewResponse builds a paged response envelope.
func NewResponse(items interface{}, total int, p Params) Response {
	return Response{
		Items:   items,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.Offset+p.Limit < total,
	}
}
