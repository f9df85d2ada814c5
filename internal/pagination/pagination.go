// Package pagination computes page windows and metadata for list endpoints.
package pagination

import (
	"math"
	"net/url"
	"strconv"
)

// Params is a parsed page request. Page is 1-based.
type Params struct {
	Page     int
	PageSize int
}

// ParseParams reads "page" and "pageSize" from a query string. Absent,
// non-numeric or non-positive values fall back to page 1 and defaultSize;
// pageSize is capped at maxSize.
func ParseParams(q url.Values, defaultSize, maxSize int) Params {
	page := parseInt(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}

	size := parseInt(q.Get("pageSize"), defaultSize)
	if size < 1 {
		size = defaultSize
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}

	return Params{Page: page, PageSize: size}
}

// Skip is the number of records before the requested window.
func (p Params) Skip() int64 {
	return int64(p.Page-1) * int64(p.PageSize)
}

// Limit is the window length.
func (p Params) Limit() int64 {
	return int64(p.PageSize)
}

// Page is the response envelope for a paginated listing. A CurrentPage past
// TotalPages simply carries an empty Items slice.
type Page struct {
	Items       any   `json:"items"`
	CurrentPage int   `json:"currentPage"`
	PageSize    int   `json:"pageSize"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
}

func NewPage(items any, p Params, totalCount int64) Page {
	totalPages := 0
	if p.PageSize > 0 {
		totalPages = int(math.Ceil(float64(totalCount) / float64(p.PageSize)))
	}

	return Page{
		Items:       items,
		CurrentPage: p.Page,
		PageSize:    p.PageSize,
		TotalPages:  totalPages,
		TotalCount:  totalCount,
	}
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
