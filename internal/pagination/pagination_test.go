package pagination_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ruisth/Library/internal/pagination"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantPage int
		wantSize int
	}{
		{"defaults when absent", "", 1, 20},
		{"explicit values", "page=3&pageSize=10", 3, 10},
		{"negative page coerced", "page=-2", 1, 20},
		{"zero page coerced", "page=0", 1, 20},
		{"non-numeric page coerced", "page=abc", 1, 20},
		{"zero pageSize coerced", "pageSize=0", 1, 20},
		{"negative pageSize coerced", "pageSize=-5", 1, 20},
		{"pageSize capped at max", "pageSize=500", 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			assert.NoError(t, err)

			params := pagination.ParseParams(q, 20, 100)
			assert.Equal(t, tt.wantPage, params.Page)
			assert.Equal(t, tt.wantSize, params.PageSize)
		})
	}
}

func TestParamsWindow(t *testing.T) {
	p := pagination.Params{Page: 3, PageSize: 20}
	assert.Equal(t, int64(40), p.Skip())
	assert.Equal(t, int64(20), p.Limit())

	first := pagination.Params{Page: 1, PageSize: 20}
	assert.Equal(t, int64(0), first.Skip())
}

func TestNewPageTotals(t *testing.T) {
	p := pagination.Params{Page: 1, PageSize: 20}
	page := pagination.NewPage([]int{1, 2, 3}, p, 45)

	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, int64(45), page.TotalCount)
	assert.Equal(t, 1, page.CurrentPage)
}

// A page past the end is not an error: same metadata, empty items.
func TestNewPageBeyondEnd(t *testing.T) {
	p := pagination.Params{Page: 4, PageSize: 20}
	page := pagination.NewPage([]int{}, p, 45)

	assert.Equal(t, 4, page.CurrentPage)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, []int{}, page.Items)
}

func TestNewPageExactMultiple(t *testing.T) {
	p := pagination.Params{Page: 1, PageSize: 20}
	page := pagination.NewPage([]int{}, p, 40)
	assert.Equal(t, 2, page.TotalPages)
}

func TestNewPageEmptyCollection(t *testing.T) {
	p := pagination.Params{Page: 1, PageSize: 20}
	page := pagination.NewPage([]int{}, p, 0)
	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, int64(0), page.TotalCount)
}
