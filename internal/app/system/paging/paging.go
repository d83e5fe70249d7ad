// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the default number of rows shown in paged lists.
// Keep this as an int because most call sites add/subtract and then
// cast to int64 for Mongo Find().SetLimit().
const PageSize = 50

// ParsePage extracts the 1-based "page" query parameter.
// Returns 1 if not present or invalid.
func ParsePage(r *http.Request) int {
	s := query.Get(r, "page")
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Offset returns the number of rows to skip for page.
func Offset(page int) int64 {
	if page < 1 {
		page = 1
	}
	return int64((page - 1) * PageSize)
}

// Result holds the pagination indicators for one page of a counted list.
type Result struct {
	Page       int   `json:"page"`
	TotalPages int   `json:"total_pages"`
	Total      int64 `json:"total"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

// Compute builds the indicators for page out of total rows. An empty list
// still has one page.
func Compute(page int, total int64) Result {
	if page < 1 {
		page = 1
	}
	totalPages := int((total + PageSize - 1) / PageSize)
	if totalPages < 1 {
		totalPages = 1
	}
	return Result{
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
}
