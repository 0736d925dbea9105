package engine

import (
	"context"
	"fmt"
	"strings"
)

// Page describes one page of a paginated result set.
type Page struct {
	TotalRecords int  `json:"total_records"`
	CurrentPage  int  `json:"current_page"`
	PageSize     int  `json:"page_size"`
	TotalPages   int  `json:"total_pages"`
	HasNext      bool `json:"has_next"`
	HasPrev      bool `json:"has_prev"`
}

// NewPage computes pagination metadata: total_pages = ceil(total/page_size),
// has_next iff page < total_pages, has_prev iff page > 1.
func NewPage(totalRecords, page, pageSize int) Page {
	if pageSize < 1 {
		pageSize = 1
	}
	if page < 1 {
		page = 1
	}

	totalPages := (totalRecords + pageSize - 1) / pageSize

	return Page{
		TotalRecords: totalRecords,
		CurrentPage:  page,
		PageSize:     pageSize,
		TotalPages:   totalPages,
		HasNext:      page < totalPages,
		HasPrev:      page > 1,
	}
}

// ExecutePaginated wraps a base query with a count and a LIMIT/OFFSET page
// fetch, binding the page bounds as placeholders. The base query itself
// must come from the translation pipeline or the filter builder, never from
// raw user input.
func (e *Engine) ExecutePaginated(ctx context.Context, baseQuery string, args []interface{}, page, pageSize int) ([]Row, Page, error) {
	baseQuery = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(baseQuery), ";"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM (%s)", baseQuery)
	var total int
	if err := e.QueryRowArgs(ctx, countQuery, &total, args...); err != nil {
		return nil, Page{}, fmt.Errorf("failed to count result set: %w", err)
	}

	pageInfo := NewPage(total, page, pageSize)

	offset := (page - 1) * pageSize
	pagedQuery := baseQuery + " LIMIT ? OFFSET ?"
	pagedArgs := append(append([]interface{}{}, args...), pageSize, offset)

	rows, err := e.QueryArgs(ctx, pagedQuery, pagedArgs...)
	if err != nil {
		return nil, Page{}, err
	}

	return rows, pageInfo, nil
}
