package posts

import "fmt"

// Pagination defaults.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// Validate checks page bounds. Sizes above MaxPageSize are clamped.
func (p *Page) Validate() error {
	if p.Number < 1 {
		return fmt.Errorf("%w: page must be a positive integer", ErrInvalidPagination)
	}
	if p.Size < 1 {
		return fmt.Errorf("%w: limit must be a positive integer", ErrInvalidPagination)
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return nil
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// PaginationMeta describes a page within a result set.
type PaginationMeta struct {
	TotalCount  int  `json:"total_count"`
	CurrentPage int  `json:"current_page"`
	PageSize    int  `json:"page_size"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

// NewPaginationMeta computes pagination metadata for totalCount rows.
func NewPaginationMeta(totalCount int, page Page) (PaginationMeta, error) {
	if page.Size < 1 {
		return PaginationMeta{}, fmt.Errorf("%w: page size %d", ErrInvalidPagination, page.Size)
	}
	if page.Number < 1 {
		return PaginationMeta{}, fmt.Errorf("%w: page %d", ErrInvalidPagination, page.Number)
	}

	totalPages := (totalCount + page.Size - 1) / page.Size
	return PaginationMeta{
		TotalCount:  totalCount,
		CurrentPage: page.Number,
		PageSize:    page.Size,
		TotalPages:  totalPages,
		HasNext:     page.Number < totalPages,
		HasPrev:     page.Number > 1,
	}, nil
}
