package services

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// PageRequest is an offset page selector. Zero values select the first
// page of defaultPageSize items.
type PageRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

func (p PageRequest) offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page is one page of a listing.
type Page[T any] struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Items    []T   `json:"items"`
}

func newPage[T any](req PageRequest, total int64, items []T) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Total: total, Page: req.Page, PageSize: req.PageSize, Items: items}
}
