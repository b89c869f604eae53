package content

// PageRequest selects a 1-based page.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize clamps the request: pages start at 1, sizes fall back to def
// and are capped at limit.
func (r PageRequest) Normalize(def, limit int) PageRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = def
	}
	if limit > 0 && r.PageSize > limit {
		r.PageSize = limit
	}
	return r
}

// Offset is the index of the first item on the page.
func (r PageRequest) Offset() int { return (r.Page - 1) * r.PageSize }

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// TotalPages is ceil(total / size), and 0 when there are no items.
func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// NewPage wraps items already cut to the requested page.
func NewPage[T any](items []T, req PageRequest, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalItems: total,
		TotalPages: TotalPages(total, req.PageSize),
	}
}

// Paginate cuts all to the requested page.
func Paginate[T any](all []T, req PageRequest) Page[T] {
	start := req.Offset()
	if start < 0 {
		start = 0
	}
	if start > len(all) {
		start = len(all)
	}
	end := start + req.PageSize
	if end < start {
		end = start
	}
	if end > len(all) {
		end = len(all)
	}
	return NewPage(append([]T(nil), all[start:end]...), req, len(all))
}
