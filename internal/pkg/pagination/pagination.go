// internal/pkg/pagination/pagination.go
package pagination

// Request represents page query parameters
type Request struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// Normalize clamps page and limit into usable bounds
func (r Request) Normalize(defaultLimit, maxLimit int) Request {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Limit < 1 {
		r.Limit = defaultLimit
	}
	if maxLimit > 0 && r.Limit > maxLimit {
		r.Limit = maxLimit
	}
	return r
}

// Offset returns the row offset for the page
func (r Request) Offset() int {
	return (r.Page - 1) * r.Limit
}

// New calculates pagination info for a normalized request
func New(r Request, total int64) Pagination {
	totalPages := int((total + int64(r.Limit) - 1) / int64(r.Limit))
	return Pagination{
		Page:       r.Page,
		Limit:      r.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    r.Page < totalPages,
		HasPrev:    r.Page > 1,
	}
}
