package query

// Page is one page of results together with the pagination totals that
// produced it.
type Page[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// NewPage is the only place TotalPages is computed: ceil(totalCount /
// pageSize), with zero records giving zero pages.
func NewPage[T any](items []T, totalCount, page, pageSize int) Page[T] {
	totalPages := 0
	if totalCount > 0 && pageSize > 0 {
		totalPages = (totalCount + pageSize - 1) / pageSize
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
