package domain

// PaginationParams holds page-based pagination parameters for the member picker.
type PaginationParams struct {
	Page    int
	PerPage int
}

// Next returns the parameters of the following page.
func (p PaginationParams) Next() PaginationParams {
	page := p.Page
	if page < 1 {
		page = 0
	}
	return PaginationParams{Page: page + 1, PerPage: p.PerPage}
}
