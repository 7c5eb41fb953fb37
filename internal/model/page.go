package model

const (
	DefaultPerPage = 50
	MaxPerPage     = 200
)

// Page selects a window of a list. Page is 1-based.
type Page struct {
	Number  int `json:"page"`
	PerPage int `json:"per_page"`
}

// Normalize clamps the page into valid bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Number - 1) * p.PerPage
}

// List is one page of results plus the total row count.
type List[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  Page  `json:"page"`
}

// TotalPages returns the number of pages needed for Total rows.
func (l List[T]) TotalPages() int {
	per := l.Page.Normalize().PerPage
	if l.Total == 0 {
		return 0
	}
	return int((l.Total + int64(per) - 1) / int64(per))
}

// HasNext reports whether a later page exists.
func (l List[T]) HasNext() bool {
	return l.Page.Normalize().Number < l.TotalPages()
}

// HasPrevious reports whether an earlier page exists.
func (l List[T]) HasPrevious() bool {
	return l.Page.Normalize().Number > 1
}
