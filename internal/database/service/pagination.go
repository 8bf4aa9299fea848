package service

import "math"

const (
	// MaxPageSize caps the page_size query parameter
	MaxPageSize = 100
	// DefaultPageSize applies when neither the request nor the config sets a size
	DefaultPageSize = 10
)

// Page is one slice of a paginated listing
type Page[T any] struct {
	Items    []T
	Total    int64
	Number   int
	PageSize int
}

// HasNext reports whether a page follows this one
func (p *Page[T]) HasNext() bool {
	return int64(p.Number*p.PageSize) < p.Total
}

// HasPrevious reports whether a page precedes this one
func (p *Page[T]) HasPrevious() bool {
	return p.Number > 1
}

// normalizePage clamps a 1-based page request and returns the row offset.
// Pages whose end would overflow int are invalid.
func normalizePage(number, size, defaultSize int) (int, int, int, error) {
	if size <= 0 {
		size = defaultSize
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if number <= 0 {
		number = 1
	}
	if number > math.MaxInt/size {
		return 0, 0, 0, ErrInvalidPage
	}
	return number, size, (number - 1) * size, nil
}

// checkPage rejects pages past the end, except the first page of an empty listing
func checkPage(number, got int) error {
	if number > 1 && got == 0 {
		return ErrInvalidPage
	}
	return nil
}
