package pagination

import (
	"net/http"
	"strconv"
)

const (
	defaultPerPage = 10
	maxPerPage     = 50
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// DefaultParams returns the first page with the default page size.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: defaultPerPage}
}

// FromRequest reads page and per_page. Invalid or out-of-range values fall
// back to the defaults.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()
	q := r.URL.Query()

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 && v <= maxPerPage {
		p.PerPage = v
	}

	p.Offset = (p.Page - 1) * p.PerPage
	return p
}

// Window returns the slice of items on page p. Pages past the end are empty.
func Window[T any](items []T, p Params) []T {
	if p.Offset >= len(items) || p.Offset < 0 {
		return []T{}
	}
	end := p.Offset + p.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}
