// Package pagination parses page/limit query parameters and computes result
// windows over in-memory collections.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params are validated pagination inputs.
type Params struct {
	Page  int
	Limit int
}

// Window is the slice bounds and page bookkeeping for a total of N items.
type Window struct {
	Start      int
	End        int
	TotalPages int
	HasNext    bool
}

// Parse reads "page" and "limit" from query values. Absent values default to
// page 1 and DefaultLimit; out-of-range values are rejected.
func Parse(q url.Values) (Params, error) {
	p := Params{Page: 1, Limit: DefaultLimit}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Params{}, fmt.Errorf("page must be a positive integer")
		}
		p.Page = n
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxLimit {
			return Params{}, fmt.Errorf("limit must be between 1 and %d", MaxLimit)
		}
		p.Limit = n
	}

	return p, nil
}

// WindowOver computes the window for p over total items. When the page lies
// past the end, Start == End == total and the caller decides how to report
// it.
func (p Params) WindowOver(total int) Window {
	totalPages := (total + p.Limit - 1) / p.Limit

	start := (p.Page - 1) * p.Limit
	if start > total {
		start = total
	}
	end := min(start+p.Limit, total)

	return Window{
		Start:      start,
		End:        end,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
	}
}

// OutOfRange reports whether the page has no items despite some existing.
func (p Params) OutOfRange(total int) bool {
	return total > 0 && (p.Page-1)*p.Limit >= total
}
