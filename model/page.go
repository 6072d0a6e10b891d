package model

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidPage means a requested page number is not a number or is out of
// range.
var ErrInvalidPage = errors.New("invalid page")

// Page is a window of a paginated listing.
type Page struct {
	Number   int
	NumPages int
	Total    int64
	Limit    int
	Offset   int
}

// Paginate returns the page of a listing of total items split into pages of
// size. The raw is the requested page number. An empty raw means the first
// page and "last" means the last page.
//
// The first page of an empty listing is valid.
func Paginate(total int64, raw string, size int) (*Page, error) {
	if size < 1 {
		size = 1
	}

	numPages := 1
	if total > 0 {
		numPages = int((total + int64(size) - 1) / int64(size))
	}

	n := 1
	switch raw = strings.TrimSpace(raw); raw {
	case "":
	case "last":
		n = numPages
	default:
		var err error
		if n, err = strconv.Atoi(raw); err != nil {
			return nil, ErrInvalidPage
		}
	}

	if n < 1 || n > numPages {
		return nil, ErrInvalidPage
	}

	return &Page{
		Number:   n,
		NumPages: numPages,
		Total:    total,
		Limit:    size,
		Offset:   (n - 1) * size,
	}, nil
}

// HasPrevious reports whether there is a page before the p.
func (p *Page) HasPrevious() bool {
	return p.Number > 1
}

// HasNext reports whether there is a page after the p.
func (p *Page) HasNext() bool {
	return p.Number < p.NumPages
}

// PreviousNumber returns the number of the page before the p.
func (p *Page) PreviousNumber() int {
	return max(p.Number-1, 1)
}

// NextNumber returns the number of the page after the p.
func (p *Page) NextNumber() int {
	return min(p.Number+1, p.NumPages)
}

// HasOtherPages reports whether the listing spans more than one page.
func (p *Page) HasOtherPages() bool {
	return p.NumPages > 1
}
