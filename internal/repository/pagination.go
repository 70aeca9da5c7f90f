package repository

import (
	"strconv"
	"strings"

	"blogicum/internal/models"
)

// PageSize is the number of posts on one listing page.
const PageSize = 10

// ParsePageNumber reads a ?page= value. "last" maps to LastPage and
// anything that is not a positive integer maps to 1.
func ParsePageNumber(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "last" {
		return LastPage
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// LastPage requests the final page of a listing.
const LastPage = -1

// NumPages returns how many pages total items fill. An empty listing
// still has one page.
func NumPages(total int64, size int) int {
	if size <= 0 {
		size = PageSize
	}
	if total <= 0 {
		return 1
	}
	return int((total + int64(size) - 1) / int64(size))
}

// ClampPage resolves a requested page number into [1, numPages].
func ClampPage(requested, numPages int) int {
	if numPages < 1 {
		numPages = 1
	}
	switch {
	case requested == LastPage, requested > numPages:
		return numPages
	case requested < 1:
		return 1
	default:
		return requested
	}
}

// PostPage is one page of a post listing.
type PostPage struct {
	Posts    []*models.Post
	Number   int
	NumPages int
	Total    int64
	PerPage  int
}

// HasPrevious reports whether a page precedes this one.
func (p *PostPage) HasPrevious() bool { return p.Number > 1 }

// HasNext reports whether a page follows this one.
func (p *PostPage) HasNext() bool { return p.Number < p.NumPages }

// HasOtherPages reports whether the listing spans more than one page.
func (p *PostPage) HasOtherPages() bool { return p.NumPages > 1 }

// PreviousPageNumber is Number-1.
func (p *PostPage) PreviousPageNumber() int { return p.Number - 1 }

// NextPageNumber is Number+1.
func (p *PostPage) NextPageNumber() int { return p.Number + 1 }

// Offset is the index of the first post of the page within the listing.
func (p *PostPage) Offset() int {
	return (p.Number - 1) * p.PerPage
}
