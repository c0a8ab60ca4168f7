// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination provides the page-size policy and the metadata block
// attached to every paginated API response.
package pagination

const (
	// DefaultMinPerPage is the smallest page size ever served.
	DefaultMinPerPage = 1
	// DefaultMaxPerPage is the upper bound for items per page.
	DefaultMaxPerPage = 100
	// DefaultPerPage is used when the caller does not ask for a size.
	DefaultPerPage = 15
	// FirstPage is the starting page (1-indexed).
	FirstPage = 1
)

// Policy bounds the page size a caller may request.
type Policy struct {
	MinPerPage     int
	MaxPerPage     int
	DefaultPerPage int
}

// DefaultPolicy is the [1, 100] policy with 15 items per page by default.
var DefaultPolicy = Policy{
	MinPerPage:     DefaultMinPerPage,
	MaxPerPage:     DefaultMaxPerPage,
	DefaultPerPage: DefaultPerPage,
}

// Clamp forces perPage into [MinPerPage, MaxPerPage].
func (p Policy) Clamp(perPage int) int {
	if perPage < p.MinPerPage {
		return p.MinPerPage
	}
	if perPage > p.MaxPerPage {
		return p.MaxPerPage
	}
	return perPage
}

// Page normalises a requested page number (anything below 1 becomes 1).
func Page(page int) int {
	if page < FirstPage {
		return FirstPage
	}
	return page
}

// Offset returns the SQL OFFSET for a normalised page and size.
func Offset(page, perPage int) int {
	return (Page(page) - 1) * perPage
}

// Meta is the pagination metadata included in API list responses.
type Meta struct {
	CurrentPage  int  `json:"current_page"`
	PerPage      int  `json:"per_page"`
	Total        int  `json:"total"`
	LastPage     int  `json:"last_page"`
	From         int  `json:"from"`
	To           int  `json:"to"`
	HasMorePages bool `json:"has_more_pages"`
}

// NewMeta computes the metadata for one page of a result set.
//
// From and To are 1-based positions of the first and last item on the page,
// both zero when the page is empty. LastPage is at least 1.
func NewMeta(page, perPage, total, itemsOnPage int) Meta {
	lastPage := 1
	if perPage > 0 && total > 0 {
		lastPage = (total + perPage - 1) / perPage
	}

	meta := Meta{
		CurrentPage:  page,
		PerPage:      perPage,
		Total:        total,
		LastPage:     lastPage,
		HasMorePages: page < lastPage,
	}

	if itemsOnPage > 0 {
		meta.From = Offset(page, perPage) + 1
		meta.To = meta.From + itemsOnPage - 1
	}

	return meta
}
