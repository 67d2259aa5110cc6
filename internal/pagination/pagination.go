// Package pagination normalizes limit/offset query parameters and wraps
// list results in the page envelope shared by every list endpoint.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	DefaultLimit  = 10
	DefaultOffset = 0
)

// Options are the effective paging parameters after coercion. Limit is
// always >= 1 and Offset always >= 0.
type Options struct {
	Limit  int
	Offset int
}

// Href is a single hypermedia link.
type Href struct {
	Href string `json:"href"`
}

// Links carries the self link of a page; the href reproduces the request
// path with the effective limit and offset as query parameters.
type Links struct {
	Self Href `json:"self"`
}

// Page is the envelope returned by every list endpoint. Items never
// exceeds Limit entries; an offset beyond the table size yields an empty
// slice, not an error.
type Page struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Items  any   `json:"items"`
	Links  Links `json:"_links"`
}

// Parse coerces limit and offset from the query string. This layer is
// deliberately permissive: non-numeric or non-positive input falls back
// to the default rather than erroring, because the strict query
// validators have already rejected anything a client should be told
// about.
func Parse(query url.Values) Options {
	return Options{
		Limit:  positiveOrDefault(query.Get("limit"), DefaultLimit),
		Offset: nonNegativeOrDefault(query.Get("offset"), DefaultOffset),
	}
}

// NewPage wraps rows in the page envelope with a self link built from the
// request path and the effective paging options.
func NewPage(path string, opts Options, items any) Page {
	return Page{
		Limit:  opts.Limit,
		Offset: opts.Offset,
		Items:  items,
		Links: Links{
			Self: Href{Href: fmt.Sprintf("%s?offset=%d&limit=%d", path, opts.Offset, opts.Limit)},
		},
	}
}

func positiveOrDefault(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func nonNegativeOrDefault(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
