// Package pagination implements offset pagination over counted queries.
package pagination

import (
	"context"
	"math"
	"net/url"
	"strconv"
)

const (
	DefaultNumber = 1
	DefaultSize   = 100

	NumberParam = "page[number]"
	SizeParam   = "page[size]"
)

// ParseParams reads the page number and size from a query string. Absent,
// unparsable and non-positive values fall back to the defaults.
func ParseParams(q url.Values) (number, size int) {
	return parsePositive(q.Get(NumberParam), DefaultNumber), parsePositive(q.Get(SizeParam), DefaultSize)
}

func parsePositive(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Bounds returns the inclusive zero-based row range of page number with the
// given size. Ranges beyond math.MaxInt saturate at the last representable page.
func Bounds(number, size int) (first, last int) {
	if size > 0 && number > 1 && number-1 > (math.MaxInt-size)/size {
		return math.MaxInt - size + 1, math.MaxInt
	}
	first = (number - 1) * size
	return first, first + size - 1
}

// Query is a counted, sliceable result set.
type Query[T any] interface {
	Count(ctx context.Context) (int, error)
	Slice(ctx context.Context, offset, limit int) ([]T, error)
}

// QueryFuncs adapts a pair of functions to Query.
type QueryFuncs[T any] struct {
	CountFunc func(ctx context.Context) (int, error)
	SliceFunc func(ctx context.Context, offset, limit int) ([]T, error)
}

func (q QueryFuncs[T]) Count(ctx context.Context) (int, error) { return q.CountFunc(ctx) }

func (q QueryFuncs[T]) Slice(ctx context.Context, offset, limit int) ([]T, error) {
	return q.SliceFunc(ctx, offset, limit)
}

// Page is one page of results.
type Page[T any] struct {
	Number     int `json:"number"`
	Size       int `json:"size"`
	TotalCount int `json:"count"`
	TotalPages int `json:"total_pages"`
	Items      []T `json:"items"`
}

// NewPage builds a page. TotalPages is derived from totalCount only.
func NewPage[T any](number, size, totalCount int, items []T) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if size > 0 {
		pages = totalCount / size
		if totalCount%size != 0 {
			pages++
		}
	}
	return Page[T]{
		Number:     number,
		Size:       size,
		TotalCount: totalCount,
		TotalPages: pages,
		Items:      items,
	}
}

// Paginate counts q and fetches page number of the given size. Non-positive
// arguments fall back to the defaults. A storage failure yields an empty page
// with a zero count; the error is returned alongside it.
func Paginate[T any](ctx context.Context, q Query[T], number, size int) (Page[T], error) {
	if number < 1 {
		number = DefaultNumber
	}
	if size < 1 {
		size = DefaultSize
	}

	total, err := q.Count(ctx)
	if err != nil {
		return NewPage[T](number, size, 0, nil), err
	}

	page := NewPage[T](number, size, total, nil)
	if number > page.TotalPages {
		return page, nil
	}

	first, _ := Bounds(number, size)

	items, err := q.Slice(ctx, first, size)
	if err != nil {
		return NewPage[T](number, size, 0, nil), err
	}
	return NewPage(number, size, total, items), nil
}

// HasNext reports whether a page follows this one.
func (p Page[T]) HasNext() bool { return p.Number < p.TotalPages }

// HasPrev reports whether a page precedes this one.
func (p Page[T]) HasPrev() bool { return p.Number > 1 }

// NextNum returns the next page number, or 0 on the last page.
func (p Page[T]) NextNum() int {
	if !p.HasNext() {
		return 0
	}
	return p.Number + 1
}

// PrevNum returns the previous page number, or 0 on the first page.
func (p Page[T]) PrevNum() int {
	if !p.HasPrev() {
		return 0
	}
	return p.Number - 1
}

// Metadata returns the page description used in list response headers.
func (p Page[T]) Metadata() map[string]int {
	return map[string]int{
		"page_number": p.Number,
		"per_page":    p.Size,
		"total_pages": p.TotalPages,
		"total_count": p.TotalCount,
	}
}
