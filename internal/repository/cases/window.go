package cases

import (
	"math"

	"bizdiag/internal/types"
)

// DefaultPerPage matches the repository view's page size.
const DefaultPerPage = 5

// PageResult is one page of a result set. Page is 1-based and clamped.
type PageResult struct {
	Items      []types.Case
	Page       int
	PerPage    int
	TotalPages int
	Total      int
}

// Paginate slices cases into pages of perPage. An empty input still has one
// (empty) page.
func Paginate(cases []types.Case, page, perPage int) PageResult {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	total := len(cases)
	pages := (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}
	items := []types.Case{}
	if start < end {
		items = append(items, cases[start:end]...)
	}
	return PageResult{Items: items, Page: page, PerPage: perPage, TotalPages: pages, Total: total}
}

// Viewport describes the scroll container for windowed rendering.
type Viewport struct {
	Height    float64
	RowHeight float64
	ScrollTop float64
	// Overscan rows are materialized on each side of the visible range.
	Overscan int
}

// WindowRange is the half-open [Start, End) slice of rows to materialize.
// OffsetTop positions the first row; TotalHeight reserves the full scroll
// extent.
type WindowRange struct {
	Start       int
	End         int
	OffsetTop   float64
	TotalHeight float64
}

func (w WindowRange) Len() int { return w.End - w.Start }

// Window computes which of total rows are visible in v.
func Window(total int, v Viewport) WindowRange {
	if total <= 0 || v.RowHeight <= 0 {
		return WindowRange{}
	}
	totalHeight := float64(total) * v.RowHeight
	scroll := math.Max(0, math.Min(v.ScrollTop, math.Max(0, totalHeight-v.Height)))
	first := int(math.Floor(scroll / v.RowHeight))
	visible := int(math.Ceil(math.Max(v.Height, 0)/v.RowHeight)) + 1

	start := first - v.Overscan
	if start < 0 {
		start = 0
	}
	end := first + visible + v.Overscan
	if end > total {
		end = total
	}
	return WindowRange{
		Start:       start,
		End:         end,
		OffsetTop:   float64(start) * v.RowHeight,
		TotalHeight: totalHeight,
	}
}
