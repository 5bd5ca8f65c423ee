package cases

import (
	"sync"

	"bizdiag/internal/types"
)

// Browser keeps the view state of one repository listing: the active filter
// and sort, the current page, the scroll offset and which cases are expanded.
// Expansion is keyed by case id so it survives reordering and filtering.
type Browser struct {
	mu       sync.Mutex
	all      []types.Case
	view     []types.Case
	filter   Filter
	sort     Sort
	page     int
	perPage  int
	viewport Viewport
	expanded map[string]bool
}

func NewBrowser(all []types.Case, perPage int) *Browser {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	b := &Browser{
		all:      all,
		sort:     DefaultSort,
		page:     1,
		perPage:  perPage,
		expanded: make(map[string]bool),
	}
	b.recompute()
	return b
}

func (b *Browser) recompute() {
	b.view = Query(b.all, b.filter, b.sort)
	pages := (len(b.view) + b.perPage - 1) / b.perPage
	if pages < 1 {
		pages = 1
	}
	if b.page > pages {
		b.page = pages
	}
}

func (b *Browser) toTop() {
	b.page = 1
	b.viewport.ScrollTop = 0
}

// SetCases replaces the source collection, keeping the filter.
func (b *Browser) SetCases(all []types.Case) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = all
	b.recompute()
}

// SetFilter applies f. A changed filter returns to the first page and the
// top of the list.
func (b *Browser) SetFilter(f Filter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.filter.Equal(f) {
		return
	}
	b.filter = f
	b.toTop()
	b.recompute()
}

// ApplyHistory replays a remembered search.
func (b *Browser) ApplyHistory(item types.SearchHistoryItem) {
	b.SetFilter(FilterFromHistory(item))
}

func (b *Browser) Filter() Filter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filter
}

func (b *Browser) SetSort(s Sort) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sort == s {
		return
	}
	b.sort = s
	b.toTop()
	b.recompute()
}

func (b *Browser) SetPage(page int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if page < 1 {
		page = 1
	}
	b.page = page
	b.viewport.ScrollTop = 0
	b.recompute()
}

func (b *Browser) Page() PageResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Paginate(b.view, b.page, b.perPage)
}

// Results returns the full filtered and sorted sequence.
func (b *Browser) Results() []types.Case {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]types.Case(nil), b.view...)
}

// SetViewport updates the container size and row height estimate.
func (b *Browser) SetViewport(height, rowHeight float64, overscan int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.viewport.Height = height
	b.viewport.RowHeight = rowHeight
	b.viewport.Overscan = overscan
}

func (b *Browser) Scroll(top float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.viewport.ScrollTop = top
}

func (b *Browser) ScrollTop() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewport.ScrollTop
}

// Visible returns the window over the whole filtered sequence and the cases
// inside it.
func (b *Browser) Visible() (WindowRange, []types.Case) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := Window(len(b.view), b.viewport)
	return w, append([]types.Case(nil), b.view[w.Start:w.End]...)
}

// Toggle flips the expanded state of a case and returns the new state.
func (b *Browser) Toggle(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.expanded[id] {
		delete(b.expanded, id)
		return false
	}
	b.expanded[id] = true
	return true
}

func (b *Browser) Expanded(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.expanded[id]
}
