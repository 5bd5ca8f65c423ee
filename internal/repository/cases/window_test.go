package cases

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdiag/internal/types"
)

func manyCases(n int) []types.Case {
	out := make([]types.Case, n)
	for i := range out {
		out[i] = types.Case{
			ID:      fmt.Sprintf("2025-01-01T00:00:%02d.000000000Z", i%60) + fmt.Sprint(i/60),
			Symptom: fmt.Sprintf("caso %d", i),
			Tier:    types.Tier(i%4 + 1),
		}
	}
	return out
}

func TestPaginate(t *testing.T) {
	cs := manyCases(12)
	p := Paginate(cs, 1, 0)
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Equal(t, 3, p.TotalPages)
	assert.Len(t, p.Items, 5)

	p = Paginate(cs, 3, 5)
	assert.Len(t, p.Items, 2)
	assert.Equal(t, cs[10], p.Items[0])

	p = Paginate(cs, 99, 5)
	assert.Equal(t, 3, p.Page, "clamped to last page")

	p = Paginate(nil, 2, 5)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.TotalPages)
	assert.Empty(t, p.Items)
}

func TestWindow(t *testing.T) {
	w := Window(1000, Viewport{Height: 300, RowHeight: 100, ScrollTop: 0})
	assert.Equal(t, 0, w.Start)
	assert.Equal(t, 4, w.End)
	assert.Equal(t, 100000.0, w.TotalHeight)

	w = Window(1000, Viewport{Height: 300, RowHeight: 100, ScrollTop: 550, Overscan: 2})
	assert.Equal(t, 3, w.Start)
	assert.Equal(t, 11, w.End)
	assert.Equal(t, 300.0, w.OffsetTop)

	// scrolling past the end is clamped to the last screen
	w = Window(10, Viewport{Height: 300, RowHeight: 100, ScrollTop: 5000})
	assert.Equal(t, 7, w.Start)
	assert.Equal(t, 10, w.End)

	assert.Equal(t, WindowRange{}, Window(0, Viewport{Height: 300, RowHeight: 100}))
	assert.Equal(t, WindowRange{}, Window(10, Viewport{Height: 300}))
}

func TestWindowMaterializesOnlyVisibleRows(t *testing.T) {
	for _, total := range []int{1, 50, 10000} {
		w := Window(total, Viewport{Height: 480, RowHeight: 96, ScrollTop: 1234, Overscan: 1})
		assert.LessOrEqual(t, w.Len(), 8)
		assert.GreaterOrEqual(t, w.Start, 0)
		assert.LessOrEqual(t, w.End, total)
	}
}

func TestBrowserFilterResetsPageAndScroll(t *testing.T) {
	b := NewBrowser(manyCases(30), 5)
	b.SetPage(4)
	b.SetViewport(400, 100, 0)
	b.Scroll(700)
	assert.Equal(t, 4, b.Page().Page)

	b.SetFilter(Filter{Tier: tierPtr(2)})
	assert.Equal(t, 1, b.Page().Page)
	assert.Zero(t, b.ScrollTop())
	for _, c := range b.Results() {
		assert.Equal(t, types.Tier(2), c.Tier)
	}

	// same filter again keeps position
	b.SetPage(2)
	b.Scroll(50)
	b.SetFilter(Filter{Tier: tierPtr(2)})
	assert.Equal(t, 2, b.Page().Page)
	assert.Equal(t, 50.0, b.ScrollTop())
}

func TestBrowserExpansionSurvivesReordering(t *testing.T) {
	cs := manyCases(8)
	b := NewBrowser(cs, 5)
	target := cs[6].ID
	assert.True(t, b.Toggle(target))

	b.SetSort(TierSort)
	b.SetFilter(Filter{Text: "caso 6"})
	require.Len(t, b.Results(), 1)
	assert.True(t, b.Expanded(b.Results()[0].ID))
	assert.False(t, b.Expanded(cs[0].ID))

	assert.False(t, b.Toggle(target))
}

func TestBrowserVisible(t *testing.T) {
	b := NewBrowser(manyCases(100), 5)
	b.SetViewport(300, 100, 0)
	b.Scroll(1000)
	w, rows := b.Visible()
	assert.Equal(t, 10, w.Start)
	assert.Len(t, rows, w.Len())
	assert.Equal(t, b.Results()[10], rows[0])
}

func TestBrowserApplyHistory(t *testing.T) {
	b := NewBrowser(manyCases(10), 5)
	cat := types.CategoryProcess
	b.ApplyHistory(types.SearchHistoryItem{Query: "caso", Category: &cat})
	f := b.Filter()
	assert.Equal(t, "caso", f.Text)
	require.NotNil(t, f.Category)
	assert.Equal(t, cat, *f.Category)
}
