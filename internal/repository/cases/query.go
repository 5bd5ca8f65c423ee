package cases

import (
	"sort"
	"strings"

	"bizdiag/internal/types"
)

// Filter narrows the case list. Zero values match everything.
type Filter struct {
	Text     string
	Tier     *types.Tier
	Category *types.SolutionCategory
}

func (f Filter) normalized() Filter {
	f.Text = strings.TrimSpace(f.Text)
	return f
}

// Equal reports whether two filters select the same cases.
func (f Filter) Equal(o Filter) bool {
	return f.HistoryItem().Equal(o.HistoryItem())
}

// HistoryItem converts the filter to its search-history form.
func (f Filter) HistoryItem() types.SearchHistoryItem {
	f = f.normalized()
	return types.SearchHistoryItem{Query: f.Text, Tier: f.Tier, Category: f.Category}
}

// FilterFromHistory restores a filter from a history entry.
func FilterFromHistory(h types.SearchHistoryItem) Filter {
	return Filter{Text: h.Query, Tier: h.Tier, Category: h.Category}
}

func (f Filter) match(c types.Case) bool {
	if f.Text != "" {
		needle := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(c.Symptom), needle) &&
			!strings.Contains(strings.ToLower(c.RootCause), needle) {
			return false
		}
	}
	if f.Tier != nil && c.Tier != *f.Tier {
		return false
	}
	if f.Category != nil && !types.HasCategory(c.Solutions, *f.Category) {
		return false
	}
	return true
}

type SortKey int

const (
	SortByID SortKey = iota
	SortByTier
)

type Sort struct {
	Key  SortKey
	Desc bool
}

var (
	// DefaultSort lists the most recent case first.
	DefaultSort = Sort{Key: SortByID, Desc: true}
	// TierSort lists tier 1 first, newest first within a tier.
	TierSort = Sort{Key: SortByTier}
)

// Query returns the cases matching f ordered by s. The input is not modified.
func Query(cases []types.Case, f Filter, s Sort) []types.Case {
	f = f.normalized()
	out := make([]types.Case, 0, len(cases))
	for _, c := range cases {
		if f.match(c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if s.Key == SortByTier && a.Tier != b.Tier {
			if s.Desc {
				return a.Tier > b.Tier
			}
			return a.Tier < b.Tier
		}
		if s.Key == SortByTier || s.Desc {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})
	return out
}
