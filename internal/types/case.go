package types

// Case is a frozen snapshot of one completed analysis.
type Case struct {
	ID        string        `json:"id"`
	Timestamp string        `json:"timestamp"`
	Symptom   string        `json:"symptom"`
	RootCause string        `json:"rootCause"`
	Solutions []Solution    `json:"solutions"`
	Tier      Tier          `json:"tier"`
	ROI       ROIProjection `json:"roi"`
}

// SearchHistoryItem is one remembered repository filter combination.
type SearchHistoryItem struct {
	Query    string            `json:"query"`
	Tier     *Tier             `json:"tier"`
	Category *SolutionCategory `json:"category"`
}

// Equal reports exact tuple equality.
func (h SearchHistoryItem) Equal(o SearchHistoryItem) bool {
	if h.Query != o.Query {
		return false
	}
	if (h.Tier == nil) != (o.Tier == nil) || (h.Tier != nil && *h.Tier != *o.Tier) {
		return false
	}
	if (h.Category == nil) != (o.Category == nil) || (h.Category != nil && *h.Category != *o.Category) {
		return false
	}
	return true
}

// IsZero reports whether no filter is set.
func (h SearchHistoryItem) IsZero() bool {
	return h.Query == "" && h.Tier == nil && h.Category == nil
}

type Todo struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}
