package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SolutionCategory classifies a transformation solution.
// The string value is the label exchanged with the model and persisted in cases.
type SolutionCategory string

const (
	CategoryProcess      SolutionCategory = "Rediseño de Proceso Puro"
	CategoryOrganization SolutionCategory = "Cambios Organizacionales"
	CategoryTechnology   SolutionCategory = "Implementación Tecnológica"
)

// AllSolutionCategories returns the fixed categories in display order.
func AllSolutionCategories() []SolutionCategory {
	return []SolutionCategory{CategoryProcess, CategoryOrganization, CategoryTechnology}
}

// Valid reports whether c is one of the fixed categories.
func (c SolutionCategory) Valid() bool {
	switch c {
	case CategoryProcess, CategoryOrganization, CategoryTechnology:
		return true
	}
	return false
}

// Short returns the compact label used by filters.
func (c SolutionCategory) Short() string {
	switch c {
	case CategoryProcess:
		return "Proceso"
	case CategoryOrganization:
		return "Organización"
	case CategoryTechnology:
		return "Tecnología"
	}
	return string(c)
}

// ParseSolutionCategory accepts the full label, the short label or the
// english key (process, organization, technology), case-insensitively.
func ParseSolutionCategory(s string) (SolutionCategory, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, c := range AllSolutionCategories() {
		if v == strings.ToLower(string(c)) || v == strings.ToLower(c.Short()) {
			return c, nil
		}
	}
	switch v {
	case "process":
		return CategoryProcess, nil
	case "organization", "organisation":
		return CategoryOrganization, nil
	case "technology", "tech":
		return CategoryTechnology, nil
	}
	return "", fmt.Errorf("unknown solution category: %q", s)
}

type Solution struct {
	Category    SolutionCategory `json:"category"`
	Description string           `json:"description"`
}

// RedesignResult is the as-is/to-be model proposed for a diagnosis.
// Diagrams are opaque renderable descriptions (SVG from the model).
type RedesignResult struct {
	AsIsDiagram string     `json:"asIsDiagram"`
	ToBeDiagram string     `json:"toBeDiagram"`
	Solutions   []Solution `json:"solutions"`
	Review      string     `json:"review"`
}

// UnmarshalJSON accepts the persisted names and the asIsSVG/toBeSVG names
// the model is asked for.
func (r *RedesignResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		AsIsDiagram string     `json:"asIsDiagram"`
		ToBeDiagram string     `json:"toBeDiagram"`
		AsIsSVG     string     `json:"asIsSVG"`
		ToBeSVG     string     `json:"toBeSVG"`
		Solutions   []Solution `json:"solutions"`
		Review      string     `json:"review"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.AsIsDiagram = firstNonEmpty(raw.AsIsDiagram, raw.AsIsSVG)
	r.ToBeDiagram = firstNonEmpty(raw.ToBeDiagram, raw.ToBeSVG)
	r.Solutions = raw.Solutions
	r.Review = raw.Review
	return nil
}

// Clone returns a deep copy of r.
func (r *RedesignResult) Clone() *RedesignResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Solutions = append([]Solution(nil), r.Solutions...)
	return &out
}

// HasCategory reports whether any solution belongs to c.
func HasCategory(solutions []Solution, c SolutionCategory) bool {
	for _, s := range solutions {
		if s.Category == c {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
