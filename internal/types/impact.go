package types

import "fmt"

// Tier is the 1-4 business value classification of a project.
type Tier int

const (
	TierEfficacy      Tier = 1
	TierCostReduction Tier = 2
	TierRevenue       Tier = 3
	TierDifferentiate Tier = 4
)

func (t Tier) Valid() bool { return t >= TierEfficacy && t <= TierDifferentiate }

func (t Tier) Label() string {
	switch t {
	case TierEfficacy:
		return "Tier 1: Eficacia"
	case TierCostReduction:
		return "Tier 2: Reducción de Costos"
	case TierRevenue:
		return "Tier 3: Mejoramiento de Ingresos"
	case TierDifferentiate:
		return "Tier 4: Diferencia Competitiva"
	}
	return fmt.Sprintf("Tier %d", int(t))
}

type ROIProjection struct {
	Metric      string  `json:"metric"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

type ImpactResult struct {
	Tier          Tier          `json:"tier"`
	ROI           ROIProjection `json:"roi"`
	Communication string        `json:"communication"`
}

func (i *ImpactResult) Clone() *ImpactResult {
	if i == nil {
		return nil
	}
	out := *i
	return &out
}
