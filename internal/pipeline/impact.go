package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"

	"bizdiag/internal/llmtool"
	"bizdiag/internal/types"
)

// CalculateImpact classifies the project tier and projects its ROI.
func (r *Runner) CalculateImpact(ctx context.Context, d *types.DiagnosisResult, rd *types.RedesignResult) (*types.ImpactResult, error) {
	if err := requireDiagnosis(d); err != nil {
		return nil, wrap(StageImpact, OpCalculateImpact, err)
	}
	if rd == nil || len(rd.Solutions) == 0 {
		return nil, wrap(StageImpact, OpCalculateImpact, invalid("redesign", "se requiere un rediseño con soluciones"))
	}
	key := map[string]any{"diagnosis": d, "redesign": rd}
	res, err := cached(ctx, r, OpCalculateImpact, key,
		func() (string, error) { return impactPrompt(d, rd) },
		impactSchema,
		func(i *types.ImpactResult) error {
			if !i.Tier.Valid() {
				return fmt.Errorf("tier %d outside [1,4]", int(i.Tier))
			}
			if math.IsNaN(i.ROI.Value) || math.IsInf(i.ROI.Value, 0) {
				return fmt.Errorf("roi value is not finite")
			}
			if i.ROI.Value < 0 {
				return fmt.Errorf("roi value %g is negative", i.ROI.Value)
			}
			return nil
		})
	if err != nil {
		return nil, wrap(StageImpact, OpCalculateImpact, err)
	}
	return &res, nil
}

func impactPrompt(d *types.DiagnosisResult, rd *types.RedesignResult) (string, error) {
	descs := make([]string, len(rd.Solutions))
	for i, s := range rd.Solutions {
		descs[i] = s.Description
	}
	return llmtool.Render(llmtool.WithPresets(llmtool.StructuredPromptSpec{
		Purpose:    "Analizar el impacto de negocio de un proyecto de transformación.",
		Background: fmt.Sprintf("Diagnóstico: la causa raíz fue '%s'.\nSolución: se propuso un rediseño con las siguientes soluciones: %s.", d.RootCause, strings.Join(descs, ", ")),
		Tasks: []string{
			"Clasifica el proyecto en un Tier de 1 a 4 según la jerarquía de valor (1: Eficacia, 2: Reducción de Costos, 3: Mejora de Ingresos, 4: Diferencia Competitiva).",
			"Proyecta un ROI cuantificable: una métrica clave (ej. 'Aumento de ingresos anual'), un valor numérico estimado y una breve descripción que justifique el cálculo.",
			"Genera un párrafo de comunicación de valor para una propuesta, enfocado en resultados de negocio y no en detalles técnicos.",
		},
		OutputFields: []llmtool.PromptField{
			{Name: "tier", Type: "integer", Required: true, Description: "1-4."},
			{Name: "roi", Type: "{metric, value, description}", Required: true},
			{Name: "communication", Type: "string", Required: true},
		},
		OutputFormat: "Solo JSON.",
		Language:     "Español",
	}, llmtool.StrictJSON(), llmtool.ConservativeEstimates()))
}
