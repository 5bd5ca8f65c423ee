package pipeline

import (
	"context"
	"fmt"
	"strings"

	"bizdiag/internal/llmtool"
	"bizdiag/internal/types"
)

const (
	MinSolutions = 3
	MaxSolutions = 4
)

// GenerateRedesign proposes the as-is/to-be model for a locked diagnosis.
// Diagram content is passed through untouched.
func (r *Runner) GenerateRedesign(ctx context.Context, d *types.DiagnosisResult) (*types.RedesignResult, error) {
	if err := requireDiagnosis(d); err != nil {
		return nil, wrap(StageRedesign, OpGenerateRedesign, err)
	}
	key := map[string]any{"diagnosis": d}
	res, err := cached(ctx, r, OpGenerateRedesign, key,
		func() (string, error) { return redesignPrompt(d) },
		redesignSchema,
		checkRedesign)
	if err != nil {
		return nil, wrap(StageRedesign, OpGenerateRedesign, err)
	}
	return &res, nil
}

func checkRedesign(r *types.RedesignResult) error {
	kept := r.Solutions[:0]
	for _, s := range r.Solutions {
		if !s.Category.Valid() {
			return fmt.Errorf("unknown solution category %q", s.Category)
		}
		if strings.TrimSpace(s.Description) == "" {
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) < MinSolutions {
		return fmt.Errorf("expected %d-%d solutions, got %d", MinSolutions, MaxSolutions, len(kept))
	}
	if len(kept) > MaxSolutions {
		kept = kept[:MaxSolutions]
	}
	r.Solutions = kept
	return nil
}

func requireDiagnosis(d *types.DiagnosisResult) error {
	if d == nil {
		return invalid("diagnosis", "se requiere un diagnóstico completo")
	}
	if strings.TrimSpace(d.RootCause) == "" {
		return invalid("diagnosis.rootCause", "se requiere la causa raíz")
	}
	return d.Validate()
}

func redesignPrompt(d *types.DiagnosisResult) (string, error) {
	cats := make([]string, 0, 3)
	for _, c := range types.AllSolutionCategories() {
		cats = append(cats, "'"+string(c)+"'")
	}
	return llmtool.Render(llmtool.WithPresets(llmtool.StructuredPromptSpec{
		Purpose:    "Rediseñar un proceso de negocio a partir de un diagnóstico de causa raíz.",
		Background: "Síntoma inicial: " + d.Symptom + "\nCausa raíz identificada: " + d.RootCause,
		Input: map[string]any{
			"symptom":      d.Symptom,
			"rootCause":    d.RootCause,
			"requirements": d.Requirements,
		},
		Tasks: []string{
			`Crea un diagrama de flujo SVG simple para el proceso 'As-Is' (actual). Usa rectángulos (rx="8", fill="#4A5568", stroke="#A0AEC0"), texto (fill="#EDF2F7", font-size="14") y flechas (path con marker-end). Fondo transparente y padding de 20px.`,
			`Crea un diagrama de flujo SVG simple para el proceso 'To-Be' que solucione la causa raíz. Usa rectángulos (rx="8", fill="#00A9FF", stroke="#A0E9FF") y el mismo estilo de texto y flechas.`,
			fmt.Sprintf("Propón de %d a %d soluciones de transformación, clasificadas en %s.", MinSolutions, MaxSolutions, strings.Join(cats, ", ")),
			"Escribe una breve revisión del diseño 'To-Be', verificando que se establezca visibilidad y protocolos de autoridad claros.",
		},
		OutputFields: []llmtool.PromptField{
			{Name: "asIsSVG", Type: "string", Required: true, Description: "SVG del proceso actual."},
			{Name: "toBeSVG", Type: "string", Required: true, Description: "SVG del proceso rediseñado."},
			{Name: "solutions", Type: "[]{category, description}", Required: true},
			{Name: "review", Type: "string", Required: true},
		},
		OutputFormat: "Solo JSON.",
		Language:     "Español",
	}, llmtool.StrictJSON(), llmtool.GroundedInInput()))
}
