package llmtool

// Preset is a reusable block of constraints and rules shared by prompts.
type Preset struct {
	Constraints []string
	Rules       []string
}

// WithPresets puts the preset constraints and rules ahead of the spec's own.
func WithPresets(spec StructuredPromptSpec, presets ...Preset) StructuredPromptSpec {
	if len(presets) == 0 {
		return spec
	}
	var constraints, rules []string
	for _, p := range presets {
		constraints = append(constraints, p.Constraints...)
		rules = append(rules, p.Rules...)
	}
	spec.Constraints = append(constraints, spec.Constraints...)
	spec.Rules = append(rules, spec.Rules...)
	return spec
}

// StrictJSON asks for a bare JSON document matching the response schema.
func StrictJSON() Preset {
	return Preset{
		Constraints: []string{
			"Devuelve únicamente JSON válido.",
			"Respeta el esquema exactamente, sin campos adicionales.",
			"Sin markdown, comentarios ni comas finales.",
		},
	}
}

// GroundedInInput forbids facts that the user did not provide.
func GroundedInInput() Preset {
	return Preset{
		Constraints: []string{
			"No inventes datos, cifras ni nombres que no aparezcan en la entrada.",
		},
	}
}

// ConservativeEstimates keeps projections plausible and explicit about
// their assumptions.
func ConservativeEstimates() Preset {
	return Preset{
		Rules: []string{
			"Prefiere estimaciones conservadoras y menciona el supuesto principal en la descripción.",
		},
	}
}
