package pipeline

import (
	genai "google.golang.org/genai"

	"bizdiag/internal/types"
)

func str(desc string) *genai.Schema { return &genai.Schema{Type: genai.TypeString, Description: desc} }

func strList(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Description: desc}
}

var questionsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"questions": strList("Cuatro preguntas de seguimiento."),
	},
	Required: []string{"questions"},
}

var rootCauseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"rootCause":    str("El análisis conciso de la causa raíz del problema."),
		"requirements": strList("Una lista de requerimientos de acción."),
	},
	Required:         []string{"rootCause", "requirements"},
	PropertyOrdering: []string{"rootCause", "requirements"},
}

var transcriptSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"isValid":  {Type: genai.TypeBoolean},
		"feedback": {Type: genai.TypeString},
	},
	Required: []string{"isValid", "feedback"},
}

func categoryEnum() []string {
	cats := types.AllSolutionCategories()
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}

var redesignSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"asIsSVG": str("Código SVG del diagrama de flujo 'As-Is'."),
		"toBeSVG": str("Código SVG del diagrama de flujo 'To-Be'."),
		"solutions": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"category":    {Type: genai.TypeString, Enum: categoryEnum()},
					"description": {Type: genai.TypeString},
				},
				Required: []string{"category", "description"},
			},
		},
		"review": str("Revisión de visibilidad y protocolos."),
	},
	Required:         []string{"asIsSVG", "toBeSVG", "solutions", "review"},
	PropertyOrdering: []string{"asIsSVG", "toBeSVG", "solutions", "review"},
}

var impactSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"tier": {Type: genai.TypeInteger, Description: "Tier del proyecto (1-4)."},
		"roi": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"metric":      {Type: genai.TypeString},
				"value":       {Type: genai.TypeNumber},
				"description": {Type: genai.TypeString},
			},
			Required: []string{"metric", "value", "description"},
		},
		"communication": str("Texto de comunicación de valor."),
	},
	Required:         []string{"tier", "roi", "communication"},
	PropertyOrdering: []string{"tier", "roi", "communication"},
}
