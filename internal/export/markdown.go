package export

import (
	"context"
	"fmt"
	"strings"

	"bizdiag/internal/types"
)

// MarkdownExporter renders the report as a readable document. Diagrams are
// embedded verbatim in fenced blocks.
type MarkdownExporter struct{}

func (MarkdownExporter) Export(_ context.Context, r Report) (Artifact, error) {
	if err := r.complete(); err != nil {
		return Artifact{}, err
	}
	return Artifact{Name: BaseName + ".md", ContentType: "text/markdown", Body: []byte(Markdown(r))}, nil
}

func Markdown(r Report) string {
	var b strings.Builder
	b.WriteString("# Diagnóstico Estratégico\n\n")
	if d := r.Diagnosis; d != nil {
		b.WriteString("## 1. Diagnóstico\n\n")
		fmt.Fprintf(&b, "**Síntoma:** %s\n\n", d.Symptom)
		for i, q := range d.Questions {
			answer := ""
			if i < len(d.Answers) {
				answer = d.Answers[i]
			}
			fmt.Fprintf(&b, "%d. **%s**\n   %s\n", i+1, q, answer)
		}
		fmt.Fprintf(&b, "\n**Causa raíz:** %s\n\n", d.RootCause)
		if len(d.Requirements) > 0 {
			b.WriteString("**Requerimientos:**\n\n")
			for _, req := range d.Requirements {
				fmt.Fprintf(&b, "- %s\n", req)
			}
			b.WriteString("\n")
		}
	}
	if rd := r.Redesign; rd != nil {
		b.WriteString("## 2. Rediseño\n\n")
		writeSolutions(&b, rd.Solutions)
		if strings.TrimSpace(rd.Review) != "" {
			fmt.Fprintf(&b, "**Revisión:** %s\n\n", rd.Review)
		}
		writeDiagram(&b, "Proceso actual (AS-IS)", rd.AsIsDiagram)
		writeDiagram(&b, "Proceso propuesto (TO-BE)", rd.ToBeDiagram)
	}
	if im := r.Impact; im != nil {
		b.WriteString("## 3. Impacto\n\n")
		fmt.Fprintf(&b, "**%s**\n\n", im.Tier.Label())
		writeROI(&b, im.ROI)
		if strings.TrimSpace(im.Communication) != "" {
			fmt.Fprintf(&b, "%s\n", im.Communication)
		}
	}
	return b.String()
}

// CaseMarkdown renders an archived case.
func CaseMarkdown(c types.Case) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Caso %s\n\n", c.ID)
	fmt.Fprintf(&b, "_%s_\n\n", c.Timestamp)
	fmt.Fprintf(&b, "**Síntoma:** %s\n\n", c.Symptom)
	fmt.Fprintf(&b, "**Causa raíz:** %s\n\n", c.RootCause)
	writeSolutions(&b, c.Solutions)
	fmt.Fprintf(&b, "**%s**\n\n", c.Tier.Label())
	writeROI(&b, c.ROI)
	return b.String()
}

func writeSolutions(b *strings.Builder, solutions []types.Solution) {
	if len(solutions) == 0 {
		return
	}
	b.WriteString("| Categoría | Solución |\n|---|---|\n")
	for _, s := range solutions {
		fmt.Fprintf(b, "| %s | %s |\n", s.Category.Short(), escapeCell(s.Description))
	}
	b.WriteString("\n")
}

func writeROI(b *strings.Builder, roi types.ROIProjection) {
	if roi.Metric == "" && roi.Description == "" {
		return
	}
	fmt.Fprintf(b, "**ROI:** %s %s\n\n", FormatValue(roi.Value), roi.Metric)
	if roi.Description != "" {
		fmt.Fprintf(b, "%s\n\n", roi.Description)
	}
}

func writeDiagram(b *strings.Builder, title, diagram string) {
	if strings.TrimSpace(diagram) == "" {
		return
	}
	fmt.Fprintf(b, "### %s\n\n```svg\n%s\n```\n\n", title, strings.TrimSpace(diagram))
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// FormatValue prints integral values without decimals.
func FormatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
