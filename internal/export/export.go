// Package export turns a completed analysis into downloadable artifacts and
// hands them to a sink.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"gopkg.in/yaml.v3"

	"bizdiag/internal/types"
)

// BaseName is the file stem of every exported document.
const BaseName = "Diagnostico_Estrategico"

var ErrIncomplete = errors.New("export: diagnosis, redesign and impact are all required")

// Report is the triple being exported. Field names follow the Spanish keys
// of the original export format.
type Report struct {
	Diagnosis *types.DiagnosisResult `json:"diagnostico"`
	Redesign  *types.RedesignResult  `json:"rediseño"`
	Impact    *types.ImpactResult    `json:"impacto"`
}

func (r Report) complete() error {
	if r.Diagnosis == nil || r.Redesign == nil || r.Impact == nil {
		return ErrIncomplete
	}
	return nil
}

type Artifact struct {
	Name        string
	ContentType string
	Body        []byte
}

type Exporter interface {
	Export(ctx context.Context, r Report) (Artifact, error)
}

// ForFormat returns the exporter for "json", "yaml" or "md".
func ForFormat(format string) (Exporter, bool) {
	switch format {
	case "json":
		return JSONExporter{}, true
	case "yaml", "yml":
		return YAMLExporter{}, true
	case "md", "markdown":
		return MarkdownExporter{}, true
	}
	return nil, false
}

// JSONExporter writes the triple as two-space indented JSON.
type JSONExporter struct{}

func (JSONExporter) Export(_ context.Context, r Report) (Artifact, error) {
	if err := r.complete(); err != nil {
		return Artifact{}, err
	}
	body, err := ToJSON(r)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Name: BaseName + ".json", ContentType: "application/json", Body: body}, nil
}

// ToJSON encodes v as two-space indented JSON without HTML escaping.
func ToJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// YAMLExporter writes the same document as JSONExporter in block YAML,
// keeping the JSON key order.
type YAMLExporter struct{}

func (YAMLExporter) Export(_ context.Context, r Report) (Artifact, error) {
	if err := r.complete(); err != nil {
		return Artifact{}, err
	}
	body, err := ToYAML(r)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Name: BaseName + ".yaml", ContentType: "application/yaml", Body: body}, nil
}

// ToYAML renders v as block YAML. It goes through the JSON form so json tags
// decide the keys; JSON is valid YAML, so the decoded node tree keeps the
// field order and only the styles need resetting.
func ToYAML(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	resetStyle(&doc)
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func resetStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		resetStyle(c)
	}
}
