package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bizdiag/internal/llm"
	"bizdiag/internal/llmtool"
	"bizdiag/internal/types"
)

const (
	QuestionCount   = 4
	MinRequirements = 3
	MaxRequirements = 5
)

// TranscriptAcceptedOnFailure is returned when the transcript check itself fails.
const TranscriptAcceptedOnFailure = "La validación falló, se aceptó la transcripción."

type questionsResult struct {
	Questions []string `json:"questions"`
}

// GenerateQuestions turns a symptom into exactly four clarifying questions.
func (r *Runner) GenerateQuestions(ctx context.Context, symptom string) ([]string, error) {
	symptom = strings.TrimSpace(symptom)
	if symptom == "" {
		return nil, wrap(StageDiagnosis, OpGenerateQuestions, invalid("symptom", "describa el problema antes de continuar"))
	}
	key := map[string]any{"problem": symptom}
	res, err := cached(ctx, r, OpGenerateQuestions, key,
		func() (string, error) { return questionsPrompt(symptom) },
		questionsSchema,
		func(q *questionsResult) error {
			q.Questions = nonBlank(q.Questions)
			if len(q.Questions) < QuestionCount {
				return fmt.Errorf("expected %d questions, got %d", QuestionCount, len(q.Questions))
			}
			q.Questions = q.Questions[:QuestionCount]
			return nil
		})
	if err != nil {
		return nil, wrap(StageDiagnosis, OpGenerateQuestions, err)
	}
	return res.Questions, nil
}

// AnalyzeRootCause derives the root cause and 3-5 action requirements.
func (r *Runner) AnalyzeRootCause(ctx context.Context, symptom string, answers []string) (*types.RootCauseAnalysis, error) {
	symptom = strings.TrimSpace(symptom)
	if symptom == "" {
		return nil, wrap(StageDiagnosis, OpAnalyzeRootCause, invalid("symptom", "describa el problema antes de continuar"))
	}
	if len(answers) == 0 {
		return nil, wrap(StageDiagnosis, OpAnalyzeRootCause, invalid("answers", "responda las preguntas de diagnóstico"))
	}
	for i, a := range answers {
		if strings.TrimSpace(a) == "" {
			return nil, wrap(StageDiagnosis, OpAnalyzeRootCause, invalid(fmt.Sprintf("answers[%d]", i), "por favor, responda a todas las preguntas"))
		}
	}
	key := map[string]any{"problem": symptom, "answers": answers}
	res, err := cached(ctx, r, OpAnalyzeRootCause, key,
		func() (string, error) { return rootCausePrompt(symptom, answers) },
		rootCauseSchema,
		func(a *types.RootCauseAnalysis) error {
			a.RootCause = strings.TrimSpace(a.RootCause)
			if a.RootCause == "" {
				return fmt.Errorf("empty root cause")
			}
			a.Requirements = nonBlank(a.Requirements)
			if len(a.Requirements) < MinRequirements {
				return fmt.Errorf("expected %d-%d requirements, got %d", MinRequirements, MaxRequirements, len(a.Requirements))
			}
			if len(a.Requirements) > MaxRequirements {
				a.Requirements = a.Requirements[:MaxRequirements]
			}
			return nil
		})
	if err != nil {
		return nil, wrap(StageDiagnosis, OpAnalyzeRootCause, err)
	}
	return &res, nil
}

// ValidateTranscription classifies dictated text. It never fails: a remote
// problem yields an accepting verdict so manual correction is never blocked.
func (r *Runner) ValidateTranscription(ctx context.Context, transcript string) types.TranscriptValidation {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return types.TranscriptValidation{IsValid: false, Feedback: "No se detectó ninguna transcripción."}
	}
	prompt, err := transcriptPrompt(transcript)
	if err != nil {
		r.log.Warn("transcript prompt", zap.Error(err))
		return types.TranscriptValidation{IsValid: true, Feedback: TranscriptAcceptedOnFailure}
	}
	var out types.TranscriptValidation
	if err := r.inv.Invoke(llm.WithOperation(ctx, OpValidateTranscription), prompt, transcriptSchema, 1, &out); err != nil {
		r.log.Warn("transcript validation failed, accepting", zap.Error(err))
		return types.TranscriptValidation{IsValid: true, Feedback: TranscriptAcceptedOnFailure}
	}
	return out
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func questionsPrompt(symptom string) (string, error) {
	return llmtool.Render(llmtool.WithPresets(llmtool.StructuredPromptSpec{
		Purpose:    "Diagnosticar un problema de negocio vago mediante preguntas de seguimiento.",
		Background: "Eres un consultor de transformación de procesos. El usuario describe un síntoma, no la causa.",
		Input:      map[string]string{"problem": symptom},
		Tasks: []string{
			fmt.Sprintf("Genera %d preguntas de seguimiento cruciales y concisas para diagnosticar la causa raíz.", QuestionCount),
			"Las preguntas deben obligar al usuario a proporcionar contexto y datos específicos.",
		},
		OutputFields: []llmtool.PromptField{
			{Name: "questions", Type: "[]string", Required: true, Description: fmt.Sprintf("Exactamente %d preguntas.", QuestionCount)},
		},
		OutputFormat: "Solo JSON.",
		Language:     "Español",
	}, llmtool.StrictJSON()))
}

func rootCausePrompt(symptom string, answers []string) (string, error) {
	numbered := make([]string, len(answers))
	for i, a := range answers {
		numbered[i] = fmt.Sprintf("Respuesta %d: %s", i+1, a)
	}
	return llmtool.Render(llmtool.WithPresets(llmtool.StructuredPromptSpec{
		Purpose:    "Identificar la causa raíz real de un problema de negocio, no solo el síntoma.",
		Background: "Problema de negocio inicial: " + symptom,
		Input:      map[string]any{"problem": symptom, "answers": numbered},
		Tasks: []string{
			"Analiza esta información para identificar la causa raíz real.",
			fmt.Sprintf("Traduce la causa raíz en %d a %d requerimientos de acción específicos y claros (procesales y técnicos).", MinRequirements, MaxRequirements),
		},
		OutputFields: []llmtool.PromptField{
			{Name: "rootCause", Type: "string", Required: true, Description: "El análisis conciso de la causa raíz."},
			{Name: "requirements", Type: "[]string", Required: true, Description: "Requerimientos de acción."},
		},
		OutputFormat: "Solo JSON.",
		Language:     "Español",
	}, llmtool.StrictJSON(), llmtool.GroundedInInput()))
}

func transcriptPrompt(transcript string) (string, error) {
	return llmtool.Render(llmtool.WithPresets(llmtool.StructuredPromptSpec{
		Purpose: "Evaluar si una transcripción de voz de un contexto de negocio es coherente y comprensible.",
		Input:   map[string]string{"transcript": transcript},
		OutputFields: []llmtool.PromptField{
			{Name: "isValid", Type: "boolean", Required: true},
			{Name: "feedback", Type: "string", Required: true},
		},
		Rules: []string{
			`Si es válida responde {"isValid": true, "feedback": "Transcripción clara."}.`,
			`Si es ininteligible, inconsistente o ruido sin sentido responde {"isValid": false, "feedback": "La transcripción no fue clara. Por favor, intente hablar más despacio y claro cerca del micrófono."}.`,
		},
		OutputFormat: "Solo JSON.",
		Language:     "Español",
	}, llmtool.StrictJSON()))
}
