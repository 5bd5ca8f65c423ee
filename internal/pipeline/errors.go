package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bizdiag/internal/llm"
)

// Operation names double as cache key segments.
const (
	OpGenerateQuestions     = "generateFollowUpQuestions"
	OpAnalyzeRootCause      = "analyzeRootCause"
	OpValidateTranscription = "validateTranscription"
	OpGenerateRedesign      = "generateRedesign"
	OpCalculateImpact       = "calculateImpact"
)

type Stage string

const (
	StageDiagnosis Stage = "diagnosis"
	StageRedesign  Stage = "redesign"
	StageImpact    Stage = "impact"
)

// ValidationError is a local input check failure. No remote call was made.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

type ErrorKind int

const (
	KindRemote ErrorKind = iota
	KindValidation
	KindUnavailable
	KindMalformed
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnavailable:
		return "unavailable"
	case KindMalformed:
		return "malformed"
	case KindCanceled:
		return "canceled"
	}
	return "remote"
}

// StageError wraps a failed operation with the stage it belongs to.
type StageError struct {
	Stage Stage
	Op    string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Kind classifies the underlying failure.
func (e *StageError) Kind() ErrorKind { return KindOf(e.Err) }

// KindOf classifies any pipeline error.
func KindOf(err error) ErrorKind {
	switch {
	case IsValidation(err):
		return KindValidation
	case llm.IsMalformed(err):
		return KindMalformed
	case llm.IsUnavailable(err):
		return KindUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	}
	return KindRemote
}

type failureText struct{ short, long string }

var failureTexts = map[string]failureText{
	OpGenerateQuestions: {"No se pudieron generar las preguntas.", "No se pudieron generar las preguntas de seguimiento."},
	OpAnalyzeRootCause:  {"No se pudo analizar la causa raíz.", "No se pudo analizar la causa raíz."},
	OpGenerateRedesign:  {"No se pudo generar el rediseño.", "No se pudo generar el plan de rediseño."},
	OpCalculateImpact:   {"No se pudo calcular el impacto.", "No se pudo calcular el impacto de negocio."},
}

const (
	msgMalformed   = "La IA devolvió un formato de respuesta inesperado."
	msgUnavailable = "Error de red al comunicarse con la IA. Verifique su conexión a internet e inténtelo de nuevo."
)

// UserMessage is the text shown next to the stage's retry control.
func (e *StageError) UserMessage() string {
	txt, ok := failureTexts[e.Op]
	if !ok {
		txt = failureText{"La operación falló.", "La operación falló."}
	}
	switch e.Kind() {
	case KindValidation:
		return e.Err.Error()
	case KindMalformed:
		return txt.short + " " + msgMalformed
	case KindUnavailable:
		return txt.long + " " + msgUnavailable
	case KindCanceled:
		return txt.long + " La operación fue cancelada."
	}
	var remote *llm.RemoteError
	if errors.As(e.Err, &remote) {
		return fmt.Sprintf("%s Error final al contactar la IA: %s. Por favor, inténtelo de nuevo más tarde.", txt.long, strings.TrimSpace(remote.Message))
	}
	return txt.long + " " + e.Err.Error()
}

func wrap(stage Stage, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Op: op, Err: err}
}
