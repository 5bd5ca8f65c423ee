package types

import (
	"fmt"
	"strings"
)

// DiagnosisResult is the locked output of the diagnosis stage.
// Answers are aligned by index with Questions.
type DiagnosisResult struct {
	Symptom      string   `json:"symptom"`
	Questions    []string `json:"questions"`
	Answers      []string `json:"answers"`
	RootCause    string   `json:"rootCause"`
	Requirements []string `json:"requirements"`
}

// RootCauseAnalysis is the remote answer to a root-cause request.
type RootCauseAnalysis struct {
	RootCause    string   `json:"rootCause"`
	Requirements []string `json:"requirements"`
}

// TranscriptValidation is the verdict on a dictated transcript.
type TranscriptValidation struct {
	IsValid  bool   `json:"isValid"`
	Feedback string `json:"feedback"`
}

// Validate reports whether d is a complete, internally consistent diagnosis.
func (d *DiagnosisResult) Validate() error {
	if d == nil {
		return fmt.Errorf("diagnosis is nil")
	}
	if strings.TrimSpace(d.Symptom) == "" {
		return fmt.Errorf("symptom is required")
	}
	if len(d.Answers) != len(d.Questions) {
		return fmt.Errorf("answers (%d) do not match questions (%d)", len(d.Answers), len(d.Questions))
	}
	for i, a := range d.Answers {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("answer %d is empty", i+1)
		}
	}
	return nil
}

// Clone returns a deep copy of d.
func (d *DiagnosisResult) Clone() *DiagnosisResult {
	if d == nil {
		return nil
	}
	out := *d
	out.Questions = append([]string(nil), d.Questions...)
	out.Answers = append([]string(nil), d.Answers...)
	out.Requirements = append([]string(nil), d.Requirements...)
	return &out
}
