package rpc

import (
	"bizdiag/internal/diagnosis"
	"bizdiag/internal/orchestrator"
	"bizdiag/internal/types"
)

type Empty struct{}

type SessionRequest struct {
	SessionID string `json:"sessionId"`
}

type EnterSymptomRequest struct {
	SessionID string `json:"sessionId"`
	Symptom   string `json:"symptom"`
}

type SetAnswerRequest struct {
	SessionID string `json:"sessionId"`
	Index     int    `json:"index"`
	Text      string `json:"text"`
}

type SetAnswersRequest struct {
	SessionID string   `json:"sessionId"`
	Answers   []string `json:"answers"`
}

type AppendTranscriptRequest struct {
	SessionID  string `json:"sessionId"`
	Index      int    `json:"index"`
	Transcript string `json:"transcript"`
}

type AppendTranscriptResponse struct {
	Validation types.TranscriptValidation `json:"validation"`
	Session    SessionView                `json:"session"`
}

// EditDiagnosisRequest reopens the diagnosis. Scope "symptom" discards the
// questions too; anything else keeps them.
type EditDiagnosisRequest struct {
	SessionID string `json:"sessionId"`
	Scope     string `json:"scope"`
}

type SaveCaseResponse struct {
	Case    types.Case  `json:"case"`
	Session SessionView `json:"session"`
}

type ExportRequest struct {
	SessionID string `json:"sessionId"`
	Format    string `json:"format"`
}

// ExportResponse carries the content inline when no sink is configured.
type ExportResponse struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Location    string `json:"location,omitempty"`
	Content     string `json:"content,omitempty"`
}

type WizardView struct {
	State     string   `json:"state"`
	Symptom   string   `json:"symptom"`
	Questions []string `json:"questions"`
	Answers   []string `json:"answers"`
	Busy      bool     `json:"busy"`
}

type SessionView struct {
	ID     string     `json:"id"`
	Wizard WizardView `json:"wizard"`
	orchestrator.State
}

func toWizardView(s diagnosis.Snapshot) WizardView {
	return WizardView{
		State:     s.State.String(),
		Symptom:   s.Symptom,
		Questions: s.Questions,
		Answers:   s.Answers,
		Busy:      s.Busy,
	}
}

func toSessionView(s *orchestrator.Session) SessionView {
	return SessionView{ID: s.ID(), Wizard: toWizardView(s.Wizard.Snapshot()), State: s.Snapshot()}
}

type ListCasesRequest struct {
	Query    string                  `json:"query"`
	Tier     *types.Tier             `json:"tier"`
	Category *types.SolutionCategory `json:"category"`
	// SortBy is "id" (default, newest first unless Ascending) or "tier".
	SortBy    string `json:"sortBy"`
	Ascending bool   `json:"ascending"`
	Page      int    `json:"page"`
	PerPage   int    `json:"perPage"`
	// Record remembers the filter in the search history once it settles.
	Record bool `json:"record"`
}

type ListCasesResponse struct {
	Cases      []types.Case `json:"cases"`
	Page       int          `json:"page"`
	PerPage    int          `json:"perPage"`
	TotalPages int          `json:"totalPages"`
	Total      int          `json:"total"`
}

type CaseRequest struct {
	ID string `json:"id"`
}

type CaseResponse struct {
	Case types.Case `json:"case"`
}

type HistoryResponse struct {
	Items []types.SearchHistoryItem `json:"items"`
}

type TodoRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type TodoResponse struct {
	Todo types.Todo `json:"todo"`
}

type TodosResponse struct {
	Todos []types.Todo `json:"todos"`
}
