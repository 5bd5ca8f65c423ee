// Package diagnosis is the symptom → questions → answers → root cause state
// machine that produces a locked DiagnosisResult.
package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"bizdiag/internal/types"
)

type State int

const (
	Empty State = iota
	SymptomEntered
	QuestionsGenerated
	AnswersComplete
	RootCauseAnalyzed
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case SymptomEntered:
		return "symptom_entered"
	case QuestionsGenerated:
		return "questions_generated"
	case AnswersComplete:
		return "answers_complete"
	case RootCauseAnalyzed:
		return "root_cause_analyzed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrBusy means a remote call for this session is still in flight.
	ErrBusy = errors.New("diagnosis: a request is already in progress")
	// ErrSuperseded means the session changed while a call was in flight and
	// its result was dropped.
	ErrSuperseded = errors.New("diagnosis: result discarded, inputs changed")
	// ErrLocked means the diagnosis must be reopened before editing.
	ErrLocked = errors.New("diagnosis: locked, reopen it to edit")
	// ErrInvalidAnswer covers answer indexes and counts that do not match
	// the questions.
	ErrInvalidAnswer = errors.New("diagnosis: invalid answer")
)

// StateError reports an action attempted from the wrong state.
type StateError struct {
	Action string
	State  State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("diagnosis: cannot %s in state %s", e.Action, e.State)
}

// Analyzer is the remote side of the diagnosis stage.
type Analyzer interface {
	GenerateQuestions(ctx context.Context, symptom string) ([]string, error)
	AnalyzeRootCause(ctx context.Context, symptom string, answers []string) (*types.RootCauseAnalysis, error)
	ValidateTranscription(ctx context.Context, transcript string) types.TranscriptValidation
}

// Hooks connect the session to whoever owns the downstream stages.
type Hooks struct {
	// Locked receives every freshly analyzed diagnosis.
	Locked func(*types.DiagnosisResult)
	// Reopened fires when a locked or in-progress diagnosis is edited, so
	// downstream results must be cleared.
	Reopened func()
}

// Snapshot is a copy of the session's visible state.
type Snapshot struct {
	State     State
	Symptom   string
	Questions []string
	Answers   []string
	Result    *types.DiagnosisResult
	Busy      bool
}

type Session struct {
	mu sync.Mutex
	// deliver orders hook calls. It is never taken while mu is held.
	deliver   sync.Mutex
	analyzer  Analyzer
	hooks     Hooks
	state     State
	symptom   string
	questions []string
	answers   []string
	result    *types.DiagnosisResult
	epoch     uint64
	busy      bool
}

func NewSession(a Analyzer, hooks Hooks) *Session {
	return &Session{analyzer: a, hooks: hooks}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:     s.state,
		Symptom:   s.symptom,
		Questions: append([]string(nil), s.questions...),
		Answers:   append([]string(nil), s.answers...),
		Result:    s.result.Clone(),
		Busy:      s.busy,
	}
}

// EnterSymptom sets the symptom text. Only allowed before questions exist.
func (s *Session) EnterSymptom(symptom string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state > SymptomEntered {
		return &StateError{Action: "enter symptom", State: s.state}
	}
	if s.busy {
		return ErrBusy
	}
	s.symptom = symptom
	if strings.TrimSpace(symptom) == "" {
		s.state = Empty
	} else {
		s.state = SymptomEntered
	}
	return nil
}

// GenerateQuestions asks for clarifying questions about the current symptom.
func (s *Session) GenerateQuestions(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	if s.state != SymptomEntered && s.state != Empty {
		st := s.state
		s.mu.Unlock()
		return nil, &StateError{Action: "generate questions", State: st}
	}
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.busy = true
	epoch := s.epoch
	symptom := s.symptom
	s.mu.Unlock()

	qs, err := s.analyzer.GenerateQuestions(ctx, symptom)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if err != nil {
		return nil, err
	}
	if epoch != s.epoch {
		return nil, ErrSuperseded
	}
	s.questions = append([]string(nil), qs...)
	s.answers = make([]string, len(qs))
	s.state = QuestionsGenerated
	return append([]string(nil), qs...), nil
}

// SetAnswer replaces answer i.
func (s *Session) SetAnswer(i int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setAnswerLocked(i, text)
}

// SetAnswers replaces every answer at once; len must match the questions.
func (s *Session) SetAnswers(answers []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == RootCauseAnalyzed {
		return ErrLocked
	}
	if s.state < QuestionsGenerated {
		return &StateError{Action: "answer", State: s.state}
	}
	if s.busy {
		return ErrBusy
	}
	if len(answers) != len(s.questions) {
		return fmt.Errorf("%w: got %d answers for %d questions", ErrInvalidAnswer, len(answers), len(s.questions))
	}
	copy(s.answers, answers)
	s.refreshAnswerState()
	return nil
}

// AppendTranscript validates dictated text and, when accepted, appends it to
// answer i separated by a single space.
func (s *Session) AppendTranscript(ctx context.Context, i int, transcript string) (types.TranscriptValidation, error) {
	verdict := s.analyzer.ValidateTranscription(ctx, transcript)
	if !verdict.IsValid {
		return verdict, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.answers) {
		return verdict, fmt.Errorf("%w: index %d out of range", ErrInvalidAnswer, i)
	}
	cur := strings.TrimSpace(s.answers[i])
	add := strings.TrimSpace(transcript)
	if cur != "" {
		add = cur + " " + add
	}
	return verdict, s.setAnswerLocked(i, add)
}

func (s *Session) setAnswerLocked(i int, text string) error {
	if s.state == RootCauseAnalyzed {
		return ErrLocked
	}
	if s.state < QuestionsGenerated {
		return &StateError{Action: "answer", State: s.state}
	}
	if s.busy {
		return ErrBusy
	}
	if i < 0 || i >= len(s.answers) {
		return fmt.Errorf("%w: index %d out of range", ErrInvalidAnswer, i)
	}
	s.answers[i] = text
	s.refreshAnswerState()
	return nil
}

func (s *Session) refreshAnswerState() {
	s.state = AnswersComplete
	for _, a := range s.answers {
		if strings.TrimSpace(a) == "" {
			s.state = QuestionsGenerated
			return
		}
	}
}

// Analyze requests the root cause, locks the session and hands the result
// to Hooks.Locked. Answers cannot change while the call is in flight; a
// reopen that lands before delivery drops the result with ErrSuperseded.
func (s *Session) Analyze(ctx context.Context) (*types.DiagnosisResult, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if s.state == RootCauseAnalyzed {
		s.mu.Unlock()
		return nil, ErrLocked
	}
	if s.state < QuestionsGenerated {
		st := s.state
		s.mu.Unlock()
		return nil, &StateError{Action: "analyze", State: st}
	}
	s.busy = true
	epoch := s.epoch
	symptom := s.symptom
	questions := append([]string(nil), s.questions...)
	answers := append([]string(nil), s.answers...)
	s.mu.Unlock()

	// Incomplete answers are rejected by the analyzer before any remote call.
	rc, err := s.analyzer.AnalyzeRootCause(ctx, symptom, answers)

	s.mu.Lock()
	s.busy = false
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if epoch != s.epoch {
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	res := &types.DiagnosisResult{
		Symptom:      strings.TrimSpace(symptom),
		Questions:    questions,
		Answers:      answers,
		RootCause:    rc.RootCause,
		Requirements: append([]string(nil), rc.Requirements...),
	}
	s.result = res
	s.state = RootCauseAnalyzed
	locked := s.hooks.Locked
	s.mu.Unlock()

	s.deliver.Lock()
	defer s.deliver.Unlock()
	if !s.current(epoch) {
		return nil, ErrSuperseded
	}
	if locked != nil {
		locked(res.Clone())
	}
	return res.Clone(), nil
}

func (s *Session) current(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch == epoch
}

// EditAnswers unlocks the diagnosis keeping questions and answers.
func (s *Session) EditAnswers() error {
	s.mu.Lock()
	if s.state < QuestionsGenerated {
		st := s.state
		s.mu.Unlock()
		return &StateError{Action: "edit answers", State: st}
	}
	s.epoch++
	s.result = nil
	s.refreshAnswerState()
	reopened := s.hooks.Reopened
	s.mu.Unlock()

	s.notifyReopened(reopened)
	return nil
}

// notifyReopened waits for any Locked delivery in progress, so downstream
// always sees the reopen after the lock it invalidates.
func (s *Session) notifyReopened(reopened func()) {
	if reopened == nil {
		return
	}
	s.deliver.Lock()
	defer s.deliver.Unlock()
	reopened()
}

// EditSymptom discards questions, answers and analysis and re-enables
// symptom input. The symptom text is kept for editing.
func (s *Session) EditSymptom() {
	s.mu.Lock()
	s.epoch++
	s.questions = nil
	s.answers = nil
	s.result = nil
	if strings.TrimSpace(s.symptom) == "" {
		s.state = Empty
	} else {
		s.state = SymptomEntered
	}
	reopened := s.hooks.Reopened
	s.mu.Unlock()

	s.notifyReopened(reopened)
}

// Reset returns to Empty without notifying hooks. It waits for a Locked
// delivery in progress, so none arrives after it returns.
func (s *Session) Reset() {
	s.deliver.Lock()
	defer s.deliver.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.state = Empty
	s.symptom = ""
	s.questions = nil
	s.answers = nil
	s.result = nil
}
