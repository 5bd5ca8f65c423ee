package diagnosis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"bizdiag/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type fakeAnalyzer struct {
	questions []string
	verdict   types.TranscriptValidation
	// gate, when set, blocks AnalyzeRootCause until closed.
	gate    chan struct{}
	entered chan struct{}
	calls   int
}

func (f *fakeAnalyzer) GenerateQuestions(_ context.Context, symptom string) ([]string, error) {
	f.calls++
	if strings.TrimSpace(symptom) == "" {
		return nil, errors.New("symptom required")
	}
	return f.questions, nil
}

func (f *fakeAnalyzer) AnalyzeRootCause(_ context.Context, _ string, answers []string) (*types.RootCauseAnalysis, error) {
	f.calls++
	if f.entered != nil {
		close(f.entered)
	}
	if f.gate != nil {
		<-f.gate
	}
	for _, a := range answers {
		if strings.TrimSpace(a) == "" {
			return nil, errors.New("answer required")
		}
	}
	return &types.RootCauseAnalysis{RootCause: "rc", Requirements: []string{"a", "b", "c"}}, nil
}

func (f *fakeAnalyzer) ValidateTranscription(context.Context, string) types.TranscriptValidation {
	return f.verdict
}

func ready(t *testing.T, a *fakeAnalyzer, hooks Hooks) *Session {
	t.Helper()
	s := NewSession(a, hooks)
	require.NoError(t, s.EnterSymptom("Ventas bajas"))
	_, err := s.GenerateQuestions(context.Background())
	require.NoError(t, err)
	return s
}

func TestHappyPathLocksAndEmits(t *testing.T) {
	a := &fakeAnalyzer{questions: []string{"q1", "q2"}}
	var locked []*types.DiagnosisResult
	s := NewSession(a, Hooks{Locked: func(d *types.DiagnosisResult) { locked = append(locked, d) }})

	assert.Equal(t, Empty, s.Snapshot().State)
	require.NoError(t, s.EnterSymptom("Ventas bajas"))
	assert.Equal(t, SymptomEntered, s.Snapshot().State)

	qs, err := s.GenerateQuestions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2"}, qs)
	assert.Equal(t, QuestionsGenerated, s.Snapshot().State)

	require.NoError(t, s.SetAnswer(0, "uno"))
	assert.Equal(t, QuestionsGenerated, s.Snapshot().State)
	require.NoError(t, s.SetAnswer(1, "dos"))
	assert.Equal(t, AnswersComplete, s.Snapshot().State)

	res, err := s.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RootCauseAnalyzed, s.Snapshot().State)
	require.Len(t, locked, 1)
	assert.Equal(t, res, locked[0])
	assert.Equal(t, "Ventas bajas", res.Symptom)
	assert.Equal(t, []string{"uno", "dos"}, res.Answers)
	require.NoError(t, res.Validate())

	assert.ErrorIs(t, s.SetAnswer(0, "x"), ErrLocked)
	var se *StateError
	assert.ErrorAs(t, s.EnterSymptom("otro"), &se)
}

func TestEditAnswersUnlocksAndNotifies(t *testing.T) {
	a := &fakeAnalyzer{questions: []string{"q1"}}
	reopened := 0
	s := ready(t, a, Hooks{Reopened: func() { reopened++ }})
	require.NoError(t, s.SetAnswers([]string{"uno"}))
	_, err := s.Analyze(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.EditAnswers())
	snap := s.Snapshot()
	assert.Equal(t, AnswersComplete, snap.State)
	assert.Nil(t, snap.Result)
	assert.Equal(t, []string{"uno"}, snap.Answers)
	assert.Equal(t, 1, reopened)

	require.NoError(t, s.SetAnswer(0, "cambiada"))
}

func TestEditSymptomDiscardsEverything(t *testing.T) {
	a := &fakeAnalyzer{questions: []string{"q1"}}
	reopened := 0
	s := ready(t, a, Hooks{Reopened: func() { reopened++ }})
	require.NoError(t, s.SetAnswers([]string{"uno"}))

	s.EditSymptom()
	snap := s.Snapshot()
	assert.Equal(t, SymptomEntered, snap.State)
	assert.Equal(t, "Ventas bajas", snap.Symptom)
	assert.Empty(t, snap.Questions)
	assert.Empty(t, snap.Answers)
	assert.Equal(t, 1, reopened)
	require.NoError(t, s.EnterSymptom("Ventas muy bajas"))
}

func TestAnalyzeRejectsIncompleteAnswers(t *testing.T) {
	a := &fakeAnalyzer{questions: []string{"q1", "q2"}}
	s := ready(t, a, Hooks{})
	require.NoError(t, s.SetAnswer(0, "uno"))

	_, err := s.Analyze(context.Background())
	require.Error(t, err)
	assert.Equal(t, QuestionsGenerated, s.Snapshot().State)
}

func TestAnalyzeBeforeQuestions(t *testing.T) {
	s := NewSession(&fakeAnalyzer{}, Hooks{})
	_, err := s.Analyze(context.Background())
	var se *StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, Empty, se.State)
}

func TestStaleAnalysisIsDiscarded(t *testing.T) {
	a := &fakeAnalyzer{questions: []string{"q1"}, gate: make(chan struct{}), entered: make(chan struct{})}
	lockedCalls := 0
	s := ready(t, a, Hooks{Locked: func(*types.DiagnosisResult) { lockedCalls++ }})
	require.NoError(t, s.SetAnswers([]string{"uno"}))

	errc := make(chan error, 1)
	go func() {
		_, err := s.Analyze(context.Background())
		errc <- err
	}()
	<-a.entered
	_, err := s.Analyze(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	s.EditSymptom()
	close(a.gate)
	assert.ErrorIs(t, <-errc, ErrSuperseded)
	assert.Equal(t, 0, lockedCalls)
	assert.Equal(t, SymptomEntered, s.Snapshot().State)
	assert.False(t, s.Snapshot().Busy)
}

func TestAnswersFrozenWhileAnalyzing(t *testing.T) {
	a := &fakeAnalyzer{
		questions: []string{"q1", "q2"},
		verdict:   types.TranscriptValidation{IsValid: true},
		gate:      make(chan struct{}),
		entered:   make(chan struct{}),
	}
	var locked []*types.DiagnosisResult
	s := ready(t, a, Hooks{Locked: func(d *types.DiagnosisResult) { locked = append(locked, d) }})
	require.NoError(t, s.SetAnswers([]string{"old1", "old2"}))

	errc := make(chan error, 1)
	go func() {
		_, err := s.Analyze(context.Background())
		errc <- err
	}()
	<-a.entered

	assert.ErrorIs(t, s.SetAnswer(0, "NEW answer"), ErrBusy)
	assert.ErrorIs(t, s.SetAnswers([]string{"x", "y"}), ErrBusy)
	_, err := s.AppendTranscript(context.Background(), 1, "dictado")
	assert.ErrorIs(t, err, ErrBusy)

	close(a.gate)
	require.NoError(t, <-errc)
	snap := s.Snapshot()
	assert.Equal(t, []string{"old1", "old2"}, snap.Answers)
	require.Len(t, locked, 1)
	assert.Equal(t, snap.Answers, locked[0].Answers)
}

func TestReopenWaitsForLockedDelivery(t *testing.T) {
	a := &fakeAnalyzer{questions: []string{"q1"}}
	inHook := make(chan struct{})
	release := make(chan struct{})
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(e string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}
	s := ready(t, a, Hooks{
		Locked: func(*types.DiagnosisResult) {
			close(inHook)
			<-release
			record("locked")
		},
		Reopened: func() { record("reopened") },
	})
	require.NoError(t, s.SetAnswers([]string{"uno"}))

	errc := make(chan error, 1)
	go func() {
		_, err := s.Analyze(context.Background())
		errc <- err
	}()
	<-inHook

	edited := make(chan error, 1)
	go func() { edited <- s.EditAnswers() }()
	close(release)

	require.NoError(t, <-errc)
	require.NoError(t, <-edited)
	mu.Lock()
	assert.Equal(t, []string{"locked", "reopened"}, events)
	mu.Unlock()
	snap := s.Snapshot()
	assert.Equal(t, AnswersComplete, snap.State)
	assert.Nil(t, snap.Result)
}

func TestResetWaitsForLockedDelivery(t *testing.T) {
	a := &fakeAnalyzer{questions: []string{"q1"}}
	inHook := make(chan struct{})
	release := make(chan struct{})
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(e string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}
	s := ready(t, a, Hooks{
		Locked: func(*types.DiagnosisResult) {
			close(inHook)
			<-release
			record("locked")
		},
	})
	require.NoError(t, s.SetAnswers([]string{"uno"}))

	errc := make(chan error, 1)
	go func() {
		_, err := s.Analyze(context.Background())
		errc <- err
	}()
	<-inHook

	done := make(chan struct{})
	go func() {
		s.Reset()
		record("reset")
		close(done)
	}()
	close(release)

	require.NoError(t, <-errc)
	<-done
	mu.Lock()
	assert.Equal(t, []string{"locked", "reset"}, events)
	mu.Unlock()
	assert.Equal(t, Empty, s.Snapshot().State)
}

func TestAppendTranscript(t *testing.T) {
	a := &fakeAnalyzer{questions: []string{"q1"}, verdict: types.TranscriptValidation{IsValid: true, Feedback: "ok"}}
	s := ready(t, a, Hooks{})

	_, err := s.AppendTranscript(context.Background(), 0, "tarda tres días")
	require.NoError(t, err)
	_, err = s.AppendTranscript(context.Background(), 0, " en aprobación ")
	require.NoError(t, err)
	assert.Equal(t, []string{"tarda tres días en aprobación"}, s.Snapshot().Answers)
	assert.Equal(t, AnswersComplete, s.Snapshot().State)

	a.verdict = types.TranscriptValidation{IsValid: false, Feedback: "no fue clara"}
	v, err := s.AppendTranscript(context.Background(), 0, "zzz")
	require.NoError(t, err)
	assert.False(t, v.IsValid)
	assert.Equal(t, []string{"tarda tres días en aprobación"}, s.Snapshot().Answers)
}

func TestSetAnswersLengthMismatch(t *testing.T) {
	s := ready(t, &fakeAnalyzer{questions: []string{"q1", "q2"}}, Hooks{})
	assert.Error(t, s.SetAnswers([]string{"solo una"}))
	assert.Error(t, s.SetAnswer(5, "x"))
}

func TestReset(t *testing.T) {
	s := ready(t, &fakeAnalyzer{questions: []string{"q1"}}, Hooks{})
	s.Reset()
	snap := s.Snapshot()
	assert.Equal(t, Empty, snap.State)
	assert.Empty(t, snap.Symptom)
}
