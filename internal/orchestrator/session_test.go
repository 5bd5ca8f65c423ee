package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"bizdiag/internal/kv"
	"bizdiag/internal/pipeline"
	"bizdiag/internal/repository/cases"
	"bizdiag/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type fakeEngine struct {
	mu            sync.Mutex
	redesignCalls int
	impactCalls   int
	redesignErr   error
	// holdFirst blocks the first redesign call until released.
	holdFirst chan struct{}
	entered   chan struct{}
}

func (f *fakeEngine) GenerateQuestions(context.Context, string) ([]string, error) {
	return []string{"q1", "q2"}, nil
}

func (f *fakeEngine) AnalyzeRootCause(_ context.Context, symptom string, _ []string) (*types.RootCauseAnalysis, error) {
	return &types.RootCauseAnalysis{RootCause: "rc de " + symptom, Requirements: []string{"a", "b", "c"}}, nil
}

func (f *fakeEngine) ValidateTranscription(context.Context, string) types.TranscriptValidation {
	return types.TranscriptValidation{IsValid: true}
}

func (f *fakeEngine) GenerateRedesign(_ context.Context, d *types.DiagnosisResult) (*types.RedesignResult, error) {
	f.mu.Lock()
	f.redesignCalls++
	n := f.redesignCalls
	err := f.redesignErr
	hold := f.holdFirst
	f.mu.Unlock()
	if n == 1 && hold != nil {
		close(f.entered)
		<-hold
	}
	if err != nil {
		return nil, err
	}
	return &types.RedesignResult{
		Review:    fmt.Sprintf("redesign %d for %s", n, d.Symptom),
		Solutions: []types.Solution{{Category: types.CategoryProcess, Description: "p"}},
	}, nil
}

func (f *fakeEngine) CalculateImpact(_ context.Context, _ *types.DiagnosisResult, rd *types.RedesignResult) (*types.ImpactResult, error) {
	f.mu.Lock()
	f.impactCalls++
	f.mu.Unlock()
	return &types.ImpactResult{Tier: types.TierRevenue, Communication: "impact of " + rd.Review}, nil
}

func diag(symptom string) *types.DiagnosisResult {
	return &types.DiagnosisResult{Symptom: symptom, Questions: []string{"q"}, Answers: []string{"a"}, RootCause: "rc", Requirements: []string{"x"}}
}

func newTestSession(t *testing.T, eng *fakeEngine) (*Session, *cases.Repository) {
	t.Helper()
	repo := cases.New(kv.NewMemoryStore(0))
	s := NewSession("test", eng, repo, nil)
	t.Cleanup(s.Close)
	return s, repo
}

func complete(t *testing.T, s *Session) State {
	t.Helper()
	s.SubmitDiagnosis(diag("Envíos lentos"))
	s.Wait()
	st := s.Snapshot()
	require.True(t, st.Complete(), "chain should finish: %+v", st)
	return st
}

func TestSubmitDiagnosisChainsRedesignAndImpact(t *testing.T) {
	eng := &fakeEngine{}
	s, _ := newTestSession(t, eng)

	st := complete(t, s)
	assert.Equal(t, "Envíos lentos", st.Diagnosis.Symptom)
	assert.Equal(t, "redesign 1 for Envíos lentos", st.Redesign.Review)
	assert.Equal(t, "impact of redesign 1 for Envíos lentos", st.Impact.Communication)
	assert.False(t, st.RedesignStatus.Running)
	assert.False(t, st.ImpactStatus.Running)
	assert.False(t, st.Saved)
}

func TestCompletingRedesignClearsImpactAndSaved(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t, &fakeEngine{})
	complete(t, s)
	_, err := s.Save(ctx)
	require.NoError(t, err)
	require.True(t, s.Snapshot().Saved)

	rd, err := s.RunRedesign(ctx)
	require.NoError(t, err)
	st := s.Snapshot()
	assert.Equal(t, rd, st.Redesign)
	assert.Nil(t, st.Impact)
	assert.False(t, st.Saved)
	assert.Empty(t, st.SavedID)

	_, err = s.RunImpact(ctx)
	require.NoError(t, err)
	assert.True(t, s.Snapshot().Complete())
}

func TestEditingDiagnosisClearsDownstream(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t, &fakeEngine{})

	require.NoError(t, s.Wizard.EnterSymptom("Ventas bajas"))
	_, err := s.Wizard.GenerateQuestions(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Wizard.SetAnswers([]string{"uno", "dos"}))
	_, err = s.Wizard.Analyze(ctx)
	require.NoError(t, err)
	s.Wait()
	require.True(t, s.Snapshot().Complete())

	require.NoError(t, s.Wizard.EditAnswers())
	st := s.Snapshot()
	assert.Nil(t, st.Diagnosis)
	assert.Nil(t, st.Redesign)
	assert.Nil(t, st.Impact)

	_, err = s.Wizard.Analyze(ctx)
	require.NoError(t, err)
	s.Wait()
	require.True(t, s.Snapshot().Complete())

	s.Wizard.EditSymptom()
	assert.Equal(t, State{}, s.Snapshot())
}

func TestStaleRedesignIsDiscarded(t *testing.T) {
	eng := &fakeEngine{holdFirst: make(chan struct{}), entered: make(chan struct{})}
	s, _ := newTestSession(t, eng)
	events, cancel := s.Subscribe()
	defer cancel()

	s.SubmitDiagnosis(diag("primero"))
	<-eng.entered
	s.SubmitDiagnosis(diag("segundo"))

	// the second chain is not blocked by the stale in-flight call
	require.Eventually(t, func() bool { return s.Snapshot().Complete() }, waitFor, tick)
	close(eng.holdFirst)
	s.Wait()

	st := s.Snapshot()
	assert.Equal(t, "segundo", st.Diagnosis.Symptom)
	assert.Equal(t, "redesign 2 for segundo", st.Redesign.Review)
	assert.Equal(t, 1, eng.impactCalls, "stale redesign must not trigger impact")

	discarded := false
	for done := false; !done; {
		select {
		case ev := <-events:
			if ev.Kind == StageDiscarded && ev.Stage == pipeline.StageRedesign {
				discarded = true
			}
		default:
			done = true
		}
	}
	assert.True(t, discarded)
}

func TestSecondStartWhileRunningIsBusy(t *testing.T) {
	eng := &fakeEngine{holdFirst: make(chan struct{}), entered: make(chan struct{})}
	s, _ := newTestSession(t, eng)

	s.SubmitDiagnosis(diag("x"))
	<-eng.entered
	assert.ErrorIs(t, s.RegenerateRedesign(), ErrStageBusy)
	assert.True(t, s.Snapshot().RedesignStatus.Running)

	close(eng.holdFirst)
	s.Wait()
	assert.True(t, s.Snapshot().Complete())
	assert.Equal(t, 1, eng.redesignCalls)
}

func TestFailedRegenerateKeepsPriorResults(t *testing.T) {
	eng := &fakeEngine{}
	s, _ := newTestSession(t, eng)
	before := complete(t, s)

	eng.mu.Lock()
	eng.redesignErr = &pipeline.StageError{Stage: pipeline.StageRedesign, Op: pipeline.OpGenerateRedesign, Err: errors.New("boom")}
	eng.mu.Unlock()

	_, err := s.RunRedesign(context.Background())
	require.Error(t, err)
	st := s.Snapshot()
	assert.Equal(t, before.Redesign, st.Redesign)
	assert.Equal(t, before.Impact, st.Impact)
	assert.Contains(t, st.RedesignStatus.Error, "No se pudo generar el plan de rediseño.")
	assert.Equal(t, "remote", st.RedesignStatus.Kind)
}

func TestRecalculateImpactInBackground(t *testing.T) {
	eng := &fakeEngine{}
	s, _ := newTestSession(t, eng)
	complete(t, s)
	require.NoError(t, s.RecalculateImpact())
	s.Wait()
	assert.Equal(t, 2, eng.impactCalls)
	assert.True(t, s.Snapshot().Complete())
}

func TestStagesRequireUpstream(t *testing.T) {
	s, _ := newTestSession(t, &fakeEngine{})
	_, err := s.RunRedesign(context.Background())
	assert.ErrorIs(t, err, ErrMissingInput)
	assert.ErrorIs(t, s.RecalculateImpact(), ErrMissingInput)
	_, err = s.Save(context.Background())
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestSaveTwiceCreatesTwoCases(t *testing.T) {
	ctx := context.Background()
	s, repo := newTestSession(t, &fakeEngine{})
	st := complete(t, s)

	a, err := s.Save(ctx)
	require.NoError(t, err)
	b, err := s.Save(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	list := repo.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, st.Diagnosis.Symptom, list[0].Symptom)
	assert.Equal(t, st.Impact.Tier, list[0].Tier)

	snap := s.Snapshot()
	assert.True(t, snap.Saved)
	assert.Equal(t, b.ID, snap.SavedID)
}

func TestResetClearsEverything(t *testing.T) {
	s, _ := newTestSession(t, &fakeEngine{})
	complete(t, s)
	s.Reset()
	assert.Equal(t, State{}, s.Snapshot())
	assert.Equal(t, "", s.Wizard.Snapshot().Symptom)
}
