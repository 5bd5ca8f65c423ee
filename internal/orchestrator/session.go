// Package orchestrator owns the live Diagnosis/Redesign/Impact triple of an
// analysis session, sequences the stages and hands completed triples to the
// case repository.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"bizdiag/internal/diagnosis"
	"bizdiag/internal/logging"
	"bizdiag/internal/pipeline"
	"bizdiag/internal/types"
)

// Stages are the remote-backed downstream stages.
type Stages interface {
	GenerateRedesign(ctx context.Context, d *types.DiagnosisResult) (*types.RedesignResult, error)
	CalculateImpact(ctx context.Context, d *types.DiagnosisResult, rd *types.RedesignResult) (*types.ImpactResult, error)
}

// Saver persists completed triples.
type Saver interface {
	Save(ctx context.Context, d *types.DiagnosisResult, rd *types.RedesignResult, im *types.ImpactResult) (types.Case, error)
}

// Engine is everything a session needs from the pipeline.
type Engine interface {
	diagnosis.Analyzer
	Stages
}

type Session struct {
	id     string
	stages Stages
	saver  Saver
	log    *zap.Logger
	now    func() time.Time
	events *broker

	// Wizard drives the diagnosis stage; its locked results feed the triple.
	Wizard *diagnosis.Session

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu             sync.Mutex
	t              triple
	redesignRun    *run
	impactRun      *run
	redesignStatus Status
	impactStatus   Status
}

// run marks one in-flight stage call and the generations it started from.
type run struct {
	diagGen     uint64
	redesignGen uint64
}

func NewSession(id string, engine Engine, saver Saver, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     id,
		stages: engine,
		saver:  saver,
		log:    logging.OrNop(log).With(zap.String("session", id)),
		now:    time.Now,
		events: newBroker(),
		ctx:    ctx,
		cancel: cancel,
	}
	s.Wizard = diagnosis.NewSession(engine, diagnosis.Hooks{
		Locked:   func(d *types.DiagnosisResult) { s.SubmitDiagnosis(d) },
		Reopened: s.clearDiagnosis,
	})
	return s
}

func (s *Session) ID() string { return s.id }

// Snapshot returns a deep copy of the triple and stage statuses.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Diagnosis:      s.t.diagnosis.Clone(),
		Redesign:       s.t.redesign.Clone(),
		Impact:         s.t.impact.Clone(),
		Saved:          s.t.saved,
		SavedID:        s.t.savedID,
		RedesignStatus: s.redesignStatus,
		ImpactStatus:   s.impactStatus,
	}
}

// Subscribe streams session events until cancel is called or the session
// closes.
func (s *Session) Subscribe() (<-chan Event, func()) { return s.events.subscribe() }

func (s *Session) emit(kind EventKind, stage pipeline.Stage, err error, caseID string) {
	ev := Event{SessionID: s.id, Kind: kind, Stage: stage, CaseID: caseID, At: s.now()}
	if err != nil {
		ev.Error = statusFor(false, err).Error
	}
	if dropped := s.events.publish(ev); dropped > 0 {
		s.log.Warn("event dropped for slow subscribers", zap.String("kind", string(kind)), zap.Int("subscribers", dropped))
	}
}

// SubmitDiagnosis installs a freshly locked diagnosis, clears everything
// downstream and starts Redesign then Impact in the background.
func (s *Session) SubmitDiagnosis(d *types.DiagnosisResult) {
	s.mu.Lock()
	_ = s.t.apply(transition{kind: setDiagnosis, diagnosis: d.Clone()})
	s.redesignStatus, s.impactStatus = Status{}, Status{}
	r, err := s.beginRedesignLocked()
	s.mu.Unlock()

	s.emit(StageCompleted, pipeline.StageDiagnosis, nil, "")
	if err != nil {
		s.log.Debug("auto redesign not started", zap.Error(err))
		return
	}
	s.spawn(func(ctx context.Context) { s.chain(ctx, r) })
}

func (s *Session) clearDiagnosis() {
	s.mu.Lock()
	_ = s.t.apply(transition{kind: clearDiagnosis})
	s.redesignStatus, s.impactStatus = Status{}, Status{}
	s.mu.Unlock()
	s.emit(StateCleared, pipeline.StageDiagnosis, nil, "")
}

// RegenerateRedesign re-runs Redesign (and then Impact) in the background.
func (s *Session) RegenerateRedesign() error {
	s.mu.Lock()
	r, err := s.beginRedesignLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.spawn(func(ctx context.Context) { s.chain(ctx, r) })
	return nil
}

// RecalculateImpact re-runs Impact in the background.
func (s *Session) RecalculateImpact() error {
	s.mu.Lock()
	r, err := s.beginImpactLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.spawn(func(ctx context.Context) { _, _ = s.finishImpact(ctx, r) })
	return nil
}

// RunRedesign runs Redesign synchronously without chaining Impact.
func (s *Session) RunRedesign(ctx context.Context) (*types.RedesignResult, error) {
	s.mu.Lock()
	r, err := s.beginRedesignLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.finishRedesign(ctx, r)
}

// RunImpact runs Impact synchronously.
func (s *Session) RunImpact(ctx context.Context) (*types.ImpactResult, error) {
	s.mu.Lock()
	r, err := s.beginImpactLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.finishImpact(ctx, r)
}

func (s *Session) chain(ctx context.Context, r *run) {
	if _, err := s.finishRedesign(ctx, r); err != nil {
		return
	}
	s.mu.Lock()
	ir, err := s.beginImpactLocked()
	s.mu.Unlock()
	if err != nil {
		s.log.Debug("auto impact not started", zap.Error(err))
		return
	}
	_, _ = s.finishImpact(ctx, ir)
}

// A run is busy only while it still matches the current inputs; a stale
// in-flight call does not block a fresh one.
func (s *Session) beginRedesignLocked() (*run, error) {
	if s.t.diagnosis == nil {
		return nil, ErrMissingInput
	}
	if s.redesignRun != nil && s.redesignRun.diagGen == s.t.diagGen {
		return nil, ErrStageBusy
	}
	r := &run{diagGen: s.t.diagGen}
	s.redesignRun = r
	s.redesignStatus = Status{Running: true}
	return r, nil
}

func (s *Session) beginImpactLocked() (*run, error) {
	if s.t.diagnosis == nil || s.t.redesign == nil {
		return nil, ErrMissingInput
	}
	if s.impactRun != nil && s.impactRun.diagGen == s.t.diagGen && s.impactRun.redesignGen == s.t.redesignGen {
		return nil, ErrStageBusy
	}
	r := &run{diagGen: s.t.diagGen, redesignGen: s.t.redesignGen}
	s.impactRun = r
	s.impactStatus = Status{Running: true}
	return r, nil
}

func (s *Session) finishRedesign(ctx context.Context, r *run) (*types.RedesignResult, error) {
	s.emit(StageStarted, pipeline.StageRedesign, nil, "")
	s.mu.Lock()
	d := s.t.diagnosis.Clone()
	s.mu.Unlock()

	var (
		rd  *types.RedesignResult
		err error
	)
	if d == nil {
		err = ErrMissingInput
	} else {
		rd, err = s.stages.GenerateRedesign(ctx, d)
	}

	s.mu.Lock()
	if s.redesignRun == r {
		s.redesignRun = nil
	}
	current := r.diagGen == s.t.diagGen
	if err == nil {
		err = s.t.apply(transition{kind: setRedesign, redesign: rd.Clone(), diagGen: r.diagGen})
		if err == nil {
			s.impactStatus = Status{}
		}
	}
	if current {
		s.redesignStatus = statusFor(false, err)
	}
	s.mu.Unlock()

	switch {
	case errors.Is(err, ErrStale) || (err != nil && !current):
		s.log.Debug("stale redesign dropped", zap.Error(err))
		s.emit(StageDiscarded, pipeline.StageRedesign, nil, "")
		return nil, ErrStale
	case err != nil:
		s.log.Warn("redesign failed", zap.Error(err))
		s.emit(StageFailed, pipeline.StageRedesign, err, "")
		return nil, err
	}
	s.emit(StageCompleted, pipeline.StageRedesign, nil, "")
	return rd.Clone(), nil
}

func (s *Session) finishImpact(ctx context.Context, r *run) (*types.ImpactResult, error) {
	s.emit(StageStarted, pipeline.StageImpact, nil, "")
	s.mu.Lock()
	d, rd := s.t.diagnosis.Clone(), s.t.redesign.Clone()
	s.mu.Unlock()

	var (
		im  *types.ImpactResult
		err error
	)
	if d == nil || rd == nil {
		err = ErrMissingInput
	} else {
		im, err = s.stages.CalculateImpact(ctx, d, rd)
	}

	s.mu.Lock()
	if s.impactRun == r {
		s.impactRun = nil
	}
	current := r.diagGen == s.t.diagGen && r.redesignGen == s.t.redesignGen
	if err == nil {
		err = s.t.apply(transition{kind: setImpact, impact: im.Clone(), diagGen: r.diagGen, redesignGen: r.redesignGen})
	}
	if current {
		s.impactStatus = statusFor(false, err)
	}
	s.mu.Unlock()

	switch {
	case errors.Is(err, ErrStale) || (err != nil && !current):
		s.log.Debug("stale impact dropped", zap.Error(err))
		s.emit(StageDiscarded, pipeline.StageImpact, nil, "")
		return nil, ErrStale
	case err != nil:
		s.log.Warn("impact failed", zap.Error(err))
		s.emit(StageFailed, pipeline.StageImpact, err, "")
		return nil, err
	}
	s.emit(StageCompleted, pipeline.StageImpact, nil, "")
	return im.Clone(), nil
}

// Save archives the current triple. It may be called repeatedly; each call
// creates a new case.
func (s *Session) Save(ctx context.Context) (types.Case, error) {
	s.mu.Lock()
	d, rd, im := s.t.diagnosis.Clone(), s.t.redesign.Clone(), s.t.impact.Clone()
	diagGen, redesignGen := s.t.diagGen, s.t.redesignGen
	s.mu.Unlock()
	if d == nil || rd == nil || im == nil {
		return types.Case{}, ErrMissingInput
	}
	c, err := s.saver.Save(ctx, d, rd, im)
	if err != nil {
		return types.Case{}, err
	}
	s.mu.Lock()
	if aerr := s.t.apply(transition{kind: markSaved, caseID: c.ID, diagGen: diagGen, redesignGen: redesignGen}); aerr != nil {
		s.log.Debug("saved triple changed before it was marked", zap.Error(aerr))
	}
	s.mu.Unlock()
	s.emit(CaseSaved, "", nil, c.ID)
	return c, nil
}

// Reset clears the triple and the diagnosis wizard. In-flight results are
// dropped when they arrive.
func (s *Session) Reset() {
	s.Wizard.Reset()
	s.mu.Lock()
	_ = s.t.apply(transition{kind: reset})
	s.redesignStatus, s.impactStatus = Status{}, Status{}
	s.mu.Unlock()
	s.emit(StateCleared, "", nil, "")
}

func (s *Session) spawn(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

// Wait blocks until background stage runs finish.
func (s *Session) Wait() { s.wg.Wait() }

// Close cancels background runs, waits for them and closes subscriptions.
func (s *Session) Close() {
	s.cancel()
	s.wg.Wait()
	s.events.close()
}
