package orchestrator

import (
	"errors"

	"bizdiag/internal/pipeline"
	"bizdiag/internal/types"
)

var (
	// ErrStageBusy means a call for the same stage and inputs is in flight.
	ErrStageBusy = errors.New("orchestrator: stage already running")
	// ErrMissingInput means an upstream result required by the stage is absent.
	ErrMissingInput = errors.New("orchestrator: upstream result missing")
	// ErrStale means the inputs changed while the call was in flight and its
	// result was dropped.
	ErrStale = errors.New("orchestrator: result discarded, inputs changed")
)

// Status is the per-stage progress shown next to its retry control.
type Status struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// State is a copy of the working triple.
type State struct {
	Diagnosis *types.DiagnosisResult `json:"diagnosis,omitempty"`
	Redesign  *types.RedesignResult  `json:"redesign,omitempty"`
	Impact    *types.ImpactResult    `json:"impact,omitempty"`
	Saved     bool                   `json:"saved"`
	SavedID   string                 `json:"savedId,omitempty"`

	RedesignStatus Status `json:"redesignStatus"`
	ImpactStatus   Status `json:"impactStatus"`
}

// Complete reports whether every stage has a result.
func (s State) Complete() bool {
	return s.Diagnosis != nil && s.Redesign != nil && s.Impact != nil
}

type transitionKind int

const (
	setDiagnosis transitionKind = iota
	clearDiagnosis
	setRedesign
	setImpact
	markSaved
	reset
)

type transition struct {
	kind      transitionKind
	diagnosis *types.DiagnosisResult
	redesign  *types.RedesignResult
	impact    *types.ImpactResult
	caseID    string
	// generations the result was computed against
	diagGen     uint64
	redesignGen uint64
}

// triple is the mutable record behind a Session. Every change goes through
// apply, which keeps Redesign ⊆ Diagnosis and Impact ⊆ Redesign.
type triple struct {
	diagnosis *types.DiagnosisResult
	redesign  *types.RedesignResult
	impact    *types.ImpactResult
	saved     bool
	savedID   string

	// diagGen changes whenever the diagnosis changes; redesignGen whenever
	// the redesign changes. Stage runs capture them to detect staleness.
	diagGen     uint64
	redesignGen uint64
}

// apply performs t and reports whether it was accepted. A result computed
// against an outdated generation is rejected.
func (p *triple) apply(t transition) error {
	switch t.kind {
	case setDiagnosis:
		p.diagnosis = t.diagnosis
		p.clearFromRedesign()
		p.diagGen++
	case clearDiagnosis, reset:
		p.diagnosis = nil
		p.clearFromRedesign()
		p.diagGen++
	case setRedesign:
		if p.diagnosis == nil {
			return ErrMissingInput
		}
		if t.diagGen != p.diagGen {
			return ErrStale
		}
		p.redesign = t.redesign
		p.impact = nil
		p.redesignGen++
		p.unsave()
	case setImpact:
		if p.diagnosis == nil || p.redesign == nil {
			return ErrMissingInput
		}
		if t.diagGen != p.diagGen || t.redesignGen != p.redesignGen {
			return ErrStale
		}
		p.impact = t.impact
		p.unsave()
	case markSaved:
		if p.diagnosis == nil || p.redesign == nil || p.impact == nil {
			return ErrMissingInput
		}
		if t.diagGen != p.diagGen || t.redesignGen != p.redesignGen {
			return ErrStale
		}
		p.saved = true
		p.savedID = t.caseID
	}
	return nil
}

func (p *triple) clearFromRedesign() {
	p.redesign = nil
	p.impact = nil
	p.redesignGen++
	p.unsave()
}

func (p *triple) unsave() {
	p.saved = false
	p.savedID = ""
}

func statusFor(running bool, err error) Status {
	st := Status{Running: running}
	if err == nil {
		return st
	}
	st.Kind = pipeline.KindOf(err).String()
	var se *pipeline.StageError
	if errors.As(err, &se) {
		st.Error = se.UserMessage()
	} else {
		st.Error = err.Error()
	}
	return st
}
