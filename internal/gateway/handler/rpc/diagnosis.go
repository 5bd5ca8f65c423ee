package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"go.uber.org/zap"

	"bizdiag/internal/export"
	"bizdiag/internal/logging"
	"bizdiag/internal/orchestrator"
)

const DiagnosisServiceName = "bizdiag.v1.DiagnosisService"

// DiagnosisHandler drives analysis sessions.
type DiagnosisHandler struct {
	sessions *orchestrator.Manager
	sink     export.Sink
	log      *zap.Logger
}

// NewDiagnosisHandler serves sessions from m. A nil sink returns exports
// inline.
func NewDiagnosisHandler(m *orchestrator.Manager, sink export.Sink, log *zap.Logger) *DiagnosisHandler {
	return &DiagnosisHandler{sessions: m, sink: sink, log: logging.OrNop(log)}
}

func NewDiagnosisServiceHandler(h *DiagnosisHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	p := func(m string) string { return procedure(DiagnosisServiceName, m) }
	return serviceHandler(DiagnosisServiceName, map[string]http.Handler{
		p("CreateSession"):      unary(p("CreateSession"), h.CreateSession, opts),
		p("GetSession"):         unary(p("GetSession"), h.GetSession, opts),
		p("DeleteSession"):      unary(p("DeleteSession"), h.DeleteSession, opts),
		p("EnterSymptom"):       unary(p("EnterSymptom"), h.EnterSymptom, opts),
		p("GenerateQuestions"):  unary(p("GenerateQuestions"), h.GenerateQuestions, opts),
		p("SetAnswer"):          unary(p("SetAnswer"), h.SetAnswer, opts),
		p("SetAnswers"):         unary(p("SetAnswers"), h.SetAnswers, opts),
		p("AppendTranscript"):   unary(p("AppendTranscript"), h.AppendTranscript, opts),
		p("AnalyzeRootCause"):   unary(p("AnalyzeRootCause"), h.AnalyzeRootCause, opts),
		p("EditDiagnosis"):      unary(p("EditDiagnosis"), h.EditDiagnosis, opts),
		p("RegenerateRedesign"): unary(p("RegenerateRedesign"), h.RegenerateRedesign, opts),
		p("RecalculateImpact"):  unary(p("RecalculateImpact"), h.RecalculateImpact, opts),
		p("SaveCase"):           unary(p("SaveCase"), h.SaveCase, opts),
		p("ResetSession"):       unary(p("ResetSession"), h.ResetSession, opts),
		p("ExportSession"):      unary(p("ExportSession"), h.ExportSession, opts),
	})
}

func (h *DiagnosisHandler) session(id string) (*orchestrator.Session, error) {
	if err := required("session_id", id); err != nil {
		return nil, err
	}
	return h.sessions.Get(id)
}

func viewOf(s *orchestrator.Session) *SessionView {
	v := toSessionView(s)
	return &v
}

func (h *DiagnosisHandler) CreateSession(_ context.Context, _ *Empty) (*SessionView, error) {
	return viewOf(h.sessions.Create()), nil
}

func (h *DiagnosisHandler) GetSession(_ context.Context, req *SessionRequest) (*SessionView, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	return viewOf(s), nil
}

func (h *DiagnosisHandler) DeleteSession(_ context.Context, req *SessionRequest) (*Empty, error) {
	if err := required("session_id", req.SessionID); err != nil {
		return nil, err
	}
	if err := h.sessions.Delete(req.SessionID); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (h *DiagnosisHandler) EnterSymptom(_ context.Context, req *EnterSymptomRequest) (*SessionView, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.Wizard.EnterSymptom(req.Symptom); err != nil {
		return nil, err
	}
	return viewOf(s), nil
}

func (h *DiagnosisHandler) GenerateQuestions(ctx context.Context, req *SessionRequest) (*SessionView, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Wizard.GenerateQuestions(ctx); err != nil {
		return nil, err
	}
	return viewOf(s), nil
}

func (h *DiagnosisHandler) SetAnswer(_ context.Context, req *SetAnswerRequest) (*SessionView, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.Wizard.SetAnswer(req.Index, req.Text); err != nil {
		return nil, err
	}
	return viewOf(s), nil
}

func (h *DiagnosisHandler) SetAnswers(_ context.Context, req *SetAnswersRequest) (*SessionView, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.Wizard.SetAnswers(req.Answers); err != nil {
		return nil, err
	}
	return viewOf(s), nil
}

func (h *DiagnosisHandler) AppendTranscript(ctx context.Context, req *AppendTranscriptRequest) (*AppendTranscriptResponse, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	verdict, err := s.Wizard.AppendTranscript(ctx, req.Index, req.Transcript)
	if err != nil {
		return nil, err
	}
	return &AppendTranscriptResponse{Validation: verdict, Session: toSessionView(s)}, nil
}

// AnalyzeRootCause locks the diagnosis; Redesign and Impact follow in the
// background and are reported on the event stream.
func (h *DiagnosisHandler) AnalyzeRootCause(ctx context.Context, req *SessionRequest) (*SessionView, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Wizard.Analyze(ctx); err != nil {
		return nil, err
	}
	return viewOf(s), nil
}

func (h *DiagnosisHandler) EditDiagnosis(_ context.Context, req *EditDiagnosisRequest) (*SessionView, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(strings.TrimSpace(req.Scope), "symptom") {
		s.Wizard.EditSymptom()
	} else if err := s.Wizard.EditAnswers(); err != nil {
		return nil, err
	}
	return viewOf(s), nil
}

func (h *DiagnosisHandler) RegenerateRedesign(_ context.Context, req *SessionRequest) (*SessionView, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.RegenerateRedesign(); err != nil {
		return nil, err
	}
	return viewOf(s), nil
}

func (h *DiagnosisHandler) RecalculateImpact(_ context.Context, req *SessionRequest) (*SessionView, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.RecalculateImpact(); err != nil {
		return nil, err
	}
	return viewOf(s), nil
}

func (h *DiagnosisHandler) SaveCase(ctx context.Context, req *SessionRequest) (*SaveCaseResponse, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	c, err := s.Save(ctx)
	if err != nil {
		return nil, err
	}
	h.log.Info("case saved", zap.String("session", s.ID()), zap.String("case", c.ID))
	return &SaveCaseResponse{Case: c, Session: toSessionView(s)}, nil
}

func (h *DiagnosisHandler) ResetSession(_ context.Context, req *SessionRequest) (*SessionView, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	s.Reset()
	return viewOf(s), nil
}

func (h *DiagnosisHandler) ExportSession(ctx context.Context, req *ExportRequest) (*ExportResponse, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = "json"
	}
	exp, ok := export.ForFormat(format)
	if !ok {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("unsupported export format %q", req.Format))
	}
	st := s.Snapshot()
	a, err := exp.Export(ctx, export.Report{Diagnosis: st.Diagnosis, Redesign: st.Redesign, Impact: st.Impact})
	if err != nil {
		return nil, err
	}
	out := &ExportResponse{Name: a.Name, ContentType: a.ContentType}
	if h.sink == nil {
		out.Content = string(a.Body)
		return out, nil
	}
	loc, err := h.sink.Put(ctx, s.ID(), a)
	if err != nil {
		h.log.Error("export upload", zap.String("session", s.ID()), zap.Error(err))
		return nil, connect.NewError(connect.CodeUnavailable, errors.New("export storage unavailable"))
	}
	out.Location = loc
	return out, nil
}
