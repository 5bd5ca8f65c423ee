package rpc

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"bizdiag/internal/repository/cases"
	"bizdiag/internal/types"
)

const CaseServiceName = "bizdiag.v1.CaseService"

// CaseHandler browses the case repository and its search history.
type CaseHandler struct {
	repo     *cases.Repository
	history  *cases.History
	recorder *cases.Recorder
}

// NewCaseHandler records filters through recorder when one is given and
// straight into history otherwise.
func NewCaseHandler(repo *cases.Repository, history *cases.History, recorder *cases.Recorder) *CaseHandler {
	return &CaseHandler{repo: repo, history: history, recorder: recorder}
}

func NewCaseServiceHandler(h *CaseHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	p := func(m string) string { return procedure(CaseServiceName, m) }
	return serviceHandler(CaseServiceName, map[string]http.Handler{
		p("ListCases"):          unary(p("ListCases"), h.ListCases, opts),
		p("GetCase"):            unary(p("GetCase"), h.GetCase, opts),
		p("DeleteCase"):         unary(p("DeleteCase"), h.DeleteCase, opts),
		p("ListSearchHistory"):  unary(p("ListSearchHistory"), h.ListSearchHistory, opts),
		p("RecordSearch"):       unary(p("RecordSearch"), h.RecordSearch, opts),
		p("ClearSearchHistory"): unary(p("ClearSearchHistory"), h.ClearSearchHistory, opts),
	})
}

func filterOf(req *ListCasesRequest) (cases.Filter, error) {
	if req.Tier != nil && !req.Tier.Valid() {
		return cases.Filter{}, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("tier %d out of range", *req.Tier))
	}
	if req.Category != nil && !req.Category.Valid() {
		return cases.Filter{}, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("unknown category %q", *req.Category))
	}
	return cases.Filter{Text: req.Query, Tier: req.Tier, Category: req.Category}, nil
}

func sortOf(req *ListCasesRequest) (cases.Sort, error) {
	switch strings.ToLower(strings.TrimSpace(req.SortBy)) {
	case "", "id", "date":
		return cases.Sort{Key: cases.SortByID, Desc: !req.Ascending}, nil
	case "tier":
		return cases.TierSort, nil
	}
	return cases.Sort{}, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("unknown sort %q", req.SortBy))
}

func (h *CaseHandler) ListCases(ctx context.Context, req *ListCasesRequest) (*ListCasesResponse, error) {
	f, err := filterOf(req)
	if err != nil {
		return nil, err
	}
	s, err := sortOf(req)
	if err != nil {
		return nil, err
	}
	page := cases.Paginate(cases.Query(h.repo.List(ctx), f, s), req.Page, req.PerPage)
	if req.Record {
		if h.recorder != nil {
			h.recorder.Observe(f)
		} else {
			h.history.Record(ctx, f.HistoryItem())
		}
	}
	return &ListCasesResponse{
		Cases:      nonNil(page.Items),
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: page.TotalPages,
		Total:      page.Total,
	}, nil
}

func (h *CaseHandler) GetCase(ctx context.Context, req *CaseRequest) (*CaseResponse, error) {
	if err := required("id", req.ID); err != nil {
		return nil, err
	}
	c, ok := h.repo.Get(ctx, strings.TrimSpace(req.ID))
	if !ok {
		return nil, cases.ErrNotFound
	}
	return &CaseResponse{Case: c}, nil
}

func (h *CaseHandler) DeleteCase(ctx context.Context, req *CaseRequest) (*Empty, error) {
	if err := required("id", req.ID); err != nil {
		return nil, err
	}
	if err := h.repo.Delete(ctx, strings.TrimSpace(req.ID)); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (h *CaseHandler) ListSearchHistory(ctx context.Context, _ *Empty) (*HistoryResponse, error) {
	return &HistoryResponse{Items: nonNil(h.history.List(ctx))}, nil
}

// RecordSearch stores a combination immediately, bypassing the settle delay.
func (h *CaseHandler) RecordSearch(ctx context.Context, req *types.SearchHistoryItem) (*HistoryResponse, error) {
	return &HistoryResponse{Items: nonNil(h.history.Record(ctx, *req))}, nil
}

func (h *CaseHandler) ClearSearchHistory(ctx context.Context, _ *Empty) (*Empty, error) {
	if h.recorder != nil {
		h.recorder.Stop()
	}
	h.history.Clear(ctx)
	return &Empty{}, nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
