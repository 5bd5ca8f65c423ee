// Package cases is the durable collection of completed analyses plus the
// read-side helpers used to browse it: filtering, sorting, pagination,
// windowed rendering and recent-search history.
package cases

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"bizdiag/internal/kv"
	"bizdiag/internal/logging"
	"bizdiag/internal/types"
)

// CasesKey holds the JSON array of cases, most recent first.
const CasesKey = "repositoryCases"

// IDLayout is RFC 3339 with fixed nanosecond width so ids sort
// lexicographically in creation order.
const IDLayout = "2006-01-02T15:04:05.000000000Z"

// TimestampLayout is the day-first display timestamp.
const TimestampLayout = "02/01/2006, 15:04:05"

var (
	// ErrIncomplete rejects a save while any stage result is missing.
	ErrIncomplete = errors.New("cases: diagnosis, redesign and impact are all required")
	ErrNotFound   = errors.New("cases: not found")
)

type Repository struct {
	store kv.Store
	log   *zap.Logger
	now   func() time.Time
	loc   *time.Location

	mu     sync.Mutex
	loaded bool
	cases  []types.Case
	lastID time.Time
}

type Option func(*Repository)

func WithLogger(l *zap.Logger) Option { return func(r *Repository) { r.log = logging.OrNop(l) } }

// WithClock replaces time.Now for id and timestamp generation.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLocation sets the zone used for display timestamps.
func WithLocation(loc *time.Location) Option {
	return func(r *Repository) {
		if loc != nil {
			r.loc = loc
		}
	}
}

func New(store kv.Store, opts ...Option) *Repository {
	r := &Repository{store: store, log: zap.NewNop(), now: time.Now, loc: time.Local}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ensureLoaded reads persisted cases once. Unreadable storage yields an
// empty collection.
func (r *Repository) ensureLoaded(ctx context.Context) {
	if r.loaded {
		return
	}
	r.loaded = true
	if r.store == nil {
		return
	}
	raw, ok, err := r.store.Get(ctx, CasesKey)
	if err != nil {
		r.log.Error("load cases", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	var list []types.Case
	if err := json.Unmarshal(raw, &list); err != nil {
		r.log.Error("decode cases", zap.Error(err))
		return
	}
	r.cases = list
	for _, c := range list {
		if t, err := time.Parse(IDLayout, c.ID); err == nil && t.After(r.lastID) {
			r.lastID = t
		}
	}
}

func (r *Repository) persist(ctx context.Context) {
	if r.store == nil {
		return
	}
	raw, err := json.Marshal(r.cases)
	if err != nil {
		r.log.Error("encode cases", zap.Error(err))
		return
	}
	if err := r.store.Set(ctx, CasesKey, raw); err != nil {
		r.log.Error("persist cases", zap.Error(err), zap.Int("count", len(r.cases)))
	}
}

// List returns every case, most recent first.
func (r *Repository) List(ctx context.Context) []types.Case {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded(ctx)
	return cloneCases(r.cases)
}

func (r *Repository) Get(ctx context.Context, id string) (types.Case, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded(ctx)
	for _, c := range r.cases {
		if c.ID == id {
			return cloneCase(c), true
		}
	}
	return types.Case{}, false
}

// Save freezes a completed triple into a new case and prepends it. Saving
// the same triple twice creates two cases.
func (r *Repository) Save(ctx context.Context, d *types.DiagnosisResult, rd *types.RedesignResult, im *types.ImpactResult) (types.Case, error) {
	if d == nil || rd == nil || im == nil {
		return types.Case{}, ErrIncomplete
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded(ctx)

	now := r.now()
	idTime := now.UTC()
	if !idTime.After(r.lastID) {
		idTime = r.lastID.Add(time.Nanosecond)
	}
	r.lastID = idTime

	c := types.Case{
		ID:        idTime.Format(IDLayout),
		Timestamp: now.In(r.loc).Format(TimestampLayout),
		Symptom:   d.Symptom,
		RootCause: d.RootCause,
		Solutions: append([]types.Solution(nil), rd.Solutions...),
		Tier:      im.Tier,
		ROI:       im.ROI,
	}
	r.cases = append([]types.Case{c}, r.cases...)
	r.persist(ctx)
	r.log.Info("case saved", zap.String("id", c.ID), zap.Int("total", len(r.cases)))
	return cloneCase(c), nil
}

// Delete removes a case by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded(ctx)
	for i, c := range r.cases {
		if c.ID == id {
			r.cases = append(r.cases[:i:i], r.cases[i+1:]...)
			r.persist(ctx)
			return nil
		}
	}
	return ErrNotFound
}

func cloneCase(c types.Case) types.Case {
	c.Solutions = append([]types.Solution(nil), c.Solutions...)
	return c
}

func cloneCases(in []types.Case) []types.Case {
	out := make([]types.Case, len(in))
	for i, c := range in {
		out[i] = cloneCase(c)
	}
	return out
}
