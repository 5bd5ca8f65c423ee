package orchestrator

import (
	"sync"
	"time"

	"bizdiag/internal/pipeline"
)

type EventKind string

const (
	StageStarted   EventKind = "stage_started"
	StageCompleted EventKind = "stage_completed"
	StageFailed    EventKind = "stage_failed"
	StageDiscarded EventKind = "stage_discarded"
	StateCleared   EventKind = "state_cleared"
	CaseSaved      EventKind = "case_saved"
)

type Event struct {
	SessionID string         `json:"sessionId"`
	Kind      EventKind      `json:"kind"`
	Stage     pipeline.Stage `json:"stage,omitempty"`
	Error     string         `json:"error,omitempty"`
	CaseID    string         `json:"caseId,omitempty"`
	At        time.Time      `json:"at"`
}

const subscriberBuffer = 32

// broker fans events out to subscribers. Slow subscribers lose events
// rather than stalling a stage.
type broker struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan Event
	closed bool
}

func newBroker() *broker { return &broker{subs: make(map[int]chan Event)} }

func (b *broker) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// publish reports how many subscribers missed ev.
func (b *broker) publish(ev Event) (dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}
	return dropped
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
