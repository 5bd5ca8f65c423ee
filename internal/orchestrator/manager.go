package orchestrator

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bizdiag/internal/logging"
)

var ErrSessionNotFound = errors.New("orchestrator: session not found")

// Manager keeps the live sessions of a process keyed by id.
type Manager struct {
	engine Engine
	saver  Saver
	log    *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(engine Engine, saver Saver, log *zap.Logger) *Manager {
	return &Manager{
		engine:   engine,
		saver:    saver,
		log:      logging.OrNop(log),
		sessions: make(map[string]*Session),
	}
}

// Create starts a new empty session.
func (m *Manager) Create() *Session {
	id := uuid.NewString()
	s := NewSession(id, m.engine, m.saver, m.log)
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	m.log.Info("session created", zap.String("session", id))
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if m == nil || id == "" {
		return nil, ErrSessionNotFound
	}
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id string) error {
	id = strings.TrimSpace(id)
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

// IDs lists live session ids in lexical order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}
