package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/reptrack/internal/metrics"
	"github.com/ayusman/reptrack/internal/repcount"
)

// DefaultRetention is how long a stopped session stays reachable by ID.
const DefaultRetention = 10 * time.Minute

// StopHook receives the summary of every stopped session.
type StopHook func(Summary)

// FrameHook receives every snapshot produced by any session. Hooks run on
// the feeding goroutine after the session lock is released and must not
// block.
type FrameHook func(s *Session, snap repcount.Snapshot)

// Manager creates and tracks sessions.
type Manager struct {
	catalog   *repcount.Catalog
	metrics   *metrics.Manager
	now       func() time.Time
	retention time.Duration
	mu        sync.RWMutex
	sessions  map[string]*Session
	onStop    []StopHook
	onFrame   []FrameHook
}

// NewManager creates a manager resolving exercises from catalog. metrics may
// be nil.
func NewManager(catalog *repcount.Catalog, m *metrics.Manager) *Manager {
	return &Manager{
		catalog:   catalog,
		metrics:   m,
		now:       time.Now,
		retention: DefaultRetention,
		sessions:  make(map[string]*Session),
	}
}

// OnStop registers a hook called after a session stops.
func (m *Manager) OnStop(hook StopHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStop = append(m.onStop, hook)
}

// OnFrame registers a hook called after every frame.
func (m *Manager) OnFrame(hook FrameHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFrame = append(m.onFrame, hook)
}

// SetRetention sets how long stopped sessions stay reachable. Zero drops
// them as soon as their stop hooks have run.
func (m *Manager) SetRetention(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.retention = d
}

// Catalog returns the exercise catalog sessions are started from.
func (m *Manager) Catalog() *repcount.Catalog { return m.catalog }

// Start creates a session for exerciseID. An unknown exercise fails before
// any session exists.
func (m *Manager) Start(exerciseID string) (*Session, error) {
	ex, err := m.catalog.Lookup(exerciseID)
	if err != nil {
		return nil, err
	}
	m.Sweep()

	s := newSession(uuid.New().String(), ex, m.now)
	s.onFrame = m.recordFrame

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.CounterSessions.WithLabelValues(ex.ID).Inc()
		m.metrics.GaugeActiveSessions.Inc()
	}
	log.WithFields(log.Fields{"session": s.id, "exercise": ex.ID}).Info("session started")
	return s, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// List returns all known sessions, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].startedAt.Before(list[j].startedAt)
	})
	return list
}

// Stop stops the session and runs the stop hooks.
func (m *Manager) Stop(id string) (Summary, error) {
	s, err := m.Get(id)
	if err != nil {
		return Summary{}, err
	}

	summary, err := s.Stop()
	if err != nil {
		return Summary{}, err
	}

	if m.metrics != nil {
		m.metrics.GaugeActiveSessions.Dec()
	}
	log.WithFields(log.Fields{
		"session":  summary.SessionID,
		"exercise": summary.Exercise,
		"reps":     summary.Reps,
		"frames":   summary.Frames,
		"duration": summary.Duration.Round(time.Millisecond),
	}).Info("session stopped")

	m.mu.RLock()
	hooks := append([]StopHook(nil), m.onStop...)
	m.mu.RUnlock()
	for _, hook := range hooks {
		hook(summary)
	}
	m.Sweep()
	return summary, nil
}

// Sweep drops stopped sessions whose retention has passed and returns how
// many were dropped. Stop and Start sweep as well.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.retention)
	dropped := 0
	for id, s := range m.sessions {
		if s.stoppedBefore(cutoff) {
			delete(m.sessions, id)
			dropped++
		}
	}
	if dropped > 0 {
		log.Debugf("dropped %d stopped sessions", dropped)
	}
	return dropped
}

// ActiveCount returns the number of sessions still accepting frames.
func (m *Manager) ActiveCount() int {
	count := 0
	for _, s := range m.List() {
		if s.Active() {
			count++
		}
	}
	return count
}

// StopAll stops every active session.
func (m *Manager) StopAll() []Summary {
	var summaries []Summary
	for _, s := range m.List() {
		if !s.Active() {
			continue
		}
		summary, err := m.Stop(s.ID())
		if err == nil {
			summaries = append(summaries, summary)
		}
	}
	return summaries
}

func (m *Manager) recordFrame(s *Session, snap repcount.Snapshot) {
	if snap.Counted {
		log.WithFields(log.Fields{"session": s.id, "reps": snap.Reps}).Debug("rep counted")
	}

	if m.metrics != nil {
		result := "evaluated"
		if snap.Indeterminate {
			result = "indeterminate"
		}
		m.metrics.CounterFrames.WithLabelValues(snap.Exercise, result).Inc()
		if snap.Counted {
			m.metrics.CounterReps.WithLabelValues(snap.Exercise).Inc()
		}
	}

	m.mu.RLock()
	hooks := m.onFrame
	m.mu.RUnlock()
	for _, hook := range hooks {
		hook(s, snap)
	}
}
