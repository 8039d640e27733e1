// Package session tracks independent rep-counting sessions.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/ayusman/reptrack/internal/pose"
	"github.com/ayusman/reptrack/internal/repcount"
)

var (
	// ErrSessionStopped is returned for any operation on a stopped session.
	ErrSessionStopped = errors.New("session stopped")
	// ErrSessionNotFound is returned when no session has the given ID.
	ErrSessionNotFound = errors.New("session not found")
)

// subscriberBuffer is the per-subscriber snapshot queue. Slow subscribers
// lose snapshots rather than block the frame path.
const subscriberBuffer = 32

// Summary describes a finished session.
type Summary struct {
	SessionID  string        `json:"session_id"`
	Exercise   string        `json:"exercise"`
	Reps       int           `json:"reps"`
	TargetReps int           `json:"target_reps"`
	Frames     int           `json:"frames"`
	Skipped    int           `json:"skipped"`
	StartedAt  time.Time     `json:"started_at"`
	EndedAt    time.Time     `json:"ended_at"`
	Duration   time.Duration `json:"duration_ns"`
}

// Info is a point-in-time view of a session.
type Info struct {
	ID        string            `json:"id"`
	Exercise  string            `json:"exercise"`
	Active    bool              `json:"active"`
	StartedAt time.Time         `json:"started_at"`
	EndedAt   *time.Time        `json:"ended_at,omitempty"`
	State     repcount.Snapshot `json:"state"`
}

// Session owns the counter for one exercise. Frames are serialized per
// session; separate sessions never share state.
type Session struct {
	// feedMu orders whole Feed calls, frame hooks included
	feedMu      sync.Mutex
	mu          sync.Mutex
	id          string
	exercise    *repcount.Exercise
	counter     *repcount.Counter
	active      bool
	startedAt   time.Time
	endedAt     time.Time
	now         func() time.Time
	subscribers map[chan repcount.Snapshot]struct{}
	onFrame     func(s *Session, snap repcount.Snapshot)
}

func newSession(id string, ex *repcount.Exercise, now func() time.Time) *Session {
	return &Session{
		id:          id,
		exercise:    ex,
		counter:     repcount.NewCounter(ex),
		active:      true,
		startedAt:   now(),
		now:         now,
		subscribers: make(map[chan repcount.Snapshot]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Exercise returns the exercise being tracked.
func (s *Session) Exercise() *repcount.Exercise { return s.exercise }

// Active reports whether the session still accepts frames.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Feed evaluates one frame. Once the session is stopped, frames are
// rejected and the counter is left untouched. Frame hooks see the
// snapshots of one session in feed order, so a hook must not feed or
// stop the session it is called for.
func (s *Session) Feed(p *pose.Pose) (repcount.Snapshot, error) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return repcount.Snapshot{}, ErrSessionStopped
	}
	snap := s.counter.Update(p)
	s.publish(snap)
	onFrame := s.onFrame
	s.mu.Unlock()

	if onFrame != nil {
		onFrame(s, snap)
	}
	return snap, nil
}

// Restart zeroes the count and returns to the relaxed phase.
func (s *Session) Restart() (repcount.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return repcount.Snapshot{}, ErrSessionStopped
	}
	s.counter.Reset()
	snap := s.counter.Snapshot()
	s.publish(snap)
	return snap, nil
}

// Snapshot returns the current counter state.
func (s *Session) Snapshot() repcount.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter.Snapshot()
}

// Info returns a view of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{
		ID:        s.id,
		Exercise:  s.exercise.ID,
		Active:    s.active,
		StartedAt: s.startedAt,
		State:     s.counter.Snapshot(),
	}
	if !s.active {
		ended := s.endedAt
		info.EndedAt = &ended
	}
	return info
}

// stoppedBefore reports whether the session ended at or before t.
func (s *Session) stoppedBefore(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.active && !s.endedAt.After(t)
}

// Subscribe returns a channel receiving every snapshot the session produces.
// The channel is closed when the session stops or cancel is called.
func (s *Session) Subscribe() (<-chan repcount.Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan repcount.Snapshot, subscriberBuffer)
	if !s.active {
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Stop ends the session and returns its summary. Stopping twice returns
// ErrSessionStopped. A Feed in progress finishes, hooks included, first.
func (s *Session) Stop() (Summary, error) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return Summary{}, ErrSessionStopped
	}
	s.active = false
	s.endedAt = s.now()

	for ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = make(map[chan repcount.Snapshot]struct{})

	return s.summary(), nil
}

func (s *Session) summary() Summary {
	snap := s.counter.Snapshot()
	return Summary{
		SessionID:  s.id,
		Exercise:   s.exercise.ID,
		Reps:       snap.Reps,
		TargetReps: s.exercise.TargetReps,
		Frames:     snap.Frames,
		Skipped:    snap.Skipped,
		StartedAt:  s.startedAt,
		EndedAt:    s.endedAt,
		Duration:   s.endedAt.Sub(s.startedAt),
	}
}

// publish must be called with s.mu held.
func (s *Session) publish(snap repcount.Snapshot) {
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
		}
	}
}
