package plugin

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/reptrack/internal/repcount"
	"github.com/ayusman/reptrack/internal/session"
)

// DefaultQueueSize is the number of pending events a Dispatcher buffers.
const DefaultQueueSize = 64

// Dispatcher turns session events into plugin runs on a single worker
// goroutine so plugins never slow the frame path. Sessions run frame hooks
// in feed order and stop hooks after the last frame, so the events of one
// session reach plugins in order. Events of different sessions interleave.
// Events arriving while the queue is full are dropped.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	queue    chan Request
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts a dispatcher. queueSize <= 0 means DefaultQueueSize.
func NewDispatcher(manager *Manager, executor *Executor, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		manager:  manager,
		executor: executor,
		queue:    make(chan Request, queueSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

// Attach subscribes the dispatcher to the sessions' frame and stop events.
func (d *Dispatcher) Attach(sessions *session.Manager) {
	sessions.OnFrame(d.HandleFrame)
	sessions.OnStop(d.HandleStop)
}

// HandleFrame emits rep and target_reached events for a counted frame.
func (d *Dispatcher) HandleFrame(s *session.Session, snap repcount.Snapshot) {
	if !snap.Counted {
		return
	}
	req := Request{
		Event:      EventRep,
		SessionID:  s.ID(),
		Exercise:   snap.Exercise,
		Reps:       snap.Reps,
		TargetReps: snap.TargetReps,
	}
	d.Dispatch(req)

	// reps only grow within a run, so this fires once
	if snap.TargetReps > 0 && snap.Reps == snap.TargetReps {
		req.Event = EventTargetReached
		d.Dispatch(req)
	}
}

// HandleStop emits a session_stopped event.
func (d *Dispatcher) HandleStop(sum session.Summary) {
	d.Dispatch(Request{
		Event:      EventSessionStopped,
		SessionID:  sum.SessionID,
		Exercise:   sum.Exercise,
		Reps:       sum.Reps,
		TargetReps: sum.TargetReps,
		Summary:    &sum,
	})
}

// Dispatch queues req. It reports false when the event was dropped.
func (d *Dispatcher) Dispatch(req Request) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- req:
		return true
	default:
		log.Warnf("plugin queue full, dropping %s event for session %s", req.Event, req.SessionID)
		return false
	}
}

// Close runs the queued events and stops the worker.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
	d.cancel()
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for req := range d.queue {
		for _, p := range d.manager.ForEvent(req.Event) {
			resp, err := d.executor.Execute(d.ctx, p, req)
			fields := log.Fields{"plugin": p.Manifest.Name, "event": req.Event, "session": req.SessionID}
			switch {
			case err != nil:
				log.WithFields(fields).Warnf("plugin run: %v", err)
			case !resp.Success:
				log.WithFields(fields).Warnf("plugin reported failure: %s", resp.Error)
			default:
				log.WithFields(fields).Debug("plugin ran")
			}
		}
	}
}
