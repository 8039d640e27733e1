package repcount

import (
	"math"

	"github.com/ayusman/reptrack/internal/pose"
)

// Phase is the two-valued position of a tracked exercise.
type Phase string

const (
	PhaseRelaxed    Phase = "relaxed"
	PhaseContracted Phase = "contracted"
)

// Snapshot is the counter state after one frame.
type Snapshot struct {
	Exercise      string   `json:"exercise"`
	Phase         Phase    `json:"phase"`
	Reps          int      `json:"reps"`
	Angle         *float64 `json:"angle,omitempty"`
	Indeterminate bool     `json:"indeterminate"`
	Counted       bool     `json:"counted"`
	TargetReps    int      `json:"target_reps,omitempty"`
	TargetReached bool     `json:"target_reached"`
	Frames        int      `json:"frames"`
	Skipped       int      `json:"skipped"`
}

// Counter runs the relaxed/contracted state machine for one exercise.
// A Counter is owned by a single tracking session and is not safe for
// concurrent use.
type Counter struct {
	exercise *Exercise
	phase    Phase
	reps     int
	frames   int
	skipped  int
}

// NewCounter creates a counter in the relaxed phase with zero reps.
func NewCounter(ex *Exercise) *Counter {
	return &Counter{
		exercise: ex,
		phase:    PhaseRelaxed,
	}
}

// Update evaluates one frame. A frame the rule cannot evaluate changes
// neither phase nor count.
func (c *Counter) Update(p *pose.Pose) Snapshot {
	c.frames++

	reading, ok := c.exercise.Rule.Evaluate(p, c.exercise.minVisibility())
	if !ok {
		c.skipped++
		snap := c.snapshot()
		snap.Indeterminate = true
		return snap
	}

	counted := false
	switch c.phase {
	case PhaseRelaxed:
		if reading.Contracting {
			c.phase = PhaseContracted
		}
	case PhaseContracted:
		if reading.Relaxing {
			c.phase = PhaseRelaxed
			c.reps++
			counted = true
		}
	}

	snap := c.snapshot()
	snap.Counted = counted
	if !math.IsNaN(reading.Angle) {
		angle := reading.Angle
		snap.Angle = &angle
	}
	return snap
}

// Reset returns the counter to zero reps in the relaxed phase.
func (c *Counter) Reset() {
	c.phase = PhaseRelaxed
	c.reps = 0
	c.frames = 0
	c.skipped = 0
}

// Reps returns the number of completed repetitions.
func (c *Counter) Reps() int { return c.reps }

// Phase returns the current phase.
func (c *Counter) Phase() Phase { return c.phase }

// Exercise returns the exercise being counted.
func (c *Counter) Exercise() *Exercise { return c.exercise }

// Snapshot returns the current state without evaluating a frame.
func (c *Counter) Snapshot() Snapshot { return c.snapshot() }

func (c *Counter) snapshot() Snapshot {
	target := c.exercise.TargetReps
	return Snapshot{
		Exercise:      c.exercise.ID,
		Phase:         c.phase,
		Reps:          c.reps,
		TargetReps:    target,
		TargetReached: target > 0 && c.reps >= target,
		Frames:        c.frames,
		Skipped:       c.skipped,
	}
}
