package repcount

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/reptrack/internal/pose"
)

// Reading is a rule's verdict on one frame.
type Reading struct {
	// Contracting is true when the frame is past the enter threshold.
	Contracting bool
	// Relaxing is true when the frame is past the exit threshold.
	Relaxing bool
	// Angle is the measured angle for angle rules, NaN otherwise.
	Angle float64
}

// Rule evaluates a single pose. ok is false when the pose lacks what the
// rule needs; the counter then ignores the frame.
type Rule interface {
	Evaluate(p *pose.Pose, minVisibility float64) (r Reading, ok bool)
	Validate() error
}

// Direction selects which side of the thresholds is the contracted position.
type Direction string

const (
	// EnterBelow contracts when the angle drops under Enter and relaxes
	// when it rises above Exit (curls, push-ups, squats).
	EnterBelow Direction = "below"
	// EnterAbove contracts when the angle rises above Enter and relaxes
	// when it drops under Exit.
	EnterAbove Direction = "above"
)

// Aggregate combines several joint angles into one.
type Aggregate string

const (
	AggregateMean Aggregate = "mean"
	AggregateMin  Aggregate = "min"
	AggregateMax  Aggregate = "max"
)

// ErrInvalidRule is returned by Validate for unusable rule configuration.
var ErrInvalidRule = errors.New("invalid rule")

// AngleRule is a joint-angle threshold rule. Enter and Exit must leave a gap
// between them in the direction of travel so that noise around one
// threshold cannot produce a rep.
type AngleRule struct {
	Joints    []Joint   `json:"joints"`
	Aggregate Aggregate `json:"aggregate,omitempty"`
	Enter     float64   `json:"enter"`
	Exit      float64   `json:"exit"`
	Direction Direction `json:"direction"`
}

// Evaluate measures every joint and compares the aggregate to the thresholds.
// Any unmeasurable joint makes the whole frame indeterminate.
func (r *AngleRule) Evaluate(p *pose.Pose, minVisibility float64) (Reading, bool) {
	if p == nil || len(r.Joints) == 0 {
		return Reading{}, false
	}

	angles := make([]float64, 0, len(r.Joints))
	for _, j := range r.Joints {
		a, ok := j.Measure(p, minVisibility)
		if !ok {
			return Reading{}, false
		}
		angles = append(angles, a)
	}

	angle := aggregate(r.Aggregate, angles)

	reading := Reading{Angle: angle}
	switch r.Direction {
	case EnterAbove:
		reading.Contracting = angle > r.Enter
		reading.Relaxing = angle < r.Exit
	default:
		reading.Contracting = angle < r.Enter
		reading.Relaxing = angle > r.Exit
	}
	return reading, true
}

// Validate checks the joints and threshold ordering.
func (r *AngleRule) Validate() error {
	if len(r.Joints) == 0 {
		return fmt.Errorf("%w: no joints", ErrInvalidRule)
	}
	for _, j := range r.Joints {
		if !j.valid() {
			return fmt.Errorf("%w: landmark index out of range in %+v", ErrInvalidRule, j)
		}
	}

	switch r.Aggregate {
	case "", AggregateMean, AggregateMin, AggregateMax:
	default:
		return fmt.Errorf("%w: unknown aggregate %q", ErrInvalidRule, r.Aggregate)
	}

	for _, v := range []float64{r.Enter, r.Exit} {
		if math.IsNaN(v) || v < 0 || v > 180 {
			return fmt.Errorf("%w: threshold %v outside [0, 180]", ErrInvalidRule, v)
		}
	}

	switch r.Direction {
	case EnterBelow:
		if r.Enter >= r.Exit {
			return fmt.Errorf("%w: enter %v must be below exit %v", ErrInvalidRule, r.Enter, r.Exit)
		}
	case EnterAbove:
		if r.Enter <= r.Exit {
			return fmt.Errorf("%w: enter %v must be above exit %v", ErrInvalidRule, r.Enter, r.Exit)
		}
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidRule, r.Direction)
	}

	return nil
}

func aggregate(mode Aggregate, angles []float64) float64 {
	result := angles[0]
	switch mode {
	case AggregateMin:
		for _, a := range angles[1:] {
			result = math.Min(result, a)
		}
	case AggregateMax:
		for _, a := range angles[1:] {
			result = math.Max(result, a)
		}
	default:
		var sum float64
		for _, a := range angles {
			sum += a
		}
		result = sum / float64(len(angles))
	}
	return result
}

// Predicate tests a pose whose required landmarks are known to be present.
type Predicate func(v View) bool

// View gives predicates access to the required landmarks of a pose.
type View struct {
	pose          *pose.Pose
	minVisibility float64
}

// At returns landmark i. Predicates only see poses in which every required
// landmark is present, so At never fails for those indices.
func (v View) At(i int) pose.Landmark {
	l, _ := v.pose.Get(i, v.minVisibility)
	return l
}

// Angle returns the angle a-vertex-c, or NaN when it is degenerate. NaN
// fails every comparison, so a degenerate angle never satisfies a predicate.
func (v View) Angle(a, vertex, c int) float64 {
	angle, ok := Angle(v.At(a), v.At(vertex), v.At(c))
	if !ok {
		return math.NaN()
	}
	return angle
}

// PoseRule is a compound-condition rule for exercises that are not a single
// joint angle, such as jumping jacks or held yoga poses. Exit defaults to
// the negation of Enter. With Normalize set, predicates see the pose in
// torso units (hip midpoint at the origin, hip-to-shoulder length 1).
type PoseRule struct {
	Required  []int
	Enter     Predicate
	Exit      Predicate
	Normalize bool
}

// Evaluate checks the required landmarks and applies the predicates.
func (r *PoseRule) Evaluate(p *pose.Pose, minVisibility float64) (Reading, bool) {
	if p == nil || r.Enter == nil {
		return Reading{}, false
	}
	for _, i := range r.Required {
		if _, ok := p.Get(i, minVisibility); !ok {
			return Reading{}, false
		}
	}

	if r.Normalize {
		p = p.Normalize()
	}

	v := View{pose: p, minVisibility: minVisibility}
	reading := Reading{Angle: math.NaN()}
	reading.Contracting = r.Enter(v)
	if r.Exit != nil {
		reading.Relaxing = r.Exit(v)
	} else {
		reading.Relaxing = !reading.Contracting
	}
	return reading, true
}

// Validate checks that the rule has an enter predicate and valid indices.
func (r *PoseRule) Validate() error {
	if r.Enter == nil {
		return fmt.Errorf("%w: pose rule without enter predicate", ErrInvalidRule)
	}
	if len(r.Required) == 0 {
		return fmt.Errorf("%w: pose rule without required landmarks", ErrInvalidRule)
	}
	for _, i := range r.Required {
		if i < 0 || i >= pose.NumLandmarks {
			return fmt.Errorf("%w: landmark index %d out of range", ErrInvalidRule, i)
		}
	}
	return nil
}

// MarshalJSON describes a pose rule by its required landmarks; predicates
// are code and are not serialized.
func (r *PoseRule) MarshalJSON() ([]byte, error) {
	names := make([]string, len(r.Required))
	for i, idx := range r.Required {
		names[i] = pose.Name(idx)
	}
	return json.Marshal(struct {
		Kind     string   `json:"kind"`
		Required []string `json:"required"`
	}{Kind: "pose", Required: names})
}
