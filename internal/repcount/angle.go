// Package repcount turns a stream of body poses into repetition counts.
//
// Each frame is evaluated by an exercise Rule, which reports whether the
// body has crossed into the contracted position or back out to the relaxed
// one. A Counter owns the two-phase state and increments the rep count on
// the contracted to relaxed edge only. Frames the rule cannot evaluate
// (missing or low-confidence landmarks, degenerate geometry) leave the
// counter untouched.
package repcount

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/ayusman/reptrack/internal/pose"
)

// minSegment is the shortest vertex-to-point distance treated as a real limb
// segment. Shorter segments have no meaningful direction.
const minSegment = 1e-9

// Angle returns the unsigned interior angle a-vertex-c in degrees, folded
// into [0, 180]. ok is false when either segment has zero length or any
// coordinate is not finite.
func Angle(a, vertex, c pose.Landmark) (float64, bool) {
	if !finite(a.X, a.Y, vertex.X, vertex.Y, c.X, c.Y) {
		return 0, false
	}

	ax, ay := a.X-vertex.X, a.Y-vertex.Y
	cx, cy := c.X-vertex.X, c.Y-vertex.Y

	if math.Hypot(ax, ay) < minSegment || math.Hypot(cx, cy) < minSegment {
		return 0, false
	}

	radians := math.Atan2(cy, cx) - math.Atan2(ay, ax)
	angle := math.Abs(radians * 180.0 / math.Pi)
	if angle > 180.0 {
		angle = 360.0 - angle
	}

	return angle, true
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Joint names the three landmarks whose angle is measured at Vertex.
type Joint struct {
	A      int `json:"a"`
	Vertex int `json:"vertex"`
	C      int `json:"c"`
}

// Measure returns the joint angle in p, ignoring landmarks whose visibility
// is below minVisibility.
func (j Joint) Measure(p *pose.Pose, minVisibility float64) (float64, bool) {
	a, ok := p.Get(j.A, minVisibility)
	if !ok {
		return 0, false
	}
	v, ok := p.Get(j.Vertex, minVisibility)
	if !ok {
		return 0, false
	}
	c, ok := p.Get(j.C, minVisibility)
	if !ok {
		return 0, false
	}
	return Angle(a, v, c)
}

// UnmarshalJSON accepts each landmark as an index or a snake_case name,
// e.g. {"a": "left_hip", "vertex": 25, "c": "left_ankle"}.
func (j *Joint) UnmarshalJSON(data []byte) error {
	var raw struct {
		A      json.RawMessage `json:"a"`
		Vertex json.RawMessage `json:"vertex"`
		C      json.RawMessage `json:"c"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var err error
	if j.A, err = landmarkRef(raw.A); err != nil {
		return err
	}
	if j.Vertex, err = landmarkRef(raw.Vertex); err != nil {
		return err
	}
	if j.C, err = landmarkRef(raw.C); err != nil {
		return err
	}
	return nil
}

func landmarkRef(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, nil
	}

	var index int
	if err := json.Unmarshal(raw, &index); err == nil {
		return index, nil
	}

	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return 0, fmt.Errorf("landmark must be an index or a name: %s", raw)
	}
	index, ok := pose.IndexOf(name)
	if !ok {
		return 0, fmt.Errorf("unknown landmark %q", name)
	}
	return index, nil
}

func (j Joint) valid() bool {
	in := func(i int) bool { return i >= 0 && i < pose.NumLandmarks }
	return in(j.A) && in(j.Vertex) && in(j.C)
}
