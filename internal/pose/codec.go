package pose

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrTooManyLandmarks is returned when a decoded pose has more entries than
// the landmark vocabulary.
var ErrTooManyLandmarks = errors.New("too many landmarks")

// jsonPoint is the wire form of a landmark. Visibility is optional and
// defaults to 1.0 when the source does not report it.
type jsonPoint struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Visibility *float64 `json:"visibility,omitempty"`
}

// jsonPose is the wire form of a pose: a positional landmark list where
// null entries mark landmarks the source did not report.
type jsonPose struct {
	Landmarks []*jsonPoint `json:"landmarks"`
	Timestamp int64        `json:"timestamp"`
}

// MarshalJSON encodes the pose as a positional landmark list.
func (p Pose) MarshalJSON() ([]byte, error) {
	out := jsonPose{
		Landmarks: make([]*jsonPoint, NumLandmarks),
		Timestamp: p.Timestamp,
	}
	for i, l := range p.Landmarks {
		if i < 0 || i >= NumLandmarks {
			continue
		}
		v := l.Visibility
		out.Landmarks[i] = &jsonPoint{X: l.X, Y: l.Y, Z: l.Z, Visibility: &v}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a positional landmark list.
func (p *Pose) UnmarshalJSON(data []byte) error {
	var in jsonPose
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	decoded, err := in.toPose()
	if err != nil {
		return err
	}
	*p = *decoded
	return nil
}

func (j jsonPose) toPose() (*Pose, error) {
	if len(j.Landmarks) > NumLandmarks {
		return nil, fmt.Errorf("%w: got %d, max %d", ErrTooManyLandmarks, len(j.Landmarks), NumLandmarks)
	}

	p := NewPose(j.Timestamp)
	for i, pt := range j.Landmarks {
		if pt == nil {
			continue
		}
		vis := 1.0
		if pt.Visibility != nil {
			vis = *pt.Visibility
		}
		p.Landmarks[i] = Landmark{X: pt.X, Y: pt.Y, Z: pt.Z, Visibility: vis}
	}
	return p, nil
}

// Decode parses a single JSON pose.
func Decode(data []byte) (*Pose, error) {
	var p Pose
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode pose: %w", err)
	}
	return &p, nil
}

// maxLineSize bounds one JSON Lines record.
const maxLineSize = 1 << 20

// ReadSequence reads JSON Lines poses, one per line. A "null" line is a
// frame with nobody in view and yields a nil entry; blank lines are skipped.
func ReadSequence(r io.Reader) ([]*Pose, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)

	var poses []*Pose
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		if bytes.Equal(data, []byte("null")) {
			poses = append(poses, nil)
			continue
		}
		p, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		poses = append(poses, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return poses, nil
}
