// Package pose provides body landmark types and pose detection sources.
package pose

import "math"

// Body landmark indices following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

var landmarkNames = [NumLandmarks]string{
	"nose", "left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear", "mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_pinky", "right_pinky",
	"left_index", "right_index", "left_thumb", "right_thumb",
	"left_hip", "right_hip", "left_knee", "right_knee",
	"left_ankle", "right_ankle", "left_heel", "right_heel",
	"left_foot_index", "right_foot_index",
}

// Name returns the snake_case name of a landmark index, or "" if out of range.
func Name(index int) string {
	if index < 0 || index >= NumLandmarks {
		return ""
	}
	return landmarkNames[index]
}

// IndexOf returns the landmark index for a snake_case name.
func IndexOf(name string) (int, bool) {
	for i, n := range landmarkNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// Landmark is a single body keypoint in normalized image coordinates.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Pose is the set of landmarks reported for one person in one frame.
// Landmarks that the source did not report are absent from the map.
type Pose struct {
	Landmarks map[int]Landmark `json:"landmarks"`
	Timestamp int64            `json:"timestamp"` // milliseconds
}

// NewPose creates an empty pose for the given timestamp.
func NewPose(timestamp int64) *Pose {
	return &Pose{
		Landmarks: make(map[int]Landmark, NumLandmarks),
		Timestamp: timestamp,
	}
}

// Set stores a landmark at the given index.
func (p *Pose) Set(index int, l Landmark) {
	if p.Landmarks == nil {
		p.Landmarks = make(map[int]Landmark, NumLandmarks)
	}
	p.Landmarks[index] = l
}

// Get returns the landmark at index if it is present and its visibility is
// at least minVisibility. Non-finite coordinates count as absent.
func (p *Pose) Get(index int, minVisibility float64) (Landmark, bool) {
	if p == nil {
		return Landmark{}, false
	}
	l, ok := p.Landmarks[index]
	if !ok {
		return Landmark{}, false
	}
	if l.Visibility < minVisibility {
		return Landmark{}, false
	}
	if !finite(l.X) || !finite(l.Y) {
		return Landmark{}, false
	}
	return l, true
}

// Len returns the number of landmarks present.
func (p *Pose) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Landmarks)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func midpoint(a, b Landmark) Landmark {
	return Landmark{
		X:          (a.X + b.X) / 2,
		Y:          (a.Y + b.Y) / 2,
		Z:          (a.Z + b.Z) / 2,
		Visibility: math.Min(a.Visibility, b.Visibility),
	}
}

func distance2D(a, b Landmark) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Normalize returns a copy of the pose with the hip midpoint at the origin,
// scaled so that the distance from hip midpoint to shoulder midpoint is 1.0.
// If the hips or shoulders are missing, the pose is copied unchanged.
// A zero torso length yields a translated but unscaled pose.
func (p *Pose) Normalize() *Pose {
	if p == nil {
		return nil
	}

	normalized := NewPose(p.Timestamp)
	for i, l := range p.Landmarks {
		normalized.Landmarks[i] = l
	}

	lh, ok1 := p.Landmarks[LeftHip]
	rh, ok2 := p.Landmarks[RightHip]
	ls, ok3 := p.Landmarks[LeftShoulder]
	rs, ok4 := p.Landmarks[RightShoulder]
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return normalized
	}

	origin := midpoint(lh, rh)
	for i, l := range normalized.Landmarks {
		l.X -= origin.X
		l.Y -= origin.Y
		l.Z -= origin.Z
		normalized.Landmarks[i] = l
	}

	scale := distance2D(origin, midpoint(ls, rs))
	if scale < 1e-10 {
		return normalized
	}

	for i, l := range normalized.Landmarks {
		l.X /= scale
		l.Y /= scale
		l.Z /= scale
		normalized.Landmarks[i] = l
	}

	return normalized
}
