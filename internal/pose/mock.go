package pose

import (
	"math"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	poses []Pose
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetPoses sets the poses that will be returned by Detect.
func (m *MockDetector) SetPoses(poses []Pose) {
	m.poses = poses
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Detect returns the pre-configured poses or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Pose, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.poses, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

func lm(x, y float64) Landmark {
	return Landmark{X: x, Y: y, Visibility: 0.99}
}

// StandingPose returns a front-facing pose standing upright with arms
// hanging at the sides and feet hip-width apart.
func StandingPose() *Pose {
	p := NewPose(0)

	p.Set(Nose, lm(0.50, 0.15))
	p.Set(LeftEye, lm(0.52, 0.13))
	p.Set(RightEye, lm(0.48, 0.13))
	p.Set(LeftEar, lm(0.54, 0.14))
	p.Set(RightEar, lm(0.46, 0.14))

	// Arms straight down
	p.Set(LeftShoulder, lm(0.56, 0.30))
	p.Set(RightShoulder, lm(0.44, 0.30))
	p.Set(LeftElbow, lm(0.57, 0.45))
	p.Set(RightElbow, lm(0.43, 0.45))
	p.Set(LeftWrist, lm(0.58, 0.60))
	p.Set(RightWrist, lm(0.42, 0.60))

	// Legs straight, feet under the hips
	p.Set(LeftHip, lm(0.54, 0.60))
	p.Set(RightHip, lm(0.46, 0.60))
	p.Set(LeftKnee, lm(0.54, 0.78))
	p.Set(RightKnee, lm(0.46, 0.78))
	p.Set(LeftAnkle, lm(0.54, 0.95))
	p.Set(RightAnkle, lm(0.46, 0.95))

	return p
}

// JumpingJackOpenPose returns a pose with both arms raised above the head
// and the legs spread wide.
func JumpingJackOpenPose() *Pose {
	p := StandingPose()

	p.Set(LeftElbow, lm(0.64, 0.20))
	p.Set(RightElbow, lm(0.36, 0.20))
	p.Set(LeftWrist, lm(0.62, 0.08))
	p.Set(RightWrist, lm(0.38, 0.08))

	p.Set(LeftKnee, lm(0.60, 0.78))
	p.Set(RightKnee, lm(0.40, 0.78))
	p.Set(LeftAnkle, lm(0.66, 0.95))
	p.Set(RightAnkle, lm(0.34, 0.95))

	return p
}

// DownwardDogPose returns a side-on pose in the inverted-V yoga hold:
// hands and feet on the floor, arms and legs straight, hips highest.
func DownwardDogPose() *Pose {
	p := NewPose(0)

	p.Set(Nose, lm(0.28, 0.74))
	p.Set(LeftShoulder, lm(0.33, 0.66))
	p.Set(RightShoulder, lm(0.33, 0.66))
	p.Set(LeftElbow, lm(0.27, 0.78))
	p.Set(RightElbow, lm(0.27, 0.78))
	p.Set(LeftWrist, lm(0.20, 0.90))
	p.Set(RightWrist, lm(0.21, 0.90))
	p.Set(LeftHip, lm(0.50, 0.35))
	p.Set(RightHip, lm(0.50, 0.35))
	p.Set(LeftKnee, lm(0.62, 0.62))
	p.Set(RightKnee, lm(0.62, 0.62))
	p.Set(LeftAnkle, lm(0.73, 0.90))
	p.Set(RightAnkle, lm(0.73, 0.90))

	return p
}

// WithJointAngle returns a copy of p with landmark c moved so that the angle
// a-vertex-c equals degrees. The distance from vertex to c is preserved, or
// set to 0.15 if it was zero. Landmarks a and vertex must be present.
func WithJointAngle(p *Pose, a, vertex, c int, degrees float64) *Pose {
	out := NewPose(p.Timestamp)
	for i, l := range p.Landmarks {
		out.Landmarks[i] = l
	}

	la, okA := p.Landmarks[a]
	lv, okV := p.Landmarks[vertex]
	if !okA || !okV {
		return out
	}
	lc, okC := p.Landmarks[c]
	if !okC {
		lc = Landmark{Visibility: 0.99}
	}

	length := distance2D(lv, lc)
	if length < 1e-9 {
		length = 0.15
	}

	base := math.Atan2(la.Y-lv.Y, la.X-lv.X)
	theta := base + degrees*math.Pi/180.0

	lc.X = lv.X + length*math.Cos(theta)
	lc.Y = lv.Y + length*math.Sin(theta)
	out.Landmarks[c] = lc

	return out
}

// Without returns a copy of p with the given landmarks removed.
func Without(p *Pose, indices ...int) *Pose {
	out := NewPose(p.Timestamp)
	for i, l := range p.Landmarks {
		out.Landmarks[i] = l
	}
	for _, i := range indices {
		delete(out.Landmarks, i)
	}
	return out
}
