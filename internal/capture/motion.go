package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Motion detection constants
const (
	// GaussianBlurSize is the kernel size for Gaussian blur (21x21)
	GaussianBlurSize = 21
	// DiffThreshold is the binary threshold for difference detection
	DiffThreshold = 25
)

// MotionDetector detects motion between consecutive frames using frame
// differencing over a blurred grayscale image.
type MotionDetector struct {
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// NewMotionDetector creates a detector that reports motion when more than
// threshold percent of the pixels change between frames.
func NewMotionDetector(threshold float64) *MotionDetector {
	if threshold <= 0 {
		threshold = 1.0
	}
	return &MotionDetector{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect compares frame with the previous one and returns whether motion
// was detected together with the changed-pixel percentage. The first frame
// only sets the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	// a resolution change invalidates the baseline
	if !m.initialized || m.prevGray.Rows() != blurred.Rows() || m.prevGray.Cols() != blurred.Cols() {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	changePercent := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100.0

	blurred.CopyTo(&m.prevGray)

	return changePercent > m.threshold, changePercent
}

// Threshold returns the current change threshold in percent.
func (m *MotionDetector) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// SetThreshold ignores values <= 0.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// Reset drops the baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
}

// Close releases the baseline frame.
func (m *MotionDetector) Close() {
	m.Reset()
}

// MotionGate decides whether a frame is worth running pose inference on.
// A gate stays active for the idle timeout after the last motion, so a
// brief pause at the top of a rep does not drop frames mid-movement.
type MotionGate struct {
	IdleFPS     int
	ActiveFPS   int
	IdleTimeout time.Duration

	lastMotion time.Time
	active     bool
}

// NewMotionGate creates a gate that starts idle.
func NewMotionGate(idleFPS, activeFPS int, idleTimeout time.Duration) *MotionGate {
	return &MotionGate{
		IdleFPS:     idleFPS,
		ActiveFPS:   activeFPS,
		IdleTimeout: idleTimeout,
	}
}

// Observe records whether motion was seen at now and reports if the gate
// is active, along with whether the active state changed.
func (g *MotionGate) Observe(motion bool, now time.Time) (active, changed bool) {
	was := g.active
	if motion {
		g.lastMotion = now
		g.active = true
	} else if g.active && now.Sub(g.lastMotion) > g.IdleTimeout {
		g.active = false
	}
	return g.active, g.active != was
}

// Active reports the current gate state.
func (g *MotionGate) Active() bool { return g.active }

// FPS returns the capture rate for the current state.
func (g *MotionGate) FPS() int {
	if g.active {
		return g.ActiveFPS
	}
	return g.IdleFPS
}
