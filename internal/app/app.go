// Package app runs the local camera tracking pipeline.
package app

import (
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/reptrack/internal/capture"
	"github.com/ayusman/reptrack/internal/metrics"
	"github.com/ayusman/reptrack/internal/pose"
	"github.com/ayusman/reptrack/internal/repcount"
	"github.com/ayusman/reptrack/internal/session"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate when no motion is detected.
	IdleFPS = 5
	// ActiveFPS is the frame rate while the user is moving.
	ActiveFPS = 15
	// IdleTimeout is how long without motion before dropping back to idle.
	IdleTimeout = 2 * time.Second
)

var (
	// ErrAlreadyTracking is returned by StartTracking while a session runs.
	ErrAlreadyTracking = errors.New("camera tracking already running")
	// ErrNotTracking is returned by StopTracking when nothing runs.
	ErrNotTracking = errors.New("camera tracking not running")
)

// Config holds configuration options for the application.
type Config struct {
	Sessions       *session.Manager
	Metrics        *metrics.Manager
	CameraID       int
	MotionThresh   float64
	DetectorConfig pose.Config
	// Camera and Detector override the device camera and MediaPipe detector.
	Camera   capture.Camera
	Detector pose.Detector
}

// App owns the camera and feeds detected poses into one tracking session
// at a time.
type App struct {
	config   Config
	camera   capture.Camera
	motion   *capture.MotionDetector
	gate     *capture.MotionGate
	detector pose.Detector

	mu        sync.RWMutex
	session   *session.Session
	stopCh    chan struct{}
	doneCh    chan struct{}
	lastFrame []byte
	listeners []func(repcount.Snapshot)
}

// New creates an App. Without an explicit detector it tries MediaPipe and
// falls back to a mock detector that never sees anyone.
func New(config Config) *App {
	camera := config.Camera
	if camera == nil {
		camera = capture.NewCamera(config.CameraID)
	}

	a := &App{
		config: config,
		camera: camera,
		motion: capture.NewMotionDetector(config.MotionThresh),
		gate:   capture.NewMotionGate(IdleFPS, ActiveFPS, IdleTimeout),
	}

	switch {
	case config.Detector != nil:
		a.detector = config.Detector
	default:
		detectorConfig := config.DetectorConfig
		if detectorConfig == (pose.Config{}) {
			detectorConfig = pose.DefaultConfig()
		}
		if mp, err := pose.NewMediaPipeDetector(detectorConfig); err == nil {
			a.detector = mp
			log.Info("using MediaPipe pose detection")
		} else {
			log.Warnf("MediaPipe not available (%v), using mock detector", err)
			a.detector = pose.NewMockDetector()
		}
	}

	return a
}

// OnSnapshot registers a listener called for every frame fed to the
// tracked session.
func (a *App) OnSnapshot(fn func(repcount.Snapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// StartTracking opens the camera and starts a session for exerciseID.
func (a *App) StartTracking(exerciseID string) (*session.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil, ErrAlreadyTracking
	}

	// resolve the exercise before touching the camera
	if _, err := a.config.Sessions.Catalog().Lookup(exerciseID); err != nil {
		return nil, err
	}

	if err := a.camera.Open(); err != nil {
		return nil, err
	}

	s, err := a.config.Sessions.Start(exerciseID)
	if err != nil {
		a.camera.Close()
		return nil, err
	}

	a.camera.SetFPS(IdleFPS)
	a.motion.Reset()
	a.gate = capture.NewMotionGate(IdleFPS, ActiveFPS, IdleTimeout)
	a.session = s
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	log.WithFields(log.Fields{"session": s.ID(), "exercise": exerciseID}).Info("camera tracking started")
	return s, nil
}

// StopTracking stops the pipeline, closes the camera and stops the session.
// Frames captured after this call are dropped by the stopped session.
func (a *App) StopTracking() (session.Summary, error) {
	a.mu.Lock()
	if a.stopCh == nil {
		a.mu.Unlock()
		return session.Summary{}, ErrNotTracking
	}
	stopCh, doneCh, s := a.stopCh, a.doneCh, a.session
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	close(stopCh)
	<-doneCh

	if err := a.camera.Close(); err != nil {
		log.Warnf("close camera: %v", err)
	}

	summary, err := a.config.Sessions.Stop(s.ID())
	if err != nil && !errors.Is(err, session.ErrSessionStopped) {
		return session.Summary{}, err
	}
	log.WithField("session", s.ID()).Info("camera tracking stopped")
	return summary, err
}

// IsTracking reports whether the camera pipeline is running.
func (a *App) IsTracking() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// Session returns the session of the current or most recent camera run.
func (a *App) Session() *session.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// LatestFrame returns the most recent annotated frame as JPEG, or nil.
func (a *App) LatestFrame() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastFrame
}

// Detector returns the pose detector.
func (a *App) Detector() pose.Detector {
	return a.detector
}

// Close stops tracking and releases the detector.
func (a *App) Close() error {
	if a.IsTracking() {
		if _, err := a.StopTracking(); err != nil && !errors.Is(err, session.ErrSessionStopped) {
			log.Warnf("stop tracking: %v", err)
		}
	}
	a.motion.Close()
	return a.detector.Close()
}

func (a *App) setLastFrame(frame *gocv.Mat) {
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		log.Debugf("encode overlay frame: %v", err)
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	a.mu.Lock()
	a.lastFrame = data
	a.mu.Unlock()
}

func (a *App) notify(snap repcount.Snapshot) {
	a.mu.RLock()
	listeners := append([]func(repcount.Snapshot){}, a.listeners...)
	a.mu.RUnlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
