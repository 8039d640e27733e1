// Package capture reads camera frames, gates pose inference on motion and
// draws the tracked skeleton back onto frames.
package capture

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Default camera settings. Full-body tracking needs the whole frame, so the
// resolution stays at VGA and the frame rate is raised only while moving.
const (
	DefaultFPS    = 5
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEmptyFrame is returned when the device delivers no image.
	ErrEmptyFrame = errors.New("captured frame is empty")
	// ErrNoMoreFrames is returned by MockCamera when playback is exhausted.
	ErrNoMoreFrames = errors.New("no more frames")
)

// Camera defines the interface for camera capture implementations.
// The caller owns every Mat returned by ReadFrame and must Close it.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// CameraConfig selects the device and capture size.
type CameraConfig struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
}

func (c CameraConfig) withDefaults() CameraConfig {
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultHeight
	}
	if c.FPS <= 0 {
		c.FPS = DefaultFPS
	}
	return c
}

// deviceCamera captures from a local video device through OpenCV.
type deviceCamera struct {
	config  CameraConfig
	capture *gocv.VideoCapture
	mu      sync.Mutex
	fps     int
}

// NewCamera creates a camera for the given device ID with default settings.
func NewCamera(deviceID int) Camera {
	return NewCameraWithConfig(CameraConfig{DeviceID: deviceID})
}

// NewCameraWithConfig creates a camera; it is not opened until Open.
func NewCameraWithConfig(config CameraConfig) Camera {
	config = config.withDefaults()
	return &deviceCamera{
		config: config,
		fps:    config.FPS,
	}
}

func (c *deviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.config.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.config.DeviceID, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	log.WithFields(log.Fields{
		"device": c.config.DeviceID,
		"width":  c.config.Width,
		"height": c.config.Height,
	}).Info("camera opened")
	return nil
}

func (c *deviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	log.WithField("device", c.config.DeviceID).Info("camera closed")
	return err
}

func (c *deviceCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, fmt.Errorf("read camera %d: device returned no frame", c.config.DeviceID)
	}
	if mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}

	return &mat, nil
}

// SetFPS ignores values <= 0.
func (c *deviceCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *deviceCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *deviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
