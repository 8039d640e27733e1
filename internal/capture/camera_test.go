package capture

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestNewCamera(t *testing.T) {
	cam := NewCamera(0)
	require.NotNil(t, cam)
	assert.Equal(t, DefaultFPS, cam.FPS())
	assert.False(t, cam.IsOpen())

	cam = NewCameraWithConfig(CameraConfig{DeviceID: 1, FPS: 30})
	assert.Equal(t, 30, cam.FPS())
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(0)

	tests := []struct {
		name    string
		fps     int
		wantFPS int
	}{
		{"set to 15", 15, 15},
		{"set to 1", 1, 1},
		{"zero keeps previous", 0, 1},
		{"negative keeps previous", -5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam.SetFPS(tt.fps)
			assert.Equal(t, tt.wantFPS, cam.FPS())
		})
	}
}

func TestCamera_NotOpened(t *testing.T) {
	cam := NewCamera(0)

	_, err := cam.ReadFrame()
	assert.True(t, errors.Is(err, ErrCameraNotOpen))
	assert.NoError(t, cam.Close())
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(0)
	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}
	assert.True(t, cam.IsOpen())

	mat, err := cam.ReadFrame()
	if err == nil {
		assert.False(t, mat.Empty())
		mat.Close()
	}

	require.NoError(t, cam.Close())
	assert.False(t, cam.IsOpen())
}

func TestMockCamera_Playback(t *testing.T) {
	frames := SolidFrames(2, 64, 48)
	defer CloseFrames(frames)

	cam := NewMockCamera(frames, false)
	_, err := cam.ReadFrame()
	assert.True(t, errors.Is(err, ErrCameraNotOpen))

	require.NoError(t, cam.Open())
	defer cam.Close()

	for i := 0; i < 2; i++ {
		f, err := cam.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, 64, f.Cols())
		f.Close()
	}

	_, err = cam.ReadFrame()
	assert.True(t, errors.Is(err, ErrNoMoreFrames))
	assert.Equal(t, 2, cam.Reads())
}

func TestMockCamera_Loop(t *testing.T) {
	frames := SolidFrames(1, 32, 32)
	defer CloseFrames(frames)

	cam := NewMockCamera(frames, true)
	require.NoError(t, cam.Open())
	defer cam.Close()

	for i := 0; i < 5; i++ {
		f, err := cam.ReadFrame()
		require.NoError(t, err, "iteration %d", i)
		f.Close()
	}
	assert.Equal(t, 5, cam.Reads())

	empty := NewMockCamera([]*gocv.Mat{}, true)
	require.NoError(t, empty.Open())
	_, err := empty.ReadFrame()
	assert.True(t, errors.Is(err, ErrNoMoreFrames))
}
