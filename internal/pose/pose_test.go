package pose

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-9

func TestPose_Get(t *testing.T) {
	p := NewPose(10)
	p.Set(LeftElbow, Landmark{X: 0.4, Y: 0.5, Visibility: 0.9})
	p.Set(LeftWrist, Landmark{X: 0.4, Y: 0.6, Visibility: 0.2})
	p.Set(LeftShoulder, Landmark{X: math.NaN(), Y: 0.3, Visibility: 1})

	t.Run("present and visible", func(t *testing.T) {
		l, ok := p.Get(LeftElbow, 0.5)
		require.True(t, ok)
		assert.Equal(t, 0.4, l.X)
	})

	t.Run("below confidence floor", func(t *testing.T) {
		_, ok := p.Get(LeftWrist, 0.5)
		assert.False(t, ok)

		_, ok = p.Get(LeftWrist, 0.1)
		assert.True(t, ok)
	})

	t.Run("absent", func(t *testing.T) {
		_, ok := p.Get(RightElbow, 0)
		assert.False(t, ok)
	})

	t.Run("non-finite coordinates", func(t *testing.T) {
		_, ok := p.Get(LeftShoulder, 0)
		assert.False(t, ok)
	})

	t.Run("nil pose", func(t *testing.T) {
		var nilPose *Pose
		_, ok := nilPose.Get(Nose, 0)
		assert.False(t, ok)
		assert.Equal(t, 0, nilPose.Len())
	})
}

func TestPose_Normalize(t *testing.T) {
	t.Run("hip midpoint at origin, torso length 1", func(t *testing.T) {
		p := StandingPose()
		n := p.Normalize()

		lh := n.Landmarks[LeftHip]
		rh := n.Landmarks[RightHip]
		assert.InDelta(t, 0, (lh.X+rh.X)/2, epsilon)
		assert.InDelta(t, 0, (lh.Y+rh.Y)/2, epsilon)

		ls := n.Landmarks[LeftShoulder]
		rs := n.Landmarks[RightShoulder]
		mx, my := (ls.X+rs.X)/2, (ls.Y+rs.Y)/2
		assert.InDelta(t, 1.0, math.Sqrt(mx*mx+my*my), epsilon)

		// original untouched
		assert.Equal(t, 0.54, p.Landmarks[LeftHip].X)
	})

	t.Run("missing torso copies unchanged", func(t *testing.T) {
		p := Without(StandingPose(), LeftHip)
		n := p.Normalize()
		assert.Equal(t, p.Landmarks[Nose], n.Landmarks[Nose])
	})

	t.Run("zero torso translates only", func(t *testing.T) {
		p := NewPose(0)
		for _, i := range []int{LeftHip, RightHip, LeftShoulder, RightShoulder} {
			p.Set(i, Landmark{X: 0.5, Y: 0.5, Visibility: 1})
		}
		n := p.Normalize()
		assert.InDelta(t, 0, n.Landmarks[LeftShoulder].X, epsilon)
	})

	t.Run("nil returns nil", func(t *testing.T) {
		var p *Pose
		assert.Nil(t, p.Normalize())
	})
}

func TestNames(t *testing.T) {
	assert.Equal(t, "left_elbow", Name(LeftElbow))
	assert.Equal(t, "", Name(NumLandmarks))

	i, ok := IndexOf("right_knee")
	require.True(t, ok)
	assert.Equal(t, RightKnee, i)

	_, ok = IndexOf("tail")
	assert.False(t, ok)
}

func TestDecode(t *testing.T) {
	t.Run("null entries are absent, missing visibility is 1", func(t *testing.T) {
		data := []byte(`{"landmarks":[{"x":0.1,"y":0.2,"z":0}, null, {"x":0.3,"y":0.4,"visibility":0.3}],"timestamp":42}`)

		p, err := Decode(data)
		require.NoError(t, err)

		assert.Equal(t, int64(42), p.Timestamp)
		assert.Equal(t, 2, p.Len())
		assert.Equal(t, 1.0, p.Landmarks[0].Visibility)
		assert.Equal(t, 0.3, p.Landmarks[2].Visibility)
		_, ok := p.Landmarks[1]
		assert.False(t, ok)
	})

	t.Run("too many landmarks", func(t *testing.T) {
		pts := make([]map[string]float64, NumLandmarks+1)
		for i := range pts {
			pts[i] = map[string]float64{"x": 0, "y": 0}
		}
		data, _ := json.Marshal(map[string]any{"landmarks": pts})

		_, err := Decode(data)
		assert.True(t, errors.Is(err, ErrTooManyLandmarks))
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := Decode([]byte(`{"landmarks":`))
		assert.Error(t, err)
	})

	t.Run("encode keeps positions", func(t *testing.T) {
		p := StandingPose()
		p.Timestamp = 7

		data, err := json.Marshal(p)
		require.NoError(t, err)

		decoded, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, p.Len(), decoded.Len())
		assert.Equal(t, p.Landmarks[LeftKnee], decoded.Landmarks[LeftKnee])
		assert.Equal(t, int64(7), decoded.Timestamp)
	})
}

func TestParseResponse(t *testing.T) {
	line := []byte(`{"poses":[{"landmarks":[{"x":0.5,"y":0.5,"visibility":0.9}]}]}` + "\n")

	poses, err := parseResponse(line, 99)
	require.NoError(t, err)
	require.Len(t, poses, 1)
	assert.Equal(t, int64(99), poses[0].Timestamp)
	assert.Equal(t, 0.9, poses[0].Landmarks[Nose].Visibility)

	_, err = parseResponse([]byte("garbage"), 0)
	assert.Error(t, err)
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty poses by default", func(t *testing.T) {
		mock := NewMockDetector()

		poses, err := mock.Detect(nil)
		assert.NoError(t, err)
		assert.Nil(t, poses)
		assert.Equal(t, 1, mock.Calls())
	})

	t.Run("returns configured poses", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetPoses([]Pose{*StandingPose(), *JumpingJackOpenPose()})

		poses, err := mock.Detect(nil)
		assert.NoError(t, err)
		assert.Len(t, poses, 2)
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		poses, err := mock.Detect(nil)
		assert.Equal(t, expectedErr, err)
		assert.Nil(t, poses)
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestWithJointAngle(t *testing.T) {
	base := StandingPose()

	for _, deg := range []float64{0, 35, 90, 140, 179} {
		p := WithJointAngle(base, LeftShoulder, LeftElbow, LeftWrist, deg)

		s, e, w := p.Landmarks[LeftShoulder], p.Landmarks[LeftElbow], p.Landmarks[LeftWrist]
		a1 := math.Atan2(s.Y-e.Y, s.X-e.X)
		a2 := math.Atan2(w.Y-e.Y, w.X-e.X)
		got := math.Abs((a2 - a1) * 180 / math.Pi)
		if got > 180 {
			got = 360 - got
		}
		assert.InDelta(t, deg, got, 1e-6, "angle %v", deg)
	}

	t.Run("missing vertex copies unchanged", func(t *testing.T) {
		p := WithJointAngle(Without(base, LeftElbow), LeftShoulder, LeftElbow, LeftWrist, 30)
		assert.Equal(t, base.Landmarks[LeftWrist], p.Landmarks[LeftWrist])
	})
}

func TestReadSequence(t *testing.T) {
	standing, err := json.Marshal(StandingPose())
	require.NoError(t, err)

	input := string(standing) + "\n\nnull\n  " + string(standing) + "  \n"
	poses, err := ReadSequence(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, poses, 3)
	assert.NotNil(t, poses[0])
	assert.Nil(t, poses[1])
	assert.Equal(t, StandingPose().Len(), poses[2].Len())

	_, err = ReadSequence(strings.NewReader(string(standing) + "\n{oops\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	poses, err = ReadSequence(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, poses)
}
