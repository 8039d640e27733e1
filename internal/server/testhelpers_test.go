package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ayusman/reptrack/internal/pose"
)

func curlPose(angle float64) *pose.Pose {
	return pose.WithJointAngle(pose.StandingPose(), pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist, angle)
}

func curlJSON(t *testing.T, angle float64) string {
	t.Helper()
	data, err := json.Marshal(curlPose(angle))
	require.NoError(t, err)
	return string(data)
}
