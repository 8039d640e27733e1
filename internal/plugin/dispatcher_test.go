package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/reptrack/internal/pose"
	"github.com/ayusman/reptrack/internal/repcount"
	"github.com/ayusman/reptrack/internal/session"
)

// recorderScript appends each request to events.log and reports success.
const recorderScript = `cat >> events.log
echo >> events.log
echo '{"success":true}'`

func readEvents(t *testing.T, path string) []Request {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var events []Request
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var req Request
		require.NoError(t, json.Unmarshal([]byte(line), &req))
		events = append(events, req)
	}
	return events
}

func TestDispatcher_SessionEvents(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "recorder", recorderScript, EventRep, EventTargetReached, EventSessionStopped)
	writePlugin(t, root, "silent", `echo '{"success":false,"error":"muted"}'`, EventRep)

	m := NewManager(root)
	require.NoError(t, m.Discover())

	catalog := repcount.NewCatalog()
	require.NoError(t, catalog.Register(&repcount.Exercise{
		ID:         "short_curl",
		Name:       "Short Curl",
		TargetReps: 2,
		Rule: &repcount.AngleRule{
			Joints:    []repcount.Joint{{A: pose.LeftShoulder, Vertex: pose.LeftElbow, C: pose.LeftWrist}},
			Enter:     50,
			Exit:      140,
			Direction: repcount.EnterBelow,
		},
	}))
	sessions := session.NewManager(catalog, nil)

	d := NewDispatcher(m, NewExecutor(5*time.Second), 0)
	d.Attach(sessions)

	s, err := sessions.Start("short_curl")
	require.NoError(t, err)
	for _, a := range []float64{170, 40, 150, 45, 160} {
		_, err := s.Feed(pose.WithJointAngle(pose.StandingPose(), pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist, a))
		require.NoError(t, err)
	}
	_, err = sessions.Stop(s.ID())
	require.NoError(t, err)

	d.Close()
	d.Close()
	assert.False(t, d.Dispatch(Request{Event: EventRep}), "closed dispatcher drops events")

	events := readEvents(t, filepath.Join(root, "recorder", "events.log"))
	require.Len(t, events, 4)
	assert.Equal(t, EventRep, events[0].Event)
	assert.Equal(t, 1, events[0].Reps)
	assert.Equal(t, EventRep, events[1].Event)
	assert.Equal(t, 2, events[1].Reps)
	assert.Equal(t, EventTargetReached, events[2].Event)
	assert.Equal(t, EventSessionStopped, events[3].Event)
	require.NotNil(t, events[3].Summary)
	assert.Equal(t, 2, events[3].Summary.Reps)
	assert.Equal(t, s.ID(), events[3].SessionID)
}

func TestDispatcher_QueueFull(t *testing.T) {
	d := &Dispatcher{queue: make(chan Request, 1)}

	assert.True(t, d.Dispatch(Request{Event: EventRep}))
	assert.False(t, d.Dispatch(Request{Event: EventRep}))
}

func TestDispatcher_IgnoresUncountedFrames(t *testing.T) {
	d := &Dispatcher{queue: make(chan Request, 4)}

	d.HandleFrame(nil, repcount.Snapshot{Reps: 3})
	assert.Len(t, d.queue, 0)
}
