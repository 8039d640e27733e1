package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/reptrack/internal/app"
	"github.com/ayusman/reptrack/internal/pose"
	"github.com/ayusman/reptrack/internal/repcount"
	"github.com/ayusman/reptrack/internal/session"
	"github.com/ayusman/reptrack/internal/store"
)

const lateralRaise = `{
	"id": "lateral_raise",
	"name": "Lateral Raise",
	"target_reps": 12,
	"angle": {
		"joints": [{"a": 23, "vertex": 11, "c": 13}],
		"enter": 80,
		"exit": 30,
		"direction": "above"
	}
}`

// exerciseJSON mirrors exerciseResponse with the rule left undecoded.
type exerciseJSON struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	TargetReps int             `json:"target_reps"`
	Builtin    bool            `json:"builtin"`
	Rule       json.RawMessage `json:"rule"`
}

type fixture struct {
	router   *mux.Router
	store    *store.Store
	catalog  *repcount.Catalog
	sessions *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	catalog := repcount.DefaultCatalog()
	sessions := session.NewManager(catalog, nil)

	r := mux.NewRouter()
	NewExerciseHandler(catalog, st).Routes(r)
	NewSessionHandler(sessions, st, repcount.BicepCurl).Routes(r)
	NewWorkoutHandler(st).Routes(r)
	NewSettingsHandler(st, catalog).Routes(r)

	return &fixture{router: r, store: st, catalog: catalog, sessions: sessions}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

func curlJSON(t *testing.T, angle float64) string {
	t.Helper()
	p := pose.WithJointAngle(pose.StandingPose(), pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist, angle)
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return string(data)
}

func TestExerciseHandler_List(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/exercises", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Exercises []exerciseJSON `json:"exercises"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	require.Len(t, response.Exercises, len(repcount.Builtins()))
	for _, ex := range response.Exercises {
		assert.True(t, ex.Builtin, ex.ID)
		assert.NotEmpty(t, ex.Rule, ex.ID)
	}

	rec = f.do(t, http.MethodGet, "/api/exercises/"+repcount.Squat, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, repcount.Squat, decode[exerciseJSON](t, rec).ID)

	rec = f.do(t, http.MethodGet, "/api/exercises/handstand", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExerciseHandler_CreateDelete(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/exercises", lateralRaise)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[exerciseJSON](t, rec)
	assert.Equal(t, "lateral_raise", created.ID)
	assert.Equal(t, 12, created.TargetReps)
	assert.False(t, created.Builtin)
	assert.Contains(t, string(created.Rule), `"direction":"above"`)

	_, err := f.catalog.Lookup("lateral_raise")
	require.NoError(t, err)
	def, err := f.store.Exercises().GetByID("lateral_raise")
	require.NoError(t, err)
	assert.Equal(t, repcount.EnterAbove, def.Angle.Direction)

	rec = f.do(t, http.MethodPost, "/api/exercises", lateralRaise)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/exercises/lateral_raise", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err = f.store.Exercises().GetByID("lateral_raise")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	rec = f.do(t, http.MethodDelete, "/api/exercises/lateral_raise", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/exercises/"+repcount.BicepCurl, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestExerciseHandler_CreateInvalid(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"id":`},
		{"bad id", `{"id":"Bad Id","name":"x","angle":{"joints":[{"a":11,"vertex":13,"c":15}],"enter":50,"exit":140,"direction":"below"}}`},
		{"no joints", `{"id":"x","name":"x","angle":{"joints":[],"enter":50,"exit":140,"direction":"below"}}`},
		{"inverted thresholds", `{"id":"x","name":"x","angle":{"joints":[{"a":11,"vertex":13,"c":15}],"enter":140,"exit":50,"direction":"below"}}`},
		{"builtin id", `{"id":"squat","name":"Squat","angle":{"joints":[{"a":23,"vertex":25,"c":27}],"enter":90,"exit":160,"direction":"below"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/exercises", tt.body)
			assert.Contains(t, []int{http.StatusBadRequest, http.StatusConflict}, rec.Code)
			assert.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}

	defs, err := f.store.Exercises().List()
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestSessionHandler(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/sessions", `{"exercise":"handstand"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/sessions", `{"exercise":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, f.store.Settings().Set(store.SettingDefaultExercise, repcount.PushUp))
	rec = f.do(t, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	info := decode[session.Info](t, rec)
	assert.Equal(t, repcount.PushUp, info.Exercise, "stored default wins over the configured one")

	rec = f.do(t, http.MethodPost, "/api/sessions", `{"exercise":"bicep_curl"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	curl := decode[session.Info](t, rec)

	rec = f.do(t, http.MethodGet, "/api/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[listSessionsResponse](t, rec).Sessions, 2)

	// single pose body
	for _, angle := range []float64{170, 40} {
		rec = f.do(t, http.MethodPost, "/api/sessions/"+curl.ID+"/frames", curlJSON(t, angle))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	fr := decode[framesResponse](t, rec)
	require.Len(t, fr.Snapshots, 1)
	assert.Equal(t, repcount.PhaseContracted, fr.State.Phase)

	rec = f.do(t, http.MethodPost, "/api/sessions/"+curl.ID+"/restart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[repcount.Snapshot](t, rec)
	assert.Equal(t, repcount.PhaseRelaxed, snap.Phase)
	assert.Equal(t, 0, snap.Reps)
	assert.Equal(t, 0, snap.Frames)

	rec = f.do(t, http.MethodGet, "/api/sessions/"+curl.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[session.Info](t, rec).Active)

	rec = f.do(t, http.MethodDelete, "/api/sessions/"+curl.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, curl.ID, decode[session.Summary](t, rec).SessionID)

	for _, req := range []struct{ method, path string }{
		{http.MethodDelete, "/api/sessions/" + curl.ID},
		{http.MethodPost, "/api/sessions/" + curl.ID + "/restart"},
	} {
		rec = f.do(t, req.method, req.path, "")
		assert.Equal(t, http.StatusConflict, rec.Code, req.path)
	}
}

func TestSessionHandler_StoppedSessionExpires(t *testing.T) {
	f := newFixture(t)
	f.sessions.SetRetention(0)

	var recorded []string
	f.sessions.OnStop(func(sum session.Summary) {
		require.NoError(t, f.store.Workouts().Record(sum))
		recorded = append(recorded, sum.SessionID)
	})

	rec := f.do(t, http.MethodPost, "/api/sessions", `{"exercise":"squat"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	info := decode[session.Info](t, rec)

	rec = f.do(t, http.MethodDelete, "/api/sessions/"+info.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{info.ID}, recorded)

	rec = f.do(t, http.MethodGet, "/api/sessions/"+info.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/sessions", "")
	assert.Empty(t, decode[listSessionsResponse](t, rec).Sessions)

	// the workout row outlives the session
	rec = f.do(t, http.MethodGet, "/api/workouts/"+info.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionHandler_BadFrames(t *testing.T) {
	f := newFixture(t)
	s, err := f.sessions.Start(repcount.BicepCurl)
	require.NoError(t, err)
	path := "/api/sessions/" + s.ID() + "/frames"

	for _, body := range []string{"", "   ", "[1,2]", `{"landmarks": 5}`, "{"} {
		rec := f.do(t, http.MethodPost, path, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
	assert.Equal(t, 0, s.Snapshot().Frames)

	rec := f.do(t, http.MethodPost, "/api/sessions/missing/frames", curlJSON(t, 90))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkoutHandler(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, ex := range []string{repcount.Squat, repcount.Squat, repcount.PushUp} {
		require.NoError(t, f.store.Workouts().Create(&store.Workout{
			ID:         "w" + string(rune('1'+i)),
			Exercise:   ex,
			Reps:       5 + i,
			TargetReps: 10,
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			EndedAt:    base.Add(time.Duration(i)*time.Hour + time.Minute),
			DurationMs: 60000,
		}))
	}

	rec := f.do(t, http.MethodGet, "/api/workouts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[listWorkoutsResponse](t, rec).Workouts
	require.Len(t, all, 3)
	assert.Equal(t, "w3", all[0].ID, "newest first")

	rec = f.do(t, http.MethodGet, "/api/workouts?exercise=squat&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	squats := decode[listWorkoutsResponse](t, rec).Workouts
	require.Len(t, squats, 1)
	assert.Equal(t, "w2", squats[0].ID)

	rec = f.do(t, http.MethodGet, "/api/workouts?since=2026-03-01T09:30:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[listWorkoutsResponse](t, rec).Workouts, 1)

	for _, q := range []string{"limit=0", "limit=abc", "since=yesterday"} {
		rec = f.do(t, http.MethodGet, "/api/workouts?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	rec = f.do(t, http.MethodGet, "/api/workouts/totals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []store.ExerciseTotal{
		{Exercise: repcount.PushUp, Workouts: 1, Reps: 7},
		{Exercise: repcount.Squat, Workouts: 2, Reps: 11},
	}, decode[totalsResponse](t, rec).Totals)

	rec = f.do(t, http.MethodGet, "/api/workouts/w1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, decode[store.Workout](t, rec).Reps)

	rec = f.do(t, http.MethodDelete, "/api/workouts/w1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/workouts/w1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/workouts/w1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkoutHandler_Empty(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/workouts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"workouts":[]}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/workouts/totals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totals":[]}`, rec.Body.String())
}

func TestSettingsHandler(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())

	rec = f.do(t, http.MethodPut, "/api/settings", `{"default_exercise":"squat","units":"metric"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"default_exercise":"squat","units":"metric"}`, rec.Body.String())

	rec = f.do(t, http.MethodPut, "/api/settings", `{"default_exercise":"handstand"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, repcount.Squat, f.store.Settings().GetOr(store.SettingDefaultExercise, ""))

	rec = f.do(t, http.MethodPut, "/api/settings", `{"":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/settings", `[`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeTracker struct {
	sessions *session.Manager
	current  *session.Session
	startErr error
}

func (f *fakeTracker) StartTracking(exerciseID string) (*session.Session, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	if f.IsTracking() {
		return nil, app.ErrAlreadyTracking
	}
	s, err := f.sessions.Start(exerciseID)
	if err != nil {
		return nil, err
	}
	f.current = s
	return s, nil
}

func (f *fakeTracker) StopTracking() (session.Summary, error) {
	if !f.IsTracking() {
		return session.Summary{}, app.ErrNotTracking
	}
	return f.sessions.Stop(f.current.ID())
}

func (f *fakeTracker) IsTracking() bool { return f.current != nil && f.current.Active() }

func (f *fakeTracker) Session() *session.Session { return f.current }

func TestCameraHandler(t *testing.T) {
	f := newFixture(t)
	tracker := &fakeTracker{sessions: f.sessions}
	NewCameraHandler(tracker, NewSessionHandler(f.sessions, f.store, repcount.SitUp)).Routes(f.router)

	rec := f.do(t, http.MethodGet, "/api/camera", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tracking":false}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/camera/stop", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/camera/start", `{"exercise":"handstand"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/camera/start", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	status := decode[cameraStatusResponse](t, rec)
	assert.True(t, status.Tracking)
	require.NotNil(t, status.Session)
	assert.Equal(t, repcount.SitUp, status.Session.Exercise)

	rec = f.do(t, http.MethodPost, "/api/camera/start", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/camera/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, repcount.SitUp, decode[session.Summary](t, rec).Exercise)

	rec = f.do(t, http.MethodGet, "/api/camera", "")
	status = decode[cameraStatusResponse](t, rec)
	assert.False(t, status.Tracking)
	require.NotNil(t, status.Session)
	assert.False(t, status.Session.Active)

	tracker.startErr = errors.New("camera 0 not available")
	rec = f.do(t, http.MethodPost, "/api/camera/start", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
