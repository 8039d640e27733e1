package testdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/reptrack/internal/repcount"
)

func replay(t *testing.T, name, exerciseID string) repcount.Snapshot {
	t.Helper()
	poses, err := LoadPoseSequence(name)
	require.NoError(t, err)

	ex, err := repcount.DefaultCatalog().Lookup(exerciseID)
	require.NoError(t, err)

	c := repcount.NewCounter(ex)
	var snap repcount.Snapshot
	for _, p := range poses {
		snap = c.Update(p)
	}
	return snap
}

func TestBicepCurlSequence(t *testing.T) {
	snap := replay(t, BicepCurlSequence, repcount.BicepCurl)
	assert.Equal(t, BicepCurlReps, snap.Reps)
	assert.Equal(t, BicepCurlSkipped, snap.Skipped)
	assert.Equal(t, 35, snap.Frames)
	assert.Equal(t, repcount.PhaseRelaxed, snap.Phase)
}

func TestSquatSequence(t *testing.T) {
	snap := replay(t, SquatSequence, repcount.Squat)
	assert.Equal(t, SquatReps, snap.Reps)
	assert.Equal(t, 0, snap.Skipped)
	assert.Equal(t, repcount.PhaseRelaxed, snap.Phase)
}

func TestLoadPoseSequence_Missing(t *testing.T) {
	_, err := LoadPoseSequence("deadlift.jsonl")
	assert.Error(t, err)
}
