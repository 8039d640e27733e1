// Package testdata holds recorded pose sequences for tests.
package testdata

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/ayusman/reptrack/internal/pose"
)

//go:embed poses/*.jsonl
var posesFS embed.FS

// Recorded sequences and the outcome they produce.
const (
	// BicepCurlSequence holds three curls, one empty frame and one frame
	// with the wrist occluded.
	BicepCurlSequence = "bicep_curl.jsonl"
	BicepCurlReps     = 3
	BicepCurlSkipped  = 2

	// SquatSequence holds two squats tracked on both legs.
	SquatSequence = "squat.jsonl"
	SquatReps     = 2
)

// PoseSequence returns the raw JSON Lines of a recorded sequence.
func PoseSequence(name string) ([]byte, error) {
	data, err := posesFS.ReadFile("poses/" + name)
	if err != nil {
		return nil, fmt.Errorf("load pose sequence %s: %w", name, err)
	}
	return data, nil
}

// LoadPoseSequence decodes a recorded sequence. Nil entries are frames
// with nobody in view.
func LoadPoseSequence(name string) ([]*pose.Pose, error) {
	data, err := PoseSequence(name)
	if err != nil {
		return nil, err
	}
	poses, err := pose.ReadSequence(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode pose sequence %s: %w", name, err)
	}
	return poses, nil
}
