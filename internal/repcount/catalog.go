package repcount

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ayusman/reptrack/internal/pose"
)

var (
	// ErrUnknownExercise is returned when an exercise ID is not registered.
	ErrUnknownExercise = errors.New("unknown exercise")
	// ErrDuplicateExercise is returned when registering an ID twice.
	ErrDuplicateExercise = errors.New("exercise already registered")
	// ErrBuiltinExercise is returned when removing a built-in exercise.
	ErrBuiltinExercise = errors.New("built-in exercise cannot be removed")
)

// Catalog maps exercise IDs to exercises. It is safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	exercises map[string]*Exercise
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{exercises: make(map[string]*Exercise)}
}

// DefaultCatalog creates a catalog holding the built-in exercises.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, ex := range Builtins() {
		if err := c.Register(ex); err != nil {
			panic(fmt.Sprintf("builtin exercise %s: %v", ex.ID, err))
		}
	}
	return c
}

// Register validates ex and adds it to the catalog.
func (c *Catalog) Register(ex *Exercise) error {
	if ex == nil {
		return errors.New("nil exercise")
	}
	if err := ex.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.exercises[ex.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateExercise, ex.ID)
	}
	c.exercises[ex.ID] = ex
	return nil
}

// Remove deletes a custom exercise from the catalog.
func (c *Catalog) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ex, ok := c.exercises[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownExercise, id)
	}
	if ex.Builtin {
		return fmt.Errorf("%w: %s", ErrBuiltinExercise, id)
	}
	delete(c.exercises, id)
	return nil
}

// Lookup returns the exercise registered under id.
func (c *Catalog) Lookup(id string) (*Exercise, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ex, ok := c.exercises[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExercise, id)
	}
	return ex, nil
}

// List returns all exercises sorted by ID.
func (c *Catalog) List() []*Exercise {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list := make([]*Exercise, 0, len(c.exercises))
	for _, ex := range c.exercises {
		list = append(list, ex)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

// Built-in exercise IDs.
const (
	BicepCurl   = "bicep_curl"
	PushUp      = "push_up"
	SitUp       = "sit_up"
	PullUp      = "pull_up"
	Squat       = "squat"
	JumpingJack = "jumping_jack"
	DownwardDog = "downward_dog"
)

const defaultTargetReps = 10

var (
	leftArm  = Joint{A: pose.LeftShoulder, Vertex: pose.LeftElbow, C: pose.LeftWrist}
	rightArm = Joint{A: pose.RightShoulder, Vertex: pose.RightElbow, C: pose.RightWrist}
	leftLeg  = Joint{A: pose.LeftHip, Vertex: pose.LeftKnee, C: pose.LeftAnkle}
	rightLeg = Joint{A: pose.RightHip, Vertex: pose.RightKnee, C: pose.RightAnkle}
	leftHip  = Joint{A: pose.LeftShoulder, Vertex: pose.LeftHip, C: pose.LeftKnee}
)

// Builtins returns fresh copies of the built-in exercises.
func Builtins() []*Exercise {
	return []*Exercise{
		{
			ID:          BicepCurl,
			Name:        "Bicep Curl",
			Description: "Left elbow flexes below 50 degrees, rep counted when it extends past 140.",
			Rule: &AngleRule{
				Joints:    []Joint{leftArm},
				Aggregate: AggregateMean,
				Enter:     50,
				Exit:      140,
				Direction: EnterBelow,
			},
			TargetReps: defaultTargetReps,
			Builtin:    true,
		},
		{
			ID:          PushUp,
			Name:        "Push-up",
			Description: "Left elbow bends below 90 degrees, rep counted when the arm locks out past 160.",
			Rule: &AngleRule{
				Joints:    []Joint{leftArm},
				Aggregate: AggregateMean,
				Enter:     90,
				Exit:      160,
				Direction: EnterBelow,
			},
			TargetReps: defaultTargetReps,
			Builtin:    true,
		},
		{
			ID:          SitUp,
			Name:        "Sit-up",
			Description: "Shoulder-hip-knee angle closes below 60 degrees, rep counted when it opens past 120.",
			Rule: &AngleRule{
				Joints:    []Joint{leftHip},
				Aggregate: AggregateMean,
				Enter:     60,
				Exit:      120,
				Direction: EnterBelow,
			},
			TargetReps: defaultTargetReps,
			Builtin:    true,
		},
		{
			ID:          PullUp,
			Name:        "Pull-up",
			Description: "Mean elbow angle of both arms closes below 70 degrees at the top, rep counted at the 150 degree hang.",
			Rule: &AngleRule{
				Joints:    []Joint{leftArm, rightArm},
				Aggregate: AggregateMean,
				Enter:     70,
				Exit:      150,
				Direction: EnterBelow,
			},
			TargetReps: defaultTargetReps,
			Builtin:    true,
		},
		{
			ID:          Squat,
			Name:        "Squat",
			Description: "Mean knee angle drops below 90 degrees, rep counted when standing past 160.",
			Rule: &AngleRule{
				Joints:    []Joint{leftLeg, rightLeg},
				Aggregate: AggregateMean,
				Enter:     90,
				Exit:      160,
				Direction: EnterBelow,
			},
			TargetReps: defaultTargetReps,
			Builtin:    true,
		},
		{
			ID:          JumpingJack,
			Name:        "Jumping Jack",
			Description: "Arms above head with legs apart, rep counted on return to arms down with feet together.",
			Rule: &PoseRule{
				Required: []int{
					pose.LeftShoulder, pose.RightShoulder,
					pose.LeftWrist, pose.RightWrist,
					pose.LeftHip, pose.RightHip,
					pose.LeftAnkle, pose.RightAnkle,
				},
				Enter:     func(v View) bool { return armsAboveHead(v) && legsApart(v) },
				Exit:      func(v View) bool { return armsDown(v) && legsTogether(v) },
				Normalize: true,
			},
			TargetReps: defaultTargetReps,
			Builtin:    true,
		},
		{
			ID:          DownwardDog,
			Name:        "Downward Dog",
			Description: "Inverted-V hold with straight arms and legs, counted when the hold is released.",
			Rule: &PoseRule{
				Required: []int{
					pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist,
					pose.LeftHip, pose.LeftKnee, pose.LeftAnkle,
				},
				Enter: downwardDog,
			},
			TargetReps: 5,
			Builtin:    true,
		},
	}
}

// Jumping jack thresholds. Stance ratios are relative to hip width; the
// wrist clearance is in torso lengths.
const (
	legsApartRatio    = 1.5
	legsTogetherRatio = 1.25
	wristClearance    = 0.25
)

func armsAboveHead(v View) bool {
	return v.At(pose.LeftWrist).Y < v.At(pose.LeftShoulder).Y-wristClearance &&
		v.At(pose.RightWrist).Y < v.At(pose.RightShoulder).Y-wristClearance
}

func armsDown(v View) bool {
	return v.At(pose.LeftWrist).Y > v.At(pose.LeftShoulder).Y &&
		v.At(pose.RightWrist).Y > v.At(pose.RightShoulder).Y
}

func stance(v View) (hipWidth, ankleSpread float64) {
	hipWidth = math.Abs(v.At(pose.LeftHip).X - v.At(pose.RightHip).X)
	ankleSpread = math.Abs(v.At(pose.LeftAnkle).X - v.At(pose.RightAnkle).X)
	return hipWidth, ankleSpread
}

func legsApart(v View) bool {
	hips, ankles := stance(v)
	return ankles > hips*legsApartRatio
}

func legsTogether(v View) bool {
	hips, ankles := stance(v)
	return ankles < hips*legsTogetherRatio
}

func downwardDog(v View) bool {
	armsStraight := v.Angle(pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist) > 150
	legsStraight := v.Angle(pose.LeftHip, pose.LeftKnee, pose.LeftAnkle) > 150
	hipsFolded := v.Angle(pose.LeftShoulder, pose.LeftHip, pose.LeftKnee) < 110

	hip := v.At(pose.LeftHip)
	hipsHighest := hip.Y < v.At(pose.LeftWrist).Y && hip.Y < v.At(pose.LeftAnkle).Y

	return armsStraight && legsStraight && hipsFolded && hipsHighest
}
