package repcount

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultMinVisibility is the landmark confidence floor used when an
// exercise does not set its own.
const DefaultMinVisibility = 0.5

var idPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Exercise pairs a counting rule with its identity and goals.
type Exercise struct {
	ID            string
	Name          string
	Description   string
	Rule          Rule
	TargetReps    int
	MinVisibility float64
	Builtin       bool
}

func (e *Exercise) minVisibility() float64 {
	if e.MinVisibility <= 0 {
		return DefaultMinVisibility
	}
	return e.MinVisibility
}

// Validate checks identity fields and the rule.
func (e *Exercise) Validate() error {
	if !idPattern.MatchString(e.ID) {
		return fmt.Errorf("invalid exercise id %q: want lowercase letters, digits and underscores", e.ID)
	}
	if strings.TrimSpace(e.Name) == "" {
		return errors.New("exercise name is required")
	}
	if e.TargetReps < 0 {
		return fmt.Errorf("target reps must not be negative, got %d", e.TargetReps)
	}
	if e.MinVisibility < 0 || e.MinVisibility > 1 {
		return fmt.Errorf("min visibility must be within [0, 1], got %v", e.MinVisibility)
	}
	if e.Rule == nil {
		return errors.New("exercise rule is required")
	}
	return e.Rule.Validate()
}

// Definition is the serializable form of an angle-based exercise. Custom
// exercises are stored and exchanged in this form.
type Definition struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	TargetReps    int       `json:"target_reps,omitempty"`
	MinVisibility float64   `json:"min_visibility,omitempty"`
	Angle         AngleRule `json:"angle"`
}

// Exercise builds and validates the exercise described by d.
func (d Definition) Exercise() (*Exercise, error) {
	rule := d.Angle
	if rule.Aggregate == "" {
		rule.Aggregate = AggregateMean
	}
	ex := &Exercise{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		Rule:          &rule,
		TargetReps:    d.TargetReps,
		MinVisibility: d.MinVisibility,
	}
	if err := ex.Validate(); err != nil {
		return nil, err
	}
	return ex, nil
}

// Definition returns the serializable form of e. ok is false for exercises
// whose rule is not an angle rule.
func (e *Exercise) Definition() (Definition, bool) {
	rule, ok := e.Rule.(*AngleRule)
	if !ok {
		return Definition{}, false
	}
	return Definition{
		ID:            e.ID,
		Name:          e.Name,
		Description:   e.Description,
		TargetReps:    e.TargetReps,
		MinVisibility: e.MinVisibility,
		Angle:         *rule,
	}, true
}
