package harness

import (
	"bytes"
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/roach88/downbeat/internal/config"
)

// Scenario is a scripted metronome session.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Config overrides config.Default().
	Config config.Config `yaml:"config"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one scripted operation.
type Step struct {
	// Action is one of the Step* constants.
	Action string `yaml:"action"`

	// Seconds of virtual time to advance (advance).
	Seconds float64 `yaml:"seconds,omitempty"`

	// BPM to set (set_tempo).
	BPM int `yaml:"bpm,omitempty"`

	// Delta to apply (nudge, meter).
	Delta int `yaml:"delta,omitempty"`
}

// Step actions.
const (
	StepStart    = "start"
	StepStop     = "stop"
	StepToggle   = "toggle"
	StepAdvance  = "advance"
	StepSetTempo = "set_tempo"
	StepNudge    = "nudge"
	StepMeter    = "meter"
	StepTap      = "tap"
)

// Assertion checks the trace or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected number of tones (tone_count).
	Count int `yaml:"count,omitempty"`

	// Beats are the expected fired beat indices (fire_order).
	Beats []int `yaml:"beats,omitempty"`

	// Times are the expected tone start times (tone_times).
	Times []float64 `yaml:"times,omitempty"`

	// BPM and BeatsPerMeasure are the expected final tempo (final_tempo).
	BPM             int `yaml:"bpm,omitempty"`
	BeatsPerMeasure int `yaml:"beats_per_measure,omitempty"`

	// Playing is the expected final playback state (final_playing).
	Playing *bool `yaml:"playing,omitempty"`
}

// Assertion types.
const (
	AssertToneCount    = "tone_count"
	AssertFireOrder    = "fire_order"
	AssertToneTimes    = "tone_times"
	AssertFinalTempo   = "final_tempo"
	AssertFinalPlaying = "final_playing"
)

// LoadScenario reads and parses a scenario file.
func LoadScenario(fs afero.Fs, path string) (*Scenario, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes a scenario. Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	s := Scenario{Config: config.Default()}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	s.Config.Clamp()

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if err := config.Validate(s.Config); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	switch step.Action {
	case StepStart, StepStop, StepToggle, StepTap:
	case StepAdvance:
		if step.Seconds <= 0 {
			return fmt.Errorf("steps[%d]: advance needs positive seconds", i)
		}
	case StepSetTempo:
		if step.BPM == 0 {
			return fmt.Errorf("steps[%d]: set_tempo needs bpm", i)
		}
	case StepNudge, StepMeter:
		if step.Delta == 0 {
			return fmt.Errorf("steps[%d]: %s needs a non-zero delta", i, step.Action)
		}
	case "":
		return fmt.Errorf("steps[%d]: action is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", i, step.Action)
	}
	return nil
}

func validateAssertion(i int, a Assertion) error {
	switch a.Type {
	case AssertToneCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", i)
		}
	case AssertFireOrder:
	case AssertToneTimes:
	case AssertFinalTempo:
		if a.BPM == 0 && a.BeatsPerMeasure == 0 {
			return fmt.Errorf("assertions[%d]: final_tempo needs bpm or beats_per_measure", i)
		}
	case AssertFinalPlaying:
		if a.Playing == nil {
			return fmt.Errorf("assertions[%d]: final_playing needs playing", i)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	return nil
}
