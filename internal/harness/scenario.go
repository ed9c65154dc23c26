package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/worldcal/internal/loader"
	"github.com/roach88/worldcal/internal/timeline"
)

// Scenario is a conformance test against one calendar.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Calendar is a built-in template name or a template file path.
	// Relative paths are resolved against the scenario file's directory
	// by LoadScenario.
	Calendar string `yaml:"calendar"`

	// Presentation is the default for format steps. Empty selects the
	// calendar's first presentation.
	Presentation string `yaml:"presentation,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Step operations.
const (
	OpFormat    = "format"
	OpParse     = "parse"
	OpAnchors   = "anchors"
	OpRoundtrip = "roundtrip"
)

// MaxRoundtrip caps the timestamps a single roundtrip step may check.
const MaxRoundtrip = 100_000

// Step is one operation with its expected outcome.
type Step struct {
	Op string `yaml:"op"`

	// Tick is the timestamp for format and parse.
	Tick int64 `yaml:"tick,omitempty"`

	// Presentation overrides the scenario default for format.
	Presentation string `yaml:"presentation,omitempty"`

	// Scale is the ladder index for anchors.
	Scale int `yaml:"scale,omitempty"`

	// From and To bound anchors and roundtrip, both inclusive.
	From int64 `yaml:"from,omitempty"`
	To   int64 `yaml:"to,omitempty"`

	// Stride is the distance between roundtrip samples.
	Stride int64 `yaml:"stride,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect lists the checks for a step. Every field is optional; unset
// fields are not checked.
type Expect struct {
	// Text is the exact formatted string (format).
	Text *string `yaml:"text,omitempty"`

	// Values maps unit ids to zero-based values (parse). Subset match.
	Values map[string]int64 `yaml:"values,omitempty"`

	// Count is the exact number of anchors (anchors).
	Count *int `yaml:"count,omitempty"`

	// Sizes maps anchor timestamps to label tiers (anchors). Each listed
	// timestamp must be an anchor of that tier.
	Sizes map[int64]timeline.LabelSize `yaml:"sizes,omitempty"`

	// Snap checks the closest anchor to each query (anchors).
	Snap []Snap `yaml:"snap,omitempty"`

	// Error, when set, requires the step to fail with an error containing
	// this text.
	Error string `yaml:"error,omitempty"`
}

// Snap is one closest-anchor query.
type Snap struct {
	Query int64 `yaml:"query"`
	Want  int64 `yaml:"want"`
}

// LoadScenario reads a scenario YAML file. Unknown fields are rejected and
// a relative calendar path is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	scenario.Calendar = resolveCalendar(scenario.Calendar, filepath.Dir(path))

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolveCalendar(ref, baseDir string) string {
	if ref == "" || filepath.IsAbs(ref) || slices.Contains(loader.Templates(), ref) {
		return ref
	}
	return filepath.Join(baseDir, ref)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Calendar == "" {
		return fmt.Errorf("calendar is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step) error {
	switch step.Op {
	case OpFormat, OpParse:
	case OpAnchors:
		if _, ok := timeline.ScaleByIndex(step.Scale); !ok {
			return fmt.Errorf("steps[%d]: scale %d is outside %d..%d",
				index, step.Scale, timeline.MinScaleIndex, timeline.MaxScaleIndex)
		}
	case OpRoundtrip:
		if step.Stride <= 0 {
			return fmt.Errorf("steps[%d]: stride must be positive for roundtrip", index)
		}
		if step.To < step.From {
			return fmt.Errorf("steps[%d]: to must not be before from", index)
		}
		if (step.To-step.From)/step.Stride >= MaxRoundtrip {
			return fmt.Errorf("steps[%d]: roundtrip checks more than %d timestamps", index, MaxRoundtrip)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}
	return nil
}
