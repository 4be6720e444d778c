package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/withdef/internal/ir"
	"github.com/roach88/withdef/internal/withdef"
)

// Scenario defines one container run and what it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Index seeds the definition index the fetch backend reads from.
	Index []DefEntry `yaml:"index,omitempty"`

	// Steps drive the container, in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the final view.
	Assertions []Assertion `yaml:"assertions"`
}

// DefEntry describes a definition record, for the index or a direct put.
type DefEntry struct {
	Repo      string      `yaml:"repo"`
	Rev       string      `yaml:"rev"`
	Path      string      `yaml:"path"`
	Name      string      `yaml:"name,omitempty"`
	Kind      string      `yaml:"kind,omitempty"`
	File      string      `yaml:"file,omitempty"`
	StartLine int64       `yaml:"start_line,omitempty"`
	EndLine   int64       `yaml:"end_line,omitempty"`
	Doc       string      `yaml:"doc,omitempty"`
	Error     *ErrorEntry `yaml:"error,omitempty"`
}

// ErrorEntry is a record error.
type ErrorEntry struct {
	Status  int    `yaml:"status,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// Def converts the entry to a record.
func (e DefEntry) Def() ir.Def {
	d := ir.Def{
		Key:       ir.DefKey{Repo: e.Repo, Rev: e.Rev, Def: e.Path},
		Name:      e.Name,
		Kind:      e.Kind,
		File:      e.File,
		StartLine: e.StartLine,
		EndLine:   e.EndLine,
		DocHTML:   e.Doc,
	}
	if e.Error != nil {
		d.Error = &ir.DefError{Status: e.Error.Status, Message: e.Error.Message}
	}
	return d
}

// PropsEntry is the props a step passes to the container.
type PropsEntry struct {
	Repo  string         `yaml:"repo"`
	Rev   string         `yaml:"rev"`
	Def   string         `yaml:"def,omitempty"`
	Splat []string       `yaml:"splat,omitempty"`
	Extra map[string]any `yaml:"extra,omitempty"`
}

// Props converts the entry to container props. Params are only set when
// the entry has a splat.
func (p PropsEntry) Props() withdef.Props {
	props := withdef.Props{
		Repo:  p.Repo,
		Rev:   p.Rev,
		Def:   p.Def,
		Extra: p.Extra,
	}
	if p.Splat != nil {
		props.Params = &withdef.Params{Splat: p.Splat}
	}
	return props
}

// Step is one scenario action. Exactly one field must be set.
type Step struct {
	Props          *PropsEntry `yaml:"props,omitempty"`
	Put            *DefEntry   `yaml:"put,omitempty"`
	Highlight      string      `yaml:"highlight,omitempty"`
	ClearHighlight bool        `yaml:"clear_highlight,omitempty"`
	Fetch          bool        `yaml:"fetch,omitempty"`
	Unmount        bool        `yaml:"unmount,omitempty"`
}

// Kind names the action a step performs, or "" if none or several are set.
func (s Step) Kind() string {
	var kinds []string
	if s.Props != nil {
		kinds = append(kinds, "props")
	}
	if s.Put != nil {
		kinds = append(kinds, "put")
	}
	if s.Highlight != "" {
		kinds = append(kinds, "highlight")
	}
	if s.ClearHighlight {
		kinds = append(kinds, "clear_highlight")
	}
	if s.Fetch {
		kinds = append(kinds, "fetch")
	}
	if s.Unmount {
		kinds = append(kinds, "unmount")
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Assertion validates the trace or the final view.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected number of matching events.
	Count int `yaml:"count,omitempty"`

	// Def narrows fetch_count to want events for this def path.
	Def string `yaml:"def,omitempty"`

	// Outcome selects the fetch outcome counted by outcome_count.
	Outcome string `yaml:"outcome,omitempty"`

	// Kind, Title, Subtitle and Code are matched against the final view
	// when set.
	Kind     string `yaml:"kind,omitempty"`
	Title    string `yaml:"title,omitempty"`
	Subtitle string `yaml:"subtitle,omitempty"`
	Code     int    `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertFetchCount   = "fetch_count"
	AssertOutcomeCount = "outcome_count"
	AssertReportCount  = "report_count"
	AssertRenderCount  = "render_count"
	AssertView         = "view"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarioFiles returns the .yaml and .yml files under dir, sorted by
// path. A non-empty filter is a glob matched against the file name without
// its extension.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps must contain at least one step")
	}

	for i, e := range s.Index {
		if e.Repo == "" || e.Path == "" {
			return fmt.Errorf("index[%d]: repo and path are required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(step, i); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, i); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(step Step, index int) error {
	switch step.Kind() {
	case "":
		return fmt.Errorf("steps[%d]: exactly one of props, put, highlight, clear_highlight, fetch, unmount must be set", index)
	case "put":
		if step.Put.Repo == "" || step.Put.Path == "" {
			return fmt.Errorf("steps[%d]: put needs repo and path", index)
		}
	}
	return nil
}

func validateAssertion(a Assertion, index int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFetchCount, AssertReportCount, AssertRenderCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertOutcomeCount:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for outcome_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for outcome_count", index)
		}
	case AssertView:
		if a.Kind == "" && a.Title == "" && a.Subtitle == "" && a.Code == 0 {
			return fmt.Errorf("assertions[%d]: view needs at least one of kind, title, subtitle, code", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
