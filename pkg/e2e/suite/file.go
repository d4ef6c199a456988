package suite

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Suite is a named group of tests for one UI unit, loaded from a suite file.
//
// A suite file looks like:
//
//	suite: my-button
//	timeout: 30s
//	before:
//	  - navigate: /my-button/demo.html
//	tests:
//	  - name: shows a label
//	    steps:
//	      - waitVisible: my-button
//	      - text: {selector: my-button, equals: Press me}
//	  - name: reports clicks
//	    steps:
//	      - click: my-button
//	      - eval: "() => document.querySelector('my-button').clicks"
//	        expect: 1
type Suite struct {
	Name       string   `yaml:"suite"`
	Timeout    Duration `yaml:"timeout"`
	Before     []Step   `yaml:"before"`
	After      []Step   `yaml:"after"`
	BeforeEach []Step   `yaml:"beforeEach"`
	AfterEach  []Step   `yaml:"afterEach"`
	Tests      []Test   `yaml:"tests"`

	// File is the path the suite was loaded from.
	File string `yaml:"-"`
}

// Test is one test case of a suite.
type Test struct {
	Name  string `yaml:"name"`
	Skip  bool   `yaml:"skip"`
	Only  bool   `yaml:"only"`
	Steps []Step `yaml:"steps"`
}

// Step is a single browser action. Exactly one action field is set.
type Step struct {
	Navigate    string     `yaml:"navigate"`
	WaitVisible string     `yaml:"waitVisible"`
	Click       string     `yaml:"click"`
	Input       *InputStep `yaml:"input"`
	Text        *TextStep  `yaml:"text"`
	Eval        string     `yaml:"eval"`
	Expect      *yaml.Node `yaml:"expect"`
	Sleep       Duration   `yaml:"sleep"`
}

// InputStep types Value into the element matching Selector.
type InputStep struct {
	Selector string `yaml:"selector"`
	Value    string `yaml:"value"`
}

// TextStep checks the text of the element matching Selector.
type TextStep struct {
	Selector string  `yaml:"selector"`
	Equals   *string `yaml:"equals"`
	Contains string  `yaml:"contains"`
}

// Duration is a time.Duration written with a unit, as in "30s" or "500ms".
// Bare numbers are rejected instead of being read as nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	switch value.ShortTag() {
	case "!!int", "!!float":
		return fmt.Errorf("line %d: duration %s needs a unit, e.g. %sms", value.Line, value.Value, value.Value)
	}
	v, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(v)
	return nil
}

// ParseFile reads and validates a suite file.
func ParseFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.File = path
	return s, nil
}

// Parse decodes and validates a suite document. Unknown keys are errors.
func Parse(data []byte) (*Suite, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Suite
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode suite: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Suite) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("suite name is required")
	}
	if s.Timeout < 0 {
		return fmt.Errorf("suite %q: negative timeout", s.Name)
	}

	hooks := []struct {
		name  string
		steps []Step
	}{
		{"before", s.Before},
		{"after", s.After},
		{"beforeEach", s.BeforeEach},
		{"afterEach", s.AfterEach},
	}
	for _, h := range hooks {
		for i, st := range h.steps {
			if err := st.validate(); err != nil {
				return fmt.Errorf("suite %q: %s step %d: %w", s.Name, h.name, i+1, err)
			}
		}
	}

	seen := map[string]bool{}
	for _, t := range s.Tests {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("suite %q: test without a name", s.Name)
		}
		if seen[t.Name] {
			return fmt.Errorf("suite %q: duplicate test %q", s.Name, t.Name)
		}
		seen[t.Name] = true
		for i, st := range t.Steps {
			if err := st.validate(); err != nil {
				return fmt.Errorf("suite %q: test %q step %d: %w", s.Name, t.Name, i+1, err)
			}
		}
	}
	return nil
}

// Kind names the action a step performs.
func (st Step) Kind() string {
	var kinds []string
	if st.Navigate != "" {
		kinds = append(kinds, "navigate")
	}
	if st.WaitVisible != "" {
		kinds = append(kinds, "waitVisible")
	}
	if st.Click != "" {
		kinds = append(kinds, "click")
	}
	if st.Input != nil {
		kinds = append(kinds, "input")
	}
	if st.Text != nil {
		kinds = append(kinds, "text")
	}
	if st.Eval != "" {
		kinds = append(kinds, "eval")
	}
	if st.Sleep != 0 {
		kinds = append(kinds, "sleep")
	}
	return strings.Join(kinds, "+")
}

func (st Step) validate() error {
	kind := st.Kind()
	switch {
	case kind == "":
		return errors.New("no action")
	case strings.Contains(kind, "+"):
		return fmt.Errorf("more than one action: %s", kind)
	}
	if st.Expect != nil && kind != "eval" {
		return fmt.Errorf("expect is only valid with eval, not %s", kind)
	}
	switch kind {
	case "input":
		if st.Input.Selector == "" {
			return errors.New("input: selector is required")
		}
	case "text":
		if st.Text.Selector == "" {
			return errors.New("text: selector is required")
		}
		if st.Text.Equals == nil && st.Text.Contains == "" {
			return errors.New("text: one of equals or contains is required")
		}
	case "sleep":
		if st.Sleep < 0 {
			return errors.New("sleep: negative duration")
		}
	}
	return nil
}
