package suite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	s, err := Parse([]byte(`
suite: my-button
timeout: 30s
before:
  - navigate: /my-button/demo.html
beforeEach:
  - waitVisible: my-button
tests:
  - name: shows a label
    steps:
      - text: {selector: my-button, equals: Press me}
  - name: counts clicks
    steps:
      - click: my-button
      - input: {selector: "#name", value: Ada}
      - eval: "() => document.querySelector('my-button').clicks"
        expect: 1
      - sleep: 50ms
  - name: later
    skip: true
`))
	require.NoError(t, err)

	assert.Equal(t, "my-button", s.Name)
	assert.Equal(t, Duration(30*time.Second), s.Timeout)
	require.Len(t, s.Before, 1)
	assert.Equal(t, "/my-button/demo.html", s.Before[0].Navigate)
	require.Len(t, s.Tests, 3)

	steps := s.Tests[1].Steps
	require.Len(t, steps, 4)
	assert.Equal(t, "click", steps[0].Kind())
	assert.Equal(t, "input", steps[1].Kind())
	assert.Equal(t, "Ada", steps[1].Input.Value)
	assert.Equal(t, "eval", steps[2].Kind())
	require.NotNil(t, steps[2].Expect)
	assert.Equal(t, Duration(50*time.Millisecond), steps[3].Sleep)
	assert.True(t, s.Tests[2].Skip)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing name", "tests: []", "suite name is required"},
		{"unknown key", "suite: a\nretries: 3", "retries"},
		{"unknown step", "suite: a\ntests:\n  - name: x\n    steps:\n      - hover: b", "hover"},
		{"empty step", "suite: a\ntests:\n  - name: x\n    steps:\n      - {}", "no action"},
		{"two actions", "suite: a\ntests:\n  - name: x\n    steps:\n      - {click: b, navigate: /}", "more than one action"},
		{"expect without eval", "suite: a\ntests:\n  - name: x\n    steps:\n      - {click: b, expect: 1}", "expect is only valid with eval"},
		{"text without check", "suite: a\ntests:\n  - name: x\n    steps:\n      - text: {selector: b}", "one of equals or contains"},
		{"input without selector", "suite: a\ntests:\n  - name: x\n    steps:\n      - input: {value: b}", "selector is required"},
		{"unnamed test", "suite: a\ntests:\n  - steps: []", "test without a name"},
		{"duplicate test", "suite: a\ntests:\n  - name: x\n  - name: x", "duplicate test"},
		{"bad hook", "suite: a\nbefore:\n  - {}", "before step 1"},
		{"negative timeout", "suite: a\ntimeout: -1s", "negative timeout"},
		{"bad duration", "suite: a\ntimeout: soon", "decode suite"},
		{"bare timeout", "suite: a\ntimeout: 60000", "duration 60000 needs a unit"},
		{"bare sleep", "suite: a\ntests:\n  - name: x\n    steps:\n      - sleep: 100", "duration 100 needs a unit"},
		{"timeout list", "suite: a\ntimeout: [1s]", "duration must be a scalar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseTextEqualsEmpty(t *testing.T) {
	s, err := Parse([]byte("suite: a\ntests:\n  - name: x\n    steps:\n      - text: {selector: b, equals: \"\"}"))
	require.NoError(t, err)
	require.NotNil(t, s.Tests[0].Steps[0].Text.Equals)
	assert.Equal(t, "", *s.Tests[0].Steps[0].Text.Equals)
}

func TestRunContextURL(t *testing.T) {
	rc := RunContext{Address: "http://localhost:4000"}
	assert.Equal(t, "http://localhost:4000/a/b.html", rc.URL("/a/b.html"))
	assert.Equal(t, "http://localhost:4000/a/b.html", rc.URL("a/b.html"))
	assert.Equal(t, "https://example.com/", rc.URL("https://example.com/"))

	rc.Address = "http://localhost:4000/"
	assert.Equal(t, "http://localhost:4000/", rc.URL("/"))
}
