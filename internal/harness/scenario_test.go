package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/worldcal/internal/timeline"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "clock_day.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "clock_day", scenario.Name)
	assert.Equal(t, "time", scenario.Presentation)
	assert.Equal(t, filepath.Join("testdata", "calendars", "clock.yaml"), scenario.Calendar)
	require.Len(t, scenario.Steps, 5)

	assert.Equal(t, OpFormat, scenario.Steps[0].Op)
	require.NotNil(t, scenario.Steps[0].Expect.Text)
	assert.Equal(t, "day 0 00:00", *scenario.Steps[0].Expect.Text)

	assert.Equal(t, map[string]int64{"day": 1, "hour": 1, "minute": 1}, scenario.Steps[2].Expect.Values)

	anchors := scenario.Steps[3]
	assert.Equal(t, -3, anchors.Scale)
	assert.Equal(t, map[int64]timeline.LabelSize{
		0:   timeline.LabelMedium,
		60:  timeline.LabelNone,
		120: timeline.LabelSmall,
	}, anchors.Expect.Sizes)
	assert.Equal(t, []Snap{{Query: 100, Want: 120}, {Query: 30, Want: 0}}, anchors.Expect.Snap)

	assert.Equal(t, int64(7), scenario.Steps[4].Stride)
	assert.Nil(t, scenario.Steps[4].Expect)
}

func TestLoadScenario_TemplateNameNotResolvedAsPath(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "gregorian_basics.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gregorian", scenario.Calendar)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "typo.yaml", `
name: typo
description: "Misspelled steps key"
calendar: gregorian
step:
  - op: format
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\ncalendar: gregorian\nsteps: [{op: format}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\ncalendar: gregorian\nsteps: [{op: format}]\n",
			wantErr: "description is required",
		},
		{
			name:    "missing calendar",
			content: "name: n\ndescription: d\nsteps: [{op: format}]\n",
			wantErr: "calendar is required",
		},
		{
			name:    "no steps",
			content: "name: n\ndescription: d\ncalendar: gregorian\nsteps: []\n",
			wantErr: "steps list is required",
		},
		{
			name:    "missing op",
			content: "name: n\ndescription: d\ncalendar: gregorian\nsteps: [{tick: 1}]\n",
			wantErr: "steps[0]: op is required",
		},
		{
			name:    "unknown op",
			content: "name: n\ndescription: d\ncalendar: gregorian\nsteps: [{op: zoom}]\n",
			wantErr: `unknown op "zoom"`,
		},
		{
			name:    "scale off the ladder",
			content: "name: n\ndescription: d\ncalendar: gregorian\nsteps: [{op: anchors, scale: 17}]\n",
			wantErr: "scale 17 is outside -3..16",
		},
		{
			name:    "roundtrip without stride",
			content: "name: n\ndescription: d\ncalendar: gregorian\nsteps: [{op: roundtrip, from: 0, to: 10}]\n",
			wantErr: "stride must be positive",
		},
		{
			name:    "roundtrip backwards",
			content: "name: n\ndescription: d\ncalendar: gregorian\nsteps: [{op: roundtrip, from: 10, to: 0, stride: 1}]\n",
			wantErr: "to must not be before from",
		},
		{
			name:    "roundtrip too long",
			content: "name: n\ndescription: d\ncalendar: gregorian\nsteps: [{op: roundtrip, from: 0, to: 1000000, stride: 1}]\n",
			wantErr: "roundtrip checks more than",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, t.TempDir(), "s.yaml", tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
