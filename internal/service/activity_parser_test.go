package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoActivities = `Here are some activities.

Title: Leaf Lab
Description: Explore how leaves
capture light.
Materials:
- Fresh leaves
- Magnifying glass
Steps:
1. Collect three leaves
2. Inspect the veins
3.
Tips:
* Work near a window
Reflection Questions:
- Why are leaves green?

**Title:** Sun Tracker
Description: Track the sun.
Materials:
- Stick
Steps:
1. Plant the stick
Tips:
- Check hourly
Reflection Questions:
- What moved?`

func TestParseActivities(t *testing.T) {
	activities := ParseActivities(twoActivities)

	// the second activity has a single step and is discarded
	require.Len(t, activities, 1)
	a := activities[0]
	assert.Equal(t, "Leaf Lab", a.Title)
	assert.Equal(t, "Explore how leaves capture light.", a.Description)
	assert.Equal(t, []string{"Fresh leaves", "Magnifying glass"}, a.Materials)
	assert.Equal(t, []string{"Collect three leaves", "Inspect the veins"}, a.Steps)
	assert.Equal(t, []string{"Work near a window"}, a.Tips)
	assert.Equal(t, []string{"Why are leaves green?"}, a.Reflection)
}

func TestParseActivities_EmptyInput(t *testing.T) {
	assert.Empty(t, ParseActivities(""))
	assert.Empty(t, ParseActivities("Materials:\n- orphan item"))
}

func TestParseSuggestions(t *testing.T) {
	got := ParseSuggestions("1. Draw a mind map\n\n2.Sketch the cycle\n- Color code terms\nPlain line")
	assert.Equal(t, []string{"Draw a mind map", "Sketch the cycle", "Color code terms", "Plain line"}, got)
}

func TestListItem(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"1. Collect leaves", "Collect leaves"},
		{"12.  Press them flat. Let them dry.", "Press them flat. Let them dry."},
		{"1984 was a pivotal year. Orwell published his novel.", "1984 was a pivotal year. Orwell published his novel."},
		{"3D print a leaf model", "3D print a leaf model"},
		{"- Magnifying glass", "Magnifying glass"},
		{"* Tape", "Tape"},
		{"3.", ""},
		{"-", ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, listItem(tt.line))
		})
	}
}
