package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInBounds(t *testing.T) {
	assert.True(t, InBounds(0))
	assert.True(t, InBounds(TimestampBound))
	assert.True(t, InBounds(-TimestampBound))
	assert.False(t, InBounds(TimestampBound+1))
	assert.False(t, InBounds(-TimestampBound-1))
}

func TestUnitTitle(t *testing.T) {
	u := Unit{Name: "Month"}
	assert.Equal(t, "Month", u.Title())

	u.DisplayName = StringPtr("")
	assert.Equal(t, "Month", u.Title(), "empty display name falls back to name")

	u.DisplayName = StringPtr("Moon")
	assert.Equal(t, "Moon", u.Title())
}

func TestCalendarPresentationLookup(t *testing.T) {
	cal := Calendar{
		Presentations: []Presentation{
			{ID: "p1", Name: "full"},
			{ID: "p2", Name: "short"},
		},
	}

	p, ok := cal.Presentation("short")
	assert.True(t, ok)
	assert.Equal(t, "p2", p.ID)

	p, ok = cal.Presentation("p1")
	assert.True(t, ok)
	assert.Equal(t, "full", p.Name)

	_, ok = cal.Presentation("missing")
	assert.False(t, ok)

	def, ok := cal.DefaultPresentation()
	assert.True(t, ok)
	assert.Equal(t, "p1", def.ID)

	_, ok = Calendar{}.DefaultPresentation()
	assert.False(t, ok)
}
