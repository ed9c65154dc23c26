package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/worldcal/internal/compiler"
	"github.com/roach88/worldcal/internal/engine"
	"github.com/roach88/worldcal/internal/ir"
)

const day = 24 * 60

func compileTemplate(t *testing.T, name string) *compiler.Compiled {
	t.Helper()

	cal, err := Template(name)
	require.NoError(t, err)
	c, err := compiler.Compile(cal)
	require.NoError(t, err)
	return c
}

func formatAt(t *testing.T, c *compiler.Compiled, presentation string, tick int64) string {
	t.Helper()

	p, err := engine.ParseTime(c, tick)
	require.NoError(t, err)
	pres, ok := c.Presentation(presentation)
	require.True(t, ok, "presentation %q", presentation)
	return engine.Format(p, pres)
}

func rootSpan(t *testing.T, c *compiler.Compiled) int64 {
	t.Helper()

	n, ok := c.RootNode()
	require.True(t, ok)
	return c.SpanAt(n)
}

func TestTemplates_Listed(t *testing.T) {
	assert.Equal(t, []string{"darian", "golarion", "gregorian", "quadrum"}, Templates())
}

func TestTemplates_TickZero(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"gregorian", "00:00 January 01, 2026"},
		{"darian", "00:00 01 Sagittarius 0000"},
		{"golarion", "00:00 Abadius 01, 4726"},
		{"quadrum", "00:00 Aprimay 01, 5500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := compileTemplate(t, tt.name)
			assert.Equal(t, tt.want, formatAt(t, c, "", 0))
		})
	}
}

func TestTemplates_YearSpans(t *testing.T) {
	tests := []struct {
		name string
		days int64
	}{
		{"gregorian", 365},
		{"darian", 668},
		{"golarion", 365},
		{"quadrum", 364},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := compileTemplate(t, tt.name)
			assert.Equal(t, tt.days*day, rootSpan(t, c))
		})
	}
}

func TestGregorian_Presentations(t *testing.T) {
	c := compileTemplate(t, "gregorian")

	// 1 March 2026, 13:05.
	tick := int64(31+28)*day + 13*60 + 5
	assert.Equal(t, "13:05 March 01, 2026", formatAt(t, c, "long", tick))
	assert.Equal(t, "2026-Mar 01T13:05", formatAt(t, c, "iso", tick))

	// Last minute before the origin belongs to the previous year.
	assert.Equal(t, "23:59 December 31, 2025", formatAt(t, c, "long", -1))
}

func TestDarian_ShortMonths(t *testing.T) {
	c := compileTemplate(t, "darian")

	// Kumbha is the sixth month and has 27 sols; Pisces follows it.
	kumbha := int64(5*28) * day
	assert.Equal(t, "00:00 01 Kumbha 0000", formatAt(t, c, "long", kumbha))
	assert.Equal(t, "00:00 27 Kumbha 0000", formatAt(t, c, "long", kumbha+26*day))
	assert.Equal(t, "00:00 01 Pisces 0000", formatAt(t, c, "long", kumbha+27*day))
}

func TestGolarion_DisplayName(t *testing.T) {
	c := compileTemplate(t, "golarion")

	year, ok := c.Unit("year")
	require.True(t, ok)
	assert.Equal(t, "Year (AR)", year.Title())
	assert.Equal(t, "00:00 Calistril 01, 4726", formatAt(t, c, "long", 31*day))
}

func TestQuadrum_Seasons(t *testing.T) {
	c := compileTemplate(t, "quadrum")

	levels := c.Levels()
	require.Len(t, levels, 6)
	assert.Len(t, levels[1].Units, 4)
	assert.ElementsMatch(t, []ir.UnitID{"month45", "quarterday"}, levels[2].Units)

	// Day 90 of the year is Vernal's Quarterday.
	assert.Equal(t, "00:00 Quarterday 01, 5500", formatAt(t, c, "long", 90*day))
	assert.Equal(t, "00:00 Augustide 01, 5500", formatAt(t, c, "long", 91*day))
	assert.Equal(t, "day 01 of Augustide, Estival 5500", formatAt(t, c, "seasonal", 91*day))
}

func TestTemplate_RelationIDsAndPositions(t *testing.T) {
	cal, err := Template("gregorian")
	require.NoError(t, err)

	assert.Equal(t, "gregorian", cal.ID)
	first := cal.Relations[0]
	assert.Equal(t, "year-0", first.ID)
	assert.Equal(t, int32(0), first.Position)
	assert.Equal(t, "year-11", cal.Relations[11].ID)
	assert.Equal(t, int32(22), cal.Relations[11].Position)
	assert.Equal(t, "month31-0", cal.Relations[12].ID)

	pres, ok := cal.DefaultPresentation()
	require.True(t, ok)
	assert.Equal(t, "long", pres.ID)
}

func TestTemplate_Unknown(t *testing.T) {
	_, err := Template("julian")
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeNotFound, le.Code)
	assert.Contains(t, le.Message, "gregorian")
}

func TestLoadFile_YAML(t *testing.T) {
	cal, err := LoadFile(filepath.Join("testdata", "watch.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "watch", cal.ID)
	assert.Equal(t, "Ship's Watch", cal.Name)
	assert.Equal(t, int64(120), cal.Origin)
	assert.Equal(t, ir.FormatNumeric, cal.Units[0].Format)
	assert.Equal(t, int64(1), cal.Relations[0].Repeats)

	c, err := compiler.Compile(cal)
	require.NoError(t, err)
	assert.Equal(t, int64(day), rootSpan(t, c))

	assert.Equal(t, "Middle watch, glass 01", formatAt(t, c, "log", 120))
	assert.Equal(t, "Morning watch, glass 04", formatAt(t, c, "log", 120+240+15))
	assert.Equal(t, "First watch, glass 25", formatAt(t, c, "log", 0))
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "nope.cue"))

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeNotFound, le.Code)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load("calendar.toml", []byte("name = 'x'"))

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeUnsupported, le.Code)
}

func TestLoadFile_SchemaViolationHasPosition(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "bad_repeats.cue"))
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeSchema, le.Code)
	assert.True(t, le.Pos.IsValid())
	assert.Contains(t, le.Message, "repeats")
}

func TestLoadFile_SyntaxError(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "bad_syntax.cue"))

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeParseFailed, le.Code)
	assert.True(t, le.Pos.IsValid())
}

func TestLoadFile_UnknownFieldRejected(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "unknown_field.yaml"))

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeSchema, le.Code)
}

func TestLoad_PadBoundMatchesCompiler(t *testing.T) {
	src := func(pad int) []byte {
		return []byte(fmt.Sprintf(`
name: "Ticker"
units: [{id: "tick", name: "Tick", format: "padded", pad: %d, span: 1}]
`, pad))
	}

	cal, err := Load("ticker.cue", src(compiler.MaxPad))
	require.NoError(t, err)
	_, err = compiler.Compile(cal)
	require.NoError(t, err)

	_, err = Load("ticker.cue", src(compiler.MaxPad+1))
	var le *LoadError
	require.True(t, errors.As(err, &le), "%v", err)
	assert.Equal(t, ErrCodeSchema, le.Code)
	assert.Contains(t, le.Message, "pad")
}

func TestLoad_NormalizesLabels(t *testing.T) {
	// Decomposed "e" + combining acute accent.
	src := []byte(`
name: "Republican"
units: [
	{id: "year", name: "Year"},
	{id: "month", name: "Month", span: 43200},
]
relations: [{parent: "year", child: "month", label: "Flore` + "\u0301" + `al"}]
`)
	cal, err := Load("republican.cue", src)
	require.NoError(t, err)
	require.Len(t, cal.Relations, 1)
	assert.Equal(t, "Flor\u00e9al", *cal.Relations[0].Label)
}

func TestResolve(t *testing.T) {
	cal, err := Resolve("darian")
	require.NoError(t, err)
	assert.Equal(t, "Darian", cal.Name)

	cal, err = Resolve(filepath.Join("testdata", "watch.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "watch", cal.ID)
}
