package engine

import (
	"math/rand"
	"slices"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/worldcal/internal/compiler"
	"github.com/roach88/worldcal/internal/ir"
	"github.com/roach88/worldcal/internal/testutil"
)

func compileCal(t *testing.T, cal ir.Calendar) *compiler.Compiled {
	t.Helper()
	c, err := compiler.Compile(cal)
	require.NoError(t, err)
	return c
}

func TestParseTime_TickZero(t *testing.T) {
	c := compileCal(t, testutil.GregorianCalendar())

	p, err := ParseTime(c, 0)
	require.NoError(t, err)
	require.Len(t, p.Entries, 5)

	assert.Equal(t, []int64{0, 0, 0, 0, 0}, p.Values())
	assert.Equal(t, ir.UnitID("year"), p.Entries[0].Unit.ID)
	assert.Equal(t, ir.UnitID("month31"), p.Entries[1].Unit.ID)
	assert.Equal(t, "January", *p.Entries[1].Label)
	assert.Equal(t, ir.UnitID("minute"), p.Entries[4].Unit.ID)
	for i, e := range p.Entries {
		assert.Equal(t, i, e.Depth)
		assert.Equal(t, int64(0), e.Start)
	}
}

func TestParseTime_UnequalMonths(t *testing.T) {
	c := compileCal(t, testutil.GregorianCalendar())

	// March 1st, 13:45.
	ts := int64(59*1440 + 13*60 + 45)
	p, err := ParseTime(c, ts)
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 2, 0, 13, 45}, p.Values())
	assert.Equal(t, "March", *p.Entries[1].Label)
	assert.Equal(t, int64(59*1440), p.Entries[1].Start)
	assert.Equal(t, int64(31*1440), p.Entries[1].Span)
	assert.Equal(t, int64(59*1440+13*60), p.Entries[3].Start)
}

func TestParseTime_BeforeOrigin(t *testing.T) {
	c := compileCal(t, testutil.GregorianCalendar())

	p, err := ParseTime(c, -1)
	require.NoError(t, err)

	assert.Equal(t, []int64{-1, 11, 30, 23, 59}, p.Values())
	assert.Equal(t, int64(-365*1440), p.Entries[0].Start)
	assert.Equal(t, "December", *p.Entries[1].Label)
}

func TestParseTime_Origin(t *testing.T) {
	cal := testutil.ClockCalendar()
	cal.Origin = 600
	c := compileCal(t, cal)

	p, err := ParseTime(c, 600+61)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 1}, p.Values())
	assert.Equal(t, int64(600), p.Entries[0].Start)
	assert.Equal(t, int64(661), p.Entries[2].Start)
}

func TestParseTime_RangeExceeded(t *testing.T) {
	c := compileCal(t, testutil.ClockCalendar())

	_, err := ParseTime(c, ir.TimestampBound+1)
	require.Error(t, err)
	assert.True(t, IsRangeError(err))

	_, err = ParseTime(c, -ir.TimestampBound-1)
	assert.True(t, IsRangeError(err))

	_, err = ParseTime(c, ir.TimestampBound)
	assert.NoError(t, err)
}

func TestParseTime_RangeExceededAfterOrigin(t *testing.T) {
	cal := testutil.ClockCalendar()
	cal.Origin = -1000
	c := compileCal(t, cal)

	_, err := ParseTime(c, ir.TimestampBound)
	require.Error(t, err)
	assert.True(t, IsRangeError(err))
	assert.Contains(t, err.Error(), "origin -1000")
}

func TestParseTime_EmptyCalendar(t *testing.T) {
	c := compileCal(t, ir.Calendar{ID: "empty"})

	p, err := ParseTime(c, 12345)
	require.NoError(t, err)
	assert.True(t, p.IsEmpty())
	assert.Equal(t, int64(12345), p.Timestamp)
	assert.Equal(t, int64(0), Reconstruct(c, p))
}

func TestParseTime_LeafRemainder(t *testing.T) {
	// Hours are the finest unit; minutes inside an hour become remainder.
	cal := testutil.NewCalendar("coarse", "Coarse").
		Composite("day").
		Leaf("hour", 60).
		Child("day", "hour", 24).
		Build()
	c := compileCal(t, cal)

	p, err := ParseTime(c, 2*60+17)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 2}, p.Values())
	assert.Equal(t, int64(17), p.Remainder)
	assert.Equal(t, int64(2*60+17), Reconstruct(c, p))
}

func TestParseTime_RoundTrip(t *testing.T) {
	cals := []ir.Calendar{testutil.GregorianCalendar(), testutil.ClockCalendar()}
	rng := rand.New(rand.NewSource(42))

	for _, cal := range cals {
		cal.Origin = 1_000_003
		c := compileCal(t, cal)

		samples := []int64{0, 1, -1, cal.Origin, ir.TimestampBound, -ir.TimestampBound + cal.Origin}
		for i := 0; i < 2000; i++ {
			samples = append(samples, rng.Int63n(2_000_000_000_000)-1_000_000_000_000)
		}

		for _, ts := range samples {
			p, err := ParseTime(c, ts)
			require.NoError(t, err, "t=%d", ts)
			require.Equal(t, ts-cal.Origin, Reconstruct(c, p), "%s t=%d", cal.ID, ts)
		}
	}
}

func TestParseTime_Monotonic(t *testing.T) {
	c := compileCal(t, testutil.GregorianCalendar())
	rng := rand.New(rand.NewSource(99))

	ts := make([]int64, 3000)
	for i := range ts {
		ts[i] = rng.Int63n(40*525600) - 20*525600
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })

	prev, err := ParseTime(c, ts[0])
	require.NoError(t, err)
	for _, x := range ts[1:] {
		cur, err := ParseTime(c, x)
		require.NoError(t, err)
		require.LessOrEqual(t, slices.Compare(prev.Values(), cur.Values()), 0,
			"values must not decrease between %d and %d", prev.Timestamp, x)
		prev = cur
	}
}

func TestParsedTime_LookupFallsBackToDepth(t *testing.T) {
	c := compileCal(t, testutil.GregorianCalendar())

	p, err := ParseTime(c, 40*1440) // February 10th
	require.NoError(t, err)

	e, ok := p.Lookup("month28")
	require.True(t, ok)
	assert.Equal(t, "February", *e.Label)

	e, ok = p.Lookup("month31")
	require.True(t, ok, "variant unit resolves through its depth")
	assert.Equal(t, ir.UnitID("month28"), e.Unit.ID)

	_, ok = p.Lookup("ghost")
	assert.False(t, ok)
}

func TestFloorDiv(t *testing.T) {
	tests := []struct {
		a, b, want int64
	}{
		{7, 2, 3},
		{-7, 2, -4},
		{-8, 2, -4},
		{0, 5, 0},
		{-1, 1440, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, floorDiv(tt.a, tt.b), "%d/%d", tt.a, tt.b)
	}
}
