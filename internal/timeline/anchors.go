package timeline

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/roach88/worldcal/internal/compiler"
	"github.com/roach88/worldcal/internal/engine"
)

// Tunables for level selection.
const (
	// MinGridPixels is the narrowest spacing at which a unit's boundaries
	// are still drawn as grid lines.
	MinGridPixels = 4

	// MinLabelPixels is the narrowest spacing between two labels of the
	// same level.
	MinLabelPixels = 60

	// MaxAnchors caps a single generation.
	MaxAnchors = 100_000

	// cancelCheckInterval is how many boundaries are walked between
	// context checks.
	cancelCheckInterval = 256
)

// ErrTooManyAnchors is returned when a range would produce more than
// MaxAnchors anchors at the requested scale.
var ErrTooManyAnchors = errors.New("anchor generation exceeds limit")

// LabelSize is the label tier assigned to an anchor.
type LabelSize uint8

const (
	LabelNone LabelSize = iota
	LabelSmall
	LabelMedium
	LabelLarge
)

var labelSizeNames = [...]string{"none", "small", "medium", "large"}

// String returns the lowercase tier name.
func (s LabelSize) String() string {
	if int(s) < len(labelSizeNames) {
		return labelSizeNames[s]
	}
	return fmt.Sprintf("LabelSize(%d)", s)
}

// MarshalText encodes the tier by name.
func (s LabelSize) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a tier name.
func (s *LabelSize) UnmarshalText(b []byte) error {
	for i, n := range labelSizeNames {
		if n == string(b) {
			*s = LabelSize(i)
			return nil
		}
	}
	return fmt.Errorf("unknown label size %q", b)
}

// Anchor is a grid point on the timeline.
type Anchor struct {
	Timestamp int64     `json:"timestamp" yaml:"timestamp"`
	Size      LabelSize `json:"size" yaml:"size"`
}

// Range is a visible timestamp window, both ends inclusive.
type Range struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// Alignment holds the boundary predicates that decide a label tier.
// Exact means the unit is at the start of its parent cycle (value 0).
// Subdivision means the unit is an authored label on a labeled level, or
// falls on the level's label step on an unlabeled one.
type Alignment struct {
	SmallSubdivision  bool
	SmallExact        bool
	MediumSubdivision bool
	MediumExact       bool
	LargeSubdivision  bool
}

// Classify promotes a boundary to the coarsest tier it satisfies.
func Classify(a Alignment) LabelSize {
	switch {
	case a.LargeSubdivision && a.MediumExact && a.SmallExact:
		return LabelLarge
	case a.MediumSubdivision && a.SmallExact:
		return LabelMedium
	case a.SmallSubdivision:
		return LabelSmall
	}
	return LabelNone
}

// Tier is one selected unit level with its label step. Step is 1 on
// labeled levels, where the authored labels alone pick the anchors.
type Tier struct {
	Depth   int   `json:"depth"`
	Step    int64 `json:"step"`
	Labeled bool  `json:"labeled"`
}

// Selection is the small/medium/large levels chosen for a scale. Medium
// and Large are nil when they would lie above the root.
type Selection struct {
	Small  Tier  `json:"small"`
	Medium *Tier `json:"medium,omitempty"`
	Large  *Tier `json:"large,omitempty"`
}

// SelectLevels picks the three unit levels nearest a scale. Small is the
// finest depth whose shortest unit is at least MinGridPixels wide; medium
// and large are the next two coarser depths. When no depth is wide enough
// the root is small.
func SelectLevels(c *compiler.Compiled, scale ScaleLevel) Selection {
	levels := c.Levels()
	tpp := scale.TimePerPixel()

	small := 0
	for d := len(levels) - 1; d >= 0; d-- {
		if float64(levels[d].MinSpan)/tpp >= MinGridPixels {
			small = d
			break
		}
	}

	tier := func(d int) Tier {
		l := levels[d]
		if l.Labeled {
			return Tier{Depth: d, Step: 1, Labeled: true}
		}
		return Tier{Depth: d, Step: labelStep(float64(l.MinSpan) / tpp)}
	}

	sel := Selection{Small: tier(small)}
	if small >= 1 {
		t := tier(small - 1)
		sel.Medium = &t
	}
	if small >= 2 {
		t := tier(small - 2)
		sel.Large = &t
	}
	return sel
}

var baseSteps = [...]int64{1, 2, 3, 5, 6, 10, 12, 15, 20, 25, 50}

// labelStep returns the smallest nice step whose width reaches
// MinLabelPixels, given the pixel width of one unit. Past 50 the steps
// continue as 1, 2, 2.5 and 5 times powers of ten.
func labelStep(unitPixels float64) int64 {
	if unitPixels <= 0 {
		return math.MaxInt64
	}
	for _, s := range baseSteps {
		if float64(s)*unitPixels >= MinLabelPixels {
			return s
		}
	}
	for mag := int64(100); mag < math.MaxInt64/10; mag *= 10 {
		for _, s := range [...]int64{mag, 2 * mag, 5 * mag / 2, 5 * mag} {
			if float64(s)*unitPixels >= MinLabelPixels {
				return s
			}
		}
	}
	return math.MaxInt64
}

func (t Tier) matches(e engine.Entry) bool {
	if t.Labeled {
		return e.Label != nil
	}
	return (e.Value+e.Unit.Base)%t.Step == 0
}

// GenerateAnchors walks every boundary of the small level inside r and
// returns one anchor per boundary, each classified by Classify.
//
// Generation checks ctx every 256 boundaries and returns ctx.Err() with no
// partial result once it is cancelled. An empty calendar or a range with
// To <= From yields no anchors.
func GenerateAnchors(ctx context.Context, c *compiler.Compiled, scale ScaleLevel, r Range) ([]Anchor, error) {
	if c.IsEmpty() || r.To <= r.From {
		return []Anchor{}, nil
	}

	sel := SelectLevels(c, scale)

	first, err := engine.ParseTime(c, r.From)
	if err != nil {
		return nil, fmt.Errorf("range start: %w", err)
	}
	if _, err := engine.ParseTime(c, r.To); err != nil {
		return nil, fmt.Errorf("range end: %w", err)
	}

	e := entryAt(first, sel.Small.Depth)
	ts := e.Start
	if ts < r.From {
		ts += e.Span
	}

	var anchors []Anchor
	for i := 0; ts <= r.To; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if i >= MaxAnchors {
			return nil, ErrTooManyAnchors
		}

		p, err := engine.ParseTime(c, ts)
		if err != nil {
			return nil, err
		}
		anchors = append(anchors, Anchor{Timestamp: ts, Size: Classify(align(sel, p))})
		ts += entryAt(p, sel.Small.Depth).Span
	}

	if anchors == nil {
		anchors = []Anchor{}
	}
	return anchors, nil
}

// entryAt returns the entry at depth d, or the finest entry when the
// decoded branch is shallower than d.
func entryAt(p engine.ParsedTime, d int) engine.Entry {
	if d >= len(p.Entries) {
		return p.Entries[len(p.Entries)-1]
	}
	return p.Entries[d]
}

func align(sel Selection, p engine.ParsedTime) Alignment {
	small := entryAt(p, sel.Small.Depth)
	a := Alignment{
		SmallSubdivision: sel.Small.matches(small),
		SmallExact:       small.Value == 0,
	}
	if sel.Medium != nil {
		m := entryAt(p, sel.Medium.Depth)
		a.MediumSubdivision = sel.Medium.matches(m)
		a.MediumExact = m.Value == 0
	}
	if sel.Large != nil {
		a.LargeSubdivision = sel.Large.matches(entryAt(p, sel.Large.Depth))
	}
	return a
}

// Timestamps extracts the anchor timestamps, preserving order.
func Timestamps(anchors []Anchor) []int64 {
	out := make([]int64, len(anchors))
	for i, a := range anchors {
		out[i] = a.Timestamp
	}
	return out
}
