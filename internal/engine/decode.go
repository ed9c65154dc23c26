package engine

import (
	"github.com/roach88/worldcal/internal/compiler"
	"github.com/roach88/worldcal/internal/ir"
)

// Entry is the decoded value of one level of a timestamp.
type Entry struct {
	Unit  ir.Unit
	Node  compiler.Node
	Depth int

	// Value is the zero-based instance index within the parent cycle. For
	// the root it is the number of whole root cycles since the origin and
	// may be negative.
	Value int64

	// Start is the absolute tick at which this instance begins.
	Start int64

	// Span is the tick length of this instance.
	Span int64

	Label      *string
	ShortLabel *string
}

// ParsedTime is the decomposition of one timestamp, coarsest level first.
type ParsedTime struct {
	Timestamp int64
	Entries   []Entry

	// Remainder is the offset into the finest instance. It is zero when
	// the leaf unit spans a single tick.
	Remainder int64

	compiled *compiler.Compiled
}

// IsEmpty reports whether the timestamp was decoded against an empty
// calendar.
func (p ParsedTime) IsEmpty() bool { return len(p.Entries) == 0 }

// Values returns the per-level values, coarsest first.
func (p ParsedTime) Values() []int64 {
	out := make([]int64, len(p.Entries))
	for i, e := range p.Entries {
		out[i] = e.Value
	}
	return out
}

// Lookup resolves the entry for a unit. An exact id match wins; otherwise
// the entry at the depth the unit occupies in the calendar is returned, so
// a binding on one month variant also renders its siblings.
func (p ParsedTime) Lookup(id ir.UnitID) (Entry, bool) {
	for _, e := range p.Entries {
		if e.Unit.ID == id {
			return e, true
		}
	}
	if p.compiled == nil {
		return Entry{}, false
	}
	d, ok := p.compiled.DepthOf(id)
	if !ok || d >= len(p.Entries) {
		return Entry{}, false
	}
	return p.Entries[d], true
}

// ParseTime decomposes timestamp t against c.
//
// The root value is floor((t-origin) / rootSpan) and the remainder is always
// non-negative, so times before the origin count root cycles downward
// (year -1, -2...) while every finer level still counts forward.
func ParseTime(c *compiler.Compiled, t int64) (ParsedTime, error) {
	if !ir.InBounds(t) {
		return ParsedTime{}, &RangeError{Timestamp: t, Origin: c.Origin()}
	}
	offset := t - c.Origin()
	if !ir.InBounds(offset) {
		return ParsedTime{}, &RangeError{Timestamp: t, Origin: c.Origin()}
	}

	p := ParsedTime{Timestamp: t, compiled: c}
	n, ok := c.RootNode()
	if !ok {
		return p, nil
	}

	span := c.SpanAt(n)
	value := floorDiv(offset, span)
	rem := offset - value*span
	start := c.Origin() + value*span

	p.Entries = make([]Entry, 0, c.Depth())
	p.Entries = append(p.Entries, Entry{
		Unit:  c.UnitAt(n),
		Node:  n,
		Value: value,
		Start: start,
		Span:  span,
	})

	for depth := 1; !c.IsLeaf(n); depth++ {
		inst := c.Locate(n, rem)
		n = inst.Node
		rem -= inst.Prefix
		start += inst.Prefix

		p.Entries = append(p.Entries, Entry{
			Unit:       c.UnitAt(n),
			Node:       n,
			Depth:      depth,
			Value:      inst.Index,
			Start:      start,
			Span:       c.SpanAt(n),
			Label:      inst.Label,
			ShortLabel: inst.ShortLabel,
		})
	}
	p.Remainder = rem

	return p, nil
}

// Reconstruct inverts ParseTime: root value × root span plus the prefix of
// every chosen instance plus the leaf remainder. The result is the
// origin-relative offset of the parsed timestamp.
func Reconstruct(c *compiler.Compiled, p ParsedTime) int64 {
	if len(p.Entries) == 0 {
		return 0
	}
	root := p.Entries[0]
	total := root.Value * root.Span
	for i := 1; i < len(p.Entries); i++ {
		prefix, _ := c.Prefix(p.Entries[i-1].Node, p.Entries[i].Value)
		total += prefix
	}
	return total + p.Remainder
}

// floorDiv divides rounding toward negative infinity. b must be positive.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}
