package compiler

import (
	"sort"

	"github.com/roach88/worldcal/internal/ir"
)

// Node is the arena index of a unit inside a Compiled calendar.
type Node int32

// NoNode is returned when a calendar has no units.
const NoNode Node = -1

// Key identifies a compiled snapshot: calendar id plus last-modified marker.
type Key struct {
	CalendarID string `json:"calendar_id"`
	Marker     string `json:"marker"`
}

// String renders the key as "id@marker".
func (k Key) String() string {
	return k.CalendarID + "@" + k.Marker
}

// run is a compressed stretch of the per-unit prefix-sum table: count
// consecutive instances of one child contributed by one relation. Instance
// first+k starts offset+k*span ticks into the parent cycle.
type run struct {
	relationID string
	child      Node
	first      int64
	count      int64
	offset     int64
	span       int64
	label      *string
	shortLabel *string
}

// Instance is one child slot of a composite unit's cycle.
type Instance struct {
	// Node is the child unit occupying the slot.
	Node Node

	// Index is the zero-based slot number within the parent cycle.
	Index int64

	// Prefix is the number of ticks in the parent cycle before this slot.
	Prefix int64

	// RelationID is the authored relation that contributed the slot.
	RelationID string

	Label      *string
	ShortLabel *string
}

// Level describes every unit found at one depth below the root.
type Level struct {
	Depth   int         `json:"depth"`
	Units   []ir.UnitID `json:"units"`
	MinSpan int64       `json:"min_span"`
	MaxSpan int64       `json:"max_span"`

	// Labeled is true when at least one slot at this depth carries an
	// authored label.
	Labeled bool `json:"labeled"`
}

// Compiled is the derived, immutable form of a calendar snapshot: units in
// an arena with their spans, and per composite unit a prefix-sum table over
// its child slots.
//
// Thread-safety: a Compiled is never mutated after Compile returns and is
// safe to share across goroutines without locking.
type Compiled struct {
	key           Key
	name          string
	origin        int64
	units         []ir.Unit
	index         map[ir.UnitID]Node
	spans         []int64
	runs          [][]run
	instances     []int64
	root          Node
	levels        []Level
	depthOf       map[ir.UnitID]int
	presentations []ir.Presentation
}

// Key returns the cache key of the snapshot this was compiled from.
func (c *Compiled) Key() Key { return c.key }

// Name returns the calendar name.
func (c *Compiled) Name() string { return c.name }

// Origin returns the tick that corresponds to the calendar's zero.
func (c *Compiled) Origin() int64 { return c.origin }

// IsEmpty reports whether the calendar has no units.
func (c *Compiled) IsEmpty() bool { return c.root == NoNode }

// RootNode returns the top-level unit.
func (c *Compiled) RootNode() (Node, bool) {
	return c.root, c.root != NoNode
}

// Root returns the top-level unit.
func (c *Compiled) Root() (ir.Unit, bool) {
	if c.root == NoNode {
		return ir.Unit{}, false
	}
	return c.units[c.root], true
}

// UnitAt returns the unit stored at n.
func (c *Compiled) UnitAt(n Node) ir.Unit { return c.units[n] }

// SpanAt returns the span of one full cycle of the unit at n.
func (c *Compiled) SpanAt(n Node) int64 { return c.spans[n] }

// IsLeaf reports whether the unit at n has no children.
func (c *Compiled) IsLeaf(n Node) bool { return len(c.runs[n]) == 0 }

// Instances returns the number of child slots in one cycle of n.
func (c *Compiled) Instances(n Node) int64 { return c.instances[n] }

// Node resolves a unit id to its arena index.
func (c *Compiled) Node(id ir.UnitID) (Node, bool) {
	n, ok := c.index[id]
	return n, ok
}

// Unit returns the unit with the given id.
func (c *Compiled) Unit(id ir.UnitID) (ir.Unit, bool) {
	n, ok := c.index[id]
	if !ok {
		return ir.Unit{}, false
	}
	return c.units[n], true
}

// Span returns the span of the unit with the given id.
func (c *Compiled) Span(id ir.UnitID) (int64, bool) {
	n, ok := c.index[id]
	if !ok {
		return 0, false
	}
	return c.spans[n], true
}

// Depth returns the number of levels, root included.
func (c *Compiled) Depth() int { return len(c.levels) }

// Levels returns the levels ordered coarsest to finest.
// The returned slice must not be modified.
func (c *Compiled) Levels() []Level { return c.levels }

// DepthOf returns the shallowest depth at which a unit occurs in the tree.
// Units not reachable from the root are not found.
func (c *Compiled) DepthOf(id ir.UnitID) (int, bool) {
	d, ok := c.depthOf[id]
	return d, ok
}

// Presentations returns the presentations carried by the snapshot.
func (c *Compiled) Presentations() []ir.Presentation { return c.presentations }

// Presentation returns the presentation with the given id or name, or the
// first presentation when key is empty.
func (c *Compiled) Presentation(key string) (ir.Presentation, bool) {
	for _, p := range c.presentations {
		if key == "" || p.ID == key || p.Name == key {
			return p, true
		}
	}
	return ir.Presentation{}, false
}

// Locate finds the child slot of n that contains offset, where
// 0 <= offset < SpanAt(n). The run table is binary searched for the last
// run starting at or before offset, so unequal child spans cost O(log r).
func (c *Compiled) Locate(n Node, offset int64) Instance {
	runs := c.runs[n]
	i := sort.Search(len(runs), func(i int) bool { return runs[i].offset > offset }) - 1
	if i < 0 {
		i = 0
	}
	r := runs[i]

	k := (offset - r.offset) / r.span
	if k >= r.count {
		k = r.count - 1
	}
	return Instance{
		Node:       r.child,
		Index:      r.first + k,
		Prefix:     r.offset + k*r.span,
		RelationID: r.relationID,
		Label:      r.label,
		ShortLabel: r.shortLabel,
	}
}

// Prefix returns the number of ticks before slot index in one cycle of n.
func (c *Compiled) Prefix(n Node, index int64) (int64, bool) {
	if index < 0 || index >= c.instances[n] {
		return 0, false
	}
	runs := c.runs[n]
	i := sort.Search(len(runs), func(i int) bool { return runs[i].first > index }) - 1
	r := runs[i]
	return r.offset + (index-r.first)*r.span, true
}
