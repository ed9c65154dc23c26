package compiler

import (
	"fmt"
	"math"
	"slices"

	"github.com/roach88/worldcal/internal/ir"
	"github.com/roach88/worldcal/internal/position"
)

// MaxSpan caps every cumulative span. Prefix sums and floor divisions on the
// tick axis stay far away from int64 overflow below it.
const MaxSpan int64 = math.MaxInt64 / 4

// KeyFor returns the cache key of a snapshot. Store snapshots carry a
// Version; other snapshots fall back to a content fingerprint.
func KeyFor(cal ir.Calendar) (Key, error) {
	if cal.Version > 0 {
		return VersionKey(cal.ID, cal.Version), nil
	}
	fp, err := ir.Fingerprint(cal)
	if err != nil {
		return Key{}, err
	}
	return Key{CalendarID: cal.ID, Marker: "sha256:" + fp[:16]}, nil
}

// VersionKey is the key of a calendar whose store version is known.
func VersionKey(id string, version int64) Key {
	return Key{CalendarID: id, Marker: fmt.Sprintf("v%d", version)}
}

// Compile validates a calendar snapshot and compiles it into an immutable
// Compiled calendar.
//
// The algorithm:
//  1. Validate units and relations (all errors collected)
//  2. Build the unit arena with relation edges in position order
//  3. DFS from every unit; a unit on its own ancestor path is a cycle
//  4. Pick the single top-level unit that has children
//  5. Compute spans bottom-up and the per-unit prefix-sum run tables
//  6. Group units by depth into coarsest-to-finest levels
//
// Compilation is pure and deterministic: relation Position alone decides
// child order.
func Compile(cal ir.Calendar) (*Compiled, error) {
	key, err := KeyFor(cal)
	if err != nil {
		return nil, err
	}

	cal = ir.Normalize(cal)

	if errs := Validate(cal); len(errs) > 0 {
		return nil, &CompileError{
			Code:    ErrCodeInvalidCalendar,
			Message: fmt.Sprintf("calendar has %d validation error(s)", len(errs)),
			Details: errs,
		}
	}

	c := &Compiled{
		key:           key,
		name:          cal.Name,
		origin:        cal.Origin,
		units:         make([]ir.Unit, len(cal.Units)),
		index:         make(map[ir.UnitID]Node, len(cal.Units)),
		root:          NoNode,
		depthOf:       make(map[ir.UnitID]int),
		presentations: slices.Clone(cal.Presentations),
	}
	for i, u := range cal.Units {
		if u.Format == "" {
			u.Format = ir.FormatNumeric
		}
		c.units[i] = u
		c.index[u.ID] = Node(i)
	}

	if len(c.units) == 0 {
		return c, nil
	}

	relations := slices.Clone(cal.Relations)
	position.Sort(relations)

	byParent := make([][]ir.ChildRelation, len(c.units))
	g := unitGraph{
		ids:      make([]string, len(c.units)),
		children: make([][]int, len(c.units)),
	}
	for i, u := range c.units {
		g.ids[i] = string(u.ID)
	}
	isChild := make([]bool, len(c.units))
	for _, r := range relations {
		p, ch := c.index[r.Parent], c.index[r.Child]
		byParent[p] = append(byParent[p], r)
		g.children[p] = append(g.children[p], int(ch))
		isChild[ch] = true
	}

	if _, err := checkAcyclic(g); err != nil {
		return nil, err
	}

	root, err := selectRoot(c.units, g, isChild)
	if err != nil {
		return nil, err
	}
	c.root = root

	if err := c.buildSpans(byParent); err != nil {
		return nil, err
	}
	c.buildLevels()

	return c, nil
}

// selectRoot picks the top-level unit. Units that are nobody's child and
// have children are root candidates; there must be exactly one. Without any
// relations the first unit is a single-unit calendar.
func selectRoot(units []ir.Unit, g unitGraph, isChild []bool) (Node, error) {
	var candidates []int
	for i := range units {
		if !isChild[i] && len(g.children[i]) > 0 {
			candidates = append(candidates, i)
		}
	}

	switch len(candidates) {
	case 0:
		// Acyclic with no parentless composite unit means no relations.
		return 0, nil
	case 1:
		return Node(candidates[0]), nil
	}

	details := make([]ValidationError, 0, len(candidates)-1)
	for _, i := range candidates[1:] {
		details = append(details, ValidationError{
			Field:   fmt.Sprintf("units[%d]", i),
			Message: fmt.Sprintf("unit %q is a second top-level unit (first is %q)", units[i].ID, units[candidates[0]].ID),
			Code:    ErrMultipleRoots,
		})
	}
	return NoNode, &CompileError{
		Code:    ErrCodeInvalidCalendar,
		Message: "calendar must have exactly one top-level unit",
		Details: details,
	}
}

// buildSpans computes every unit's span bottom-up and the run tables of
// composite units. The graph is known to be acyclic and shallow here.
func (c *Compiled) buildSpans(byParent [][]ir.ChildRelation) error {
	n := len(c.units)
	c.spans = make([]int64, n)
	c.runs = make([][]run, n)
	c.instances = make([]int64, n)
	done := make([]bool, n)

	var span func(u Node) error
	span = func(u Node) error {
		if done[u] {
			return nil
		}
		rels := byParent[u]
		if len(rels) == 0 {
			if c.units[u].Span > MaxSpan {
				return c.overflowError(u)
			}
			c.spans[u] = c.units[u].Span
			done[u] = true
			return nil
		}

		runs := make([]run, 0, len(rels))
		var total, slots int64
		for _, r := range rels {
			child := c.index[r.Child]
			if err := span(child); err != nil {
				return err
			}
			childSpan := c.spans[child]

			if r.Repeats > (MaxSpan-total)/childSpan {
				return c.overflowError(u)
			}

			runs = append(runs, run{
				relationID: r.ID,
				child:      child,
				first:      slots,
				count:      r.Repeats,
				offset:     total,
				span:       childSpan,
				label:      r.Label,
				shortLabel: r.ShortLabel,
			})
			total += r.Repeats * childSpan
			slots += r.Repeats
		}

		c.spans[u] = total
		c.runs[u] = runs
		c.instances[u] = slots
		done[u] = true
		return nil
	}

	for u := range c.units {
		if err := span(Node(u)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiled) overflowError(u Node) error {
	return &CompileError{
		Code:    ErrCodeInvalidCalendar,
		Message: "calendar spans overflow the tick axis",
		Details: []ValidationError{{
			Field:   fmt.Sprintf("units.%s", c.units[u].ID),
			Message: fmt.Sprintf("span of %q exceeds %d ticks", c.units[u].ID, MaxSpan),
			Code:    ErrSpanOverflow,
		}},
	}
}

// buildLevels walks the tree breadth-first from the root and records, per
// depth, the distinct units found there and their span range.
func (c *Compiled) buildLevels() {
	frontier := []Node{c.root}
	labeled := false

	for depth := 0; len(frontier) > 0; depth++ {
		level := Level{Depth: depth, MinSpan: math.MaxInt64, Labeled: labeled}
		var next []Node
		seen := make(map[Node]bool)
		labeled = false

		for _, n := range frontier {
			id := c.units[n].ID
			level.Units = append(level.Units, id)
			level.MinSpan = min(level.MinSpan, c.spans[n])
			level.MaxSpan = max(level.MaxSpan, c.spans[n])
			if _, ok := c.depthOf[id]; !ok {
				c.depthOf[id] = depth
			}

			for _, r := range c.runs[n] {
				if r.label != nil {
					labeled = true
				}
				if !seen[r.child] {
					seen[r.child] = true
					next = append(next, r.child)
				}
			}
		}

		c.levels = append(c.levels, level)
		frontier = next
	}
}
