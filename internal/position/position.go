// Package position maintains a total order over sibling unit relations using
// sparse int32 keys.
//
// Inserting between two siblings picks the arithmetic midpoint of their
// positions. When the neighbours are adjacent there is no integer left
// between them; the caller then resequences every sibling to index*Gap and
// retries. Reordering is O(1) in the common case and O(n) only when a gap is
// exhausted.
package position

import (
	"errors"
	"math"
	"slices"

	"github.com/roach88/worldcal/internal/ir"
)

// Gap is the spacing between siblings after a resequencing pass.
const Gap int32 = 2

// ErrResequenceRequired reports that no integer position exists between the
// requested neighbours. It is never shown to users; InsertAt handles it by
// resequencing.
var ErrResequenceRequired = errors.New("position gap exhausted: resequence required")

// Allocate returns a position strictly between before and after.
//
//   - both nil: 0 (first sibling)
//   - only before: before + Gap (append)
//   - only after: after - Gap (prepend)
//   - both: the midpoint, if one exists
//
// Returns ErrResequenceRequired when the neighbours are adjacent, out of
// order, or the result would overflow int32.
func Allocate(before, after *int32) (int32, error) {
	switch {
	case before == nil && after == nil:
		return 0, nil
	case after == nil:
		next := int64(*before) + int64(Gap)
		if next > math.MaxInt32 {
			return 0, ErrResequenceRequired
		}
		return int32(next), nil
	case before == nil:
		prev := int64(*after) - int64(Gap)
		if prev < math.MinInt32 {
			return 0, ErrResequenceRequired
		}
		return int32(prev), nil
	}

	lo, hi := int64(*before), int64(*after)
	if hi-lo <= 1 {
		return 0, ErrResequenceRequired
	}
	return int32(lo + (hi-lo)/2), nil
}

// Resequence returns n uniformly spaced positions: index * Gap.
func Resequence(n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(i) * Gap
	}
	return out
}

// InsertAt allocates a position for a new sibling inserted at index within
// the ordered sibling positions. It returns the new position and the full
// list of positions, including the new one, in authored order.
//
// If the gap at index is exhausted, every sibling is resequenced to
// index*Gap first and resequenced is true; callers must persist the updated
// positions of all siblings in that case.
func InsertAt(positions []int32, index int) (pos int32, updated []int32, resequenced bool) {
	if index < 0 {
		index = 0
	}
	if index > len(positions) {
		index = len(positions)
	}

	pos, err := Allocate(neighbours(positions, index))
	if err != nil {
		// Resequence with a hole at index so the retry always succeeds.
		updated = Resequence(len(positions) + 1)
		return updated[index], updated, true
	}

	updated = make([]int32, 0, len(positions)+1)
	updated = append(updated, positions[:index]...)
	updated = append(updated, pos)
	updated = append(updated, positions[index:]...)
	return pos, updated, false
}

// Move relocates the sibling at index from so that it ends up at index to
// of the resulting order. It returns the new position of the moved sibling and the
// positions of all siblings in their new order.
func Move(positions []int32, from, to int) (pos int32, updated []int32, resequenced bool) {
	if from < 0 || from >= len(positions) {
		return 0, slices.Clone(positions), false
	}
	rest := slices.Delete(slices.Clone(positions), from, from+1)
	return InsertAt(rest, to)
}

func neighbours(positions []int32, index int) (before, after *int32) {
	if index > 0 {
		b := positions[index-1]
		before = &b
	}
	if index < len(positions) {
		a := positions[index]
		after = &a
	}
	return before, after
}

// Sort orders relations by (parent, position, id). The id tie-break keeps
// the order deterministic when two writers raced to the same position.
func Sort(relations []ir.ChildRelation) {
	slices.SortStableFunc(relations, func(a, b ir.ChildRelation) int {
		switch {
		case a.Parent != b.Parent:
			if a.Parent < b.Parent {
				return -1
			}
			return 1
		case a.Position != b.Position:
			if a.Position < b.Position {
				return -1
			}
			return 1
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
