package timeline

import "sort"

// Closest returns the element of sorted nearest to q, preferring the lower
// element on a tie. It returns 0 for an empty slice; use ClosestOK to tell
// that case apart.
func Closest(sorted []int64, q int64) int64 {
	v, _ := ClosestOK(sorted, q)
	return v
}

// ClosestOK is Closest with an explicit found flag. sorted must be in
// ascending order. It runs in O(log n).
func ClosestOK(sorted []int64, q int64) (int64, bool) {
	switch len(sorted) {
	case 0:
		return 0, false
	case 1:
		return sorted[0], true
	}

	i := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= q })
	switch i {
	case 0:
		return sorted[0], true
	case len(sorted):
		return sorted[len(sorted)-1], true
	}

	lo, hi := sorted[i-1], sorted[i]
	// Unsigned differences stay exact across the whole int64 range.
	if uint64(q)-uint64(lo) <= uint64(hi)-uint64(q) {
		return lo, true
	}
	return hi, true
}
