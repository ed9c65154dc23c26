package position

import (
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/worldcal/internal/ir"
)

func ptr(v int32) *int32 { return &v }

func TestAllocate(t *testing.T) {
	tests := []struct {
		name    string
		before  *int32
		after   *int32
		want    int32
		wantErr bool
	}{
		{name: "first sibling", want: 0},
		{name: "append", before: ptr(8), want: 10},
		{name: "prepend", after: ptr(0), want: -2},
		{name: "midpoint", before: ptr(2), after: ptr(10), want: 6},
		{name: "midpoint rounds down", before: ptr(2), after: ptr(5), want: 3},
		{name: "negative midpoint", before: ptr(-10), after: ptr(-4), want: -7},
		{name: "adjacent", before: ptr(2), after: ptr(3), wantErr: true},
		{name: "equal", before: ptr(4), after: ptr(4), wantErr: true},
		{name: "out of order", before: ptr(6), after: ptr(2), wantErr: true},
		{name: "append overflow", before: ptr(math.MaxInt32 - 1), wantErr: true},
		{name: "prepend overflow", after: ptr(math.MinInt32 + 1), wantErr: true},
		{name: "wide range no overflow", before: ptr(math.MinInt32), after: ptr(math.MaxInt32), want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Allocate(tt.before, tt.after)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrResequenceRequired)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResequence(t *testing.T) {
	assert.Equal(t, []int32{0, 2, 4, 6}, Resequence(4))
	assert.Empty(t, Resequence(0))
}

func TestInsertAt_Midpoint(t *testing.T) {
	pos, updated, reseq := InsertAt([]int32{0, 10, 20}, 1)

	assert.False(t, reseq)
	assert.Equal(t, int32(5), pos)
	assert.Equal(t, []int32{0, 5, 10, 20}, updated)
}

func TestInsertAt_EndsAndEmpty(t *testing.T) {
	pos, updated, _ := InsertAt(nil, 0)
	assert.Equal(t, int32(0), pos)
	assert.Equal(t, []int32{0}, updated)

	pos, updated, _ = InsertAt([]int32{0, 2}, 2)
	assert.Equal(t, int32(4), pos)
	assert.Equal(t, []int32{0, 2, 4}, updated)

	pos, updated, _ = InsertAt([]int32{0, 2}, 0)
	assert.Equal(t, int32(-2), pos)
	assert.Equal(t, []int32{-2, 0, 2}, updated)

	// Out-of-range indices clamp.
	_, updated, _ = InsertAt([]int32{0, 2}, 99)
	assert.Equal(t, []int32{0, 2, 4}, updated)
}

func TestInsertAt_GapExhaustedResequences(t *testing.T) {
	pos, updated, reseq := InsertAt([]int32{0, 1, 2}, 1)

	require.True(t, reseq)
	assert.Equal(t, int32(2), pos)
	assert.Equal(t, []int32{0, 2, 4, 6}, updated)
}

func TestMove(t *testing.T) {
	pos, updated, reseq := Move([]int32{0, 10, 20, 30}, 3, 0)

	assert.False(t, reseq)
	assert.Equal(t, int32(-2), pos)
	assert.Equal(t, []int32{-2, 0, 10, 20}, updated)

	_, updated, _ = Move([]int32{0, 10}, 5, 0)
	assert.Equal(t, []int32{0, 10}, updated, "invalid source index is a no-op")
}

// TestInsertAt_PreservesAuthoredOrder drives random insertions and checks
// that sorting by position always reproduces the authored order.
func TestInsertAt_PreservesAuthoredOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	type sibling struct {
		id  int
		pos int32
	}
	var authored []sibling
	resequences := 0

	for id := 0; id < 500; id++ {
		index := 0
		if len(authored) > 0 {
			// Bias towards the front so gaps exhaust and resequencing runs.
			index = rng.Intn(min(len(authored), 3) + 1)
		}

		positions := make([]int32, len(authored))
		for i, s := range authored {
			positions[i] = s.pos
		}

		_, updated, reseq := InsertAt(positions, index)
		if reseq {
			resequences++
		}

		authored = slices.Insert(authored, index, sibling{id: id})
		require.Len(t, updated, len(authored))
		for i := range authored {
			authored[i].pos = updated[i]
		}

		sorted := slices.Clone(authored)
		slices.SortStableFunc(sorted, func(a, b sibling) int { return int(a.pos) - int(b.pos) })
		for i := range sorted {
			require.Equal(t, authored[i].id, sorted[i].id, "order diverged after insert %d", id)
		}
		for i := 1; i < len(updated); i++ {
			require.Less(t, updated[i-1], updated[i], "positions must be strictly increasing")
		}
	}

	assert.Positive(t, resequences, "scenario should exercise resequencing")
}

func TestSort(t *testing.T) {
	rels := []ir.ChildRelation{
		{ID: "c", Parent: "year", Position: 4},
		{ID: "a", Parent: "month", Position: 2},
		{ID: "b", Parent: "year", Position: 0},
		{ID: "d", Parent: "year", Position: 4},
	}

	Sort(rels)

	ids := make([]string, len(rels))
	for i, r := range rels {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
}
