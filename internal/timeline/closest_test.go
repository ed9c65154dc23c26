package timeline

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClosest(t *testing.T) {
	anchors := []int64{-100, 0, 10, 20, 50}

	tests := []struct {
		name  string
		query int64
		want  int64
	}{
		{"exact", 10, 10},
		{"below all", -1000, -100},
		{"above all", 1000, 50},
		{"nearer lower", 13, 10},
		{"nearer upper", 17, 20},
		{"tie goes lower", 15, 10},
		{"tie across zero", -50, -100},
		{"between far", 36, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Closest(anchors, tt.query))
		})
	}
}

func TestClosest_SingleElement(t *testing.T) {
	assert.Equal(t, int64(42), Closest([]int64{42}, -9999))
	v, ok := ClosestOK([]int64{42}, 1e9)
	assert.True(t, ok)
	assert.Equal(t, int64(42), v)
}

func TestClosest_Empty(t *testing.T) {
	v, ok := ClosestOK(nil, 5)
	assert.False(t, ok)
	assert.Equal(t, int64(0), v)
	assert.Equal(t, int64(0), Closest(nil, 5))
}

func TestClosest_Extremes(t *testing.T) {
	anchors := []int64{math.MinInt64, math.MaxInt64}
	assert.Equal(t, int64(math.MinInt64), Closest(anchors, -1))
	assert.Equal(t, int64(math.MaxInt64), Closest(anchors, 1))
}

func TestClosest_Duplicates(t *testing.T) {
	assert.Equal(t, int64(5), Closest([]int64{5, 5, 5, 9}, 6))
}

func TestClosest_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for round := 0; round < 200; round++ {
		n := 1 + rng.Intn(50)
		anchors := make([]int64, n)
		for i := range anchors {
			anchors[i] = rng.Int63n(2000) - 1000
		}
		sort.Slice(anchors, func(i, j int) bool { return anchors[i] < anchors[j] })

		for k := 0; k < 20; k++ {
			q := rng.Int63n(2400) - 1200

			best := anchors[0]
			for _, a := range anchors[1:] {
				if abs(a-q) < abs(best-q) {
					best = a
				}
			}
			assert.Equal(t, best, Closest(anchors, q), "anchors=%v q=%d", anchors, q)
		}
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
