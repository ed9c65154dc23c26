package compiler

// MaxDepth bounds the unit tree depth. It is a backstop against runaway
// authored hierarchies in addition to the cycle check.
const MaxDepth = 32

// unitGraph is the arena form of a calendar's relation graph: units are
// dense indices and children are edges in position order. A child reached
// through several relations appears once per relation.
type unitGraph struct {
	ids      []string
	children [][]int
}

const (
	white uint8 = iota // not visited
	gray               // on the current DFS path
	black              // finished
)

// checkAcyclic performs a depth-first traversal from every unit, tracking the
// units on the current path. A unit that reappears on its own ancestor path
// is a cycle. It returns the height (levels including itself) of every unit.
//
// Shared subtrees (a Day under several month variants) are legal: a black
// node is reused, only a gray node closes a cycle.
func checkAcyclic(g unitGraph) ([]int, error) {
	n := len(g.ids)
	color := make([]uint8, n)
	height := make([]int, n)
	path := make([]int, 0, MaxDepth+1)

	var visit func(u int) error
	visit = func(u int) error {
		if len(path) >= MaxDepth {
			return newDepthError(g.names(append(path, u)))
		}

		color[u] = gray
		path = append(path, u)

		h := 1
		for _, v := range g.children[u] {
			switch color[v] {
			case gray:
				return newCycleError(g.cyclePath(path, v))
			case white:
				if err := visit(v); err != nil {
					return err
				}
			}
			h = max(h, height[v]+1)
		}

		path = path[:len(path)-1]
		color[u] = black
		height[u] = h

		if h > MaxDepth {
			return newDepthError(g.names(g.longestChain(u, height)))
		}
		return nil
	}

	for u := 0; u < n; u++ {
		if color[u] == white {
			if err := visit(u); err != nil {
				return nil, err
			}
		}
	}

	return height, nil
}

// cyclePath returns the cycle closed by revisiting v: the path suffix that
// starts at v, followed by v again.
func (g unitGraph) cyclePath(path []int, v int) []string {
	start := 0
	for i, u := range path {
		if u == v {
			start = i
			break
		}
	}
	cycle := append([]int{}, path[start:]...)
	cycle = append(cycle, v)
	return g.names(cycle)
}

// longestChain follows the tallest child from u down to a leaf.
func (g unitGraph) longestChain(u int, height []int) []int {
	chain := []int{u}
	for len(g.children[u]) > 0 && len(chain) <= MaxDepth+1 {
		next := g.children[u][0]
		for _, v := range g.children[u] {
			if height[v] > height[next] {
				next = v
			}
		}
		chain = append(chain, next)
		u = next
	}
	return chain
}

func (g unitGraph) names(idx []int) []string {
	out := make([]string, len(idx))
	for i, u := range idx {
		out[i] = g.ids[u]
	}
	return out
}
