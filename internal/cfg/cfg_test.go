package cfg

import "testing"

// diamond builds 0 -> {1,2} -> 3, the classic diamond CFG.
func diamond() *Graph {
	return New(4, [][]int{
		0: {1, 2},
		1: {3},
		2: {3},
		3: nil,
	})
}

func TestDiamondDominators(t *testing.T) {
	g := diamond()
	g.Analyze()

	cases := map[int]int{0: 0, 1: 0, 2: 0, 3: 0}
	for v, want := range cases {
		if got := g.ImmediateDominator(v); got != want {
			t.Fatalf("idom(%d) = %d, want %d", v, got, want)
		}
	}
}

func TestLinearChainDominators(t *testing.T) {
	g := New(4, [][]int{
		0: {1},
		1: {2},
		2: {3},
		3: nil,
	})
	g.Analyze()

	for v := 1; v < 4; v++ {
		if got, want := g.ImmediateDominator(v), v-1; got != want {
			t.Fatalf("idom(%d) = %d, want %d", v, got, want)
		}
	}
}

func TestDominatorTreeDepth(t *testing.T) {
	g := New(4, [][]int{
		0: {1},
		1: {2},
		2: {3},
		3: nil,
	})
	g.Analyze()

	for v, want := range map[int]int{0: 0, 1: 1, 2: 2, 3: 3} {
		if got := g.GetDominatorTreeDepth(v); got != want {
			t.Fatalf("depth(%d) = %d, want %d", v, got, want)
		}
	}
}

func TestDominatorIterStopsAtRoot(t *testing.T) {
	g := diamond()
	g.Analyze()

	chain := g.DominatorIter(3)
	if len(chain) != 2 || chain[0] != 3 || chain[1] != 0 {
		t.Fatalf("DominatorIter(3) = %v, want [3 0]", chain)
	}

	root := g.DominatorIter(0)
	if len(root) != 1 || root[0] != 0 {
		t.Fatalf("DominatorIter(0) = %v, want [0]", root)
	}
}

func TestUnreachableNodeExcludedFromPredecessors(t *testing.T) {
	g := New(3, [][]int{
		0: {1},
		1: nil,
		2: {0}, // node 2 is unreachable from 0, so this edge must not count
	})
	g.Analyze()

	if g.Reachable(2) {
		t.Fatalf("node 2 should be unreachable")
	}
	if g.BFSNumber(2) != MaxBFSNumber {
		t.Fatalf("unreachable node must carry the MaxBFSNumber sentinel")
	}
	for _, p := range g.Predecessors(0) {
		if p == 2 {
			t.Fatalf("predecessor list of 0 must exclude the unreachable node 2")
		}
	}
}

func TestPostOrder(t *testing.T) {
	g := diamond()
	g.Analyze()

	post := g.PostOrder()
	pos := make(map[int]int, len(post))
	for i, v := range post {
		pos[v] = i
	}

	if pos[3] >= pos[1] || pos[3] >= pos[2] {
		t.Fatalf("post-order %v must place 3 before its predecessors", post)
	}
	if pos[0] != len(post)-1 {
		t.Fatalf("post-order %v must place the root last", post)
	}
}

func TestBranchlessSingleNode(t *testing.T) {
	g := New(1, [][]int{0: nil})
	g.Analyze()

	if g.ImmediateDominator(0) != 0 {
		t.Fatalf("single-node graph must have idom(0) == 0")
	}
	if g.GetDominatorTreeDepth(0) != 0 {
		t.Fatalf("single-node graph must have depth(0) == 0")
	}
}
