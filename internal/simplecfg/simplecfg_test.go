package simplecfg

import (
	"math/rand/v2"
	"testing"

	"github.com/rv64core/rv64core/internal/cfg"
)

func TestDiamondMatchesCfg(t *testing.T) {
	succ := [][]int{
		0: {1, 2},
		1: {3},
		2: {3},
		3: nil,
	}

	s := New(4, succ)
	s.Analyze()

	g := cfg.New(4, succ)
	g.Analyze()

	for v := 0; v < 4; v++ {
		if got, want := s.ImmediateDominator(v), g.ImmediateDominator(v); got != want {
			t.Fatalf("idom(%d): oracle=%d cfg=%d", v, got, want)
		}
	}
}

// randomCFG generates a CFG of n nodes with random successor counts roughly
// matching spec.md section 8 scenario 6: 0-3% terminal (no successors),
// 4-50% one successor, else two, with targets in [1, n).
func randomCFG(rng *rand.Rand, n int) [][]int {
	succ := make([][]int, n)
	for v := 0; v < n; v++ {
		roll := rng.Float64()

		var count int
		switch {
		case roll < 0.03:
			count = 0
		case roll < 0.50:
			count = 1
		default:
			count = 2
		}

		targets := make([]int, 0, count)
		for i := 0; i < count; i++ {
			if n <= 1 {
				break
			}
			targets = append(targets, 1+rng.IntN(n-1))
		}
		succ[v] = targets
	}

	return succ
}

func TestRandomCFGDominanceAgainstOracle(t *testing.T) {
	sizes := []int{20, 200, 2000}

	for _, n := range sizes {
		rng := rand.New(rand.NewPCG(1, uint64(n)))
		succ := randomCFG(rng, n)

		s := New(n, succ)
		s.Analyze()

		g := cfg.New(n, succ)
		g.Analyze()

		for v := 0; v < n; v++ {
			if !g.Reachable(v) {
				continue
			}
			if !s.Reachable(v) {
				t.Fatalf("n=%d: node %d reachable per cfg.Graph but not per oracle", n, v)
			}

			// The dominator-chain iterator from cfg.Graph must yield a
			// prefix of the oracle's full dominator set for v.
			chain := g.DominatorIter(v)
			dominators := s.Dominators(v)

			for _, d := range chain {
				if !dominators.Contains(d) {
					t.Fatalf("n=%d v=%d: dominator-chain node %d is not in the oracle's dominator set %v",
						n, v, d, dominators.Slice())
				}
			}

			if got, want := g.ImmediateDominator(v), s.ImmediateDominator(v); got != want {
				t.Fatalf("n=%d: idom(%d): cfg=%d oracle=%d", n, v, got, want)
			}
		}
	}
}
