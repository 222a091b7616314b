// Package simplecfg implements the Allen-Cocke "meet over all paths" dominator
// algorithm as a test oracle: for each node it computes the FULL set of
// dominators (not just the immediate one), via iterative intersection
// of predecessor dominator sets using intset.IntSet. It exists only to
// certify cfg.Graph's Cooper-Harvey-Kennedy immediate-dominator computation
// against an independent, textbook-simple implementation; it is never used
// on the production allocation path.
package simplecfg

import "github.com/rv64core/rv64core/internal/intset"

// SimpleCfg computes, for every reachable node, the set of all nodes that
// dominate it (including itself).
type SimpleCfg struct {
	n         int
	succ      [][]int
	preds     [][]int
	reachable []bool
	dom       []*intset.IntSet
}

// New builds a SimpleCfg for n nodes given each node's successor list, with
// the same shape contract as cfg.New.
func New(n int, succ [][]int) *SimpleCfg {
	s := &SimpleCfg{n: n, succ: make([][]int, n)}
	for i := 0; i < n; i++ {
		if i < len(succ) {
			s.succ[i] = append([]int(nil), succ[i]...)
		}
	}

	return s
}

// Analyze computes reachability from node 0 and then the dominator sets via
// the classic fixpoint: Dom(0) = {0}; Dom(v) = {v} U (intersection over
// predecessors p of Dom(p)), iterated until no set changes.
func (s *SimpleCfg) Analyze() {
	s.computeReachability()
	s.computePredecessors()

	s.dom = make([]*intset.IntSet, s.n)
	for v := 0; v < s.n; v++ {
		if !s.reachable[v] {
			continue
		}
		if v == 0 {
			d := intset.New(s.n)
			d.Add(0)
			s.dom[v] = d

			continue
		}
		// Initialize to the universe of all nodes; the fixpoint only
		// ever shrinks this set.
		s.dom[v] = intset.Full(s.n)
	}

	changed := true
	for changed {
		changed = false

		for v := 0; v < s.n; v++ {
			if !s.reachable[v] || v == 0 {
				continue
			}

			merged := intset.Full(s.n)
			for _, p := range s.preds[v] {
				if !s.reachable[p] {
					continue
				}
				merged.IntersectInPlace(s.dom[p])
			}
			merged.Add(v)

			if !intset.Equal(merged, s.dom[v]) {
				s.dom[v] = merged
				changed = true
			}
		}
	}
}

func (s *SimpleCfg) computeReachability() {
	s.reachable = make([]bool, s.n)
	if s.n == 0 {
		return
	}

	stack := []int{0}
	s.reachable[0] = true

	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, w := range s.succ[v] {
			if w < 0 || w >= s.n || s.reachable[w] {
				continue
			}
			s.reachable[w] = true
			stack = append(stack, w)
		}
	}
}

func (s *SimpleCfg) computePredecessors() {
	s.preds = make([][]int, s.n)
	for v := 0; v < s.n; v++ {
		if !s.reachable[v] {
			continue
		}
		for _, w := range s.succ[v] {
			if w < 0 || w >= s.n || !s.reachable[w] {
				continue
			}
			s.preds[w] = append(s.preds[w], v)
		}
	}
}

// Dominators returns the full set of nodes dominating v (including v
// itself). It returns nil for unreachable or out-of-range nodes.
func (s *SimpleCfg) Dominators(v int) *intset.IntSet {
	if v < 0 || v >= s.n {
		return nil
	}

	return s.dom[v]
}

// StrictDominators returns the set of nodes that strictly dominate v, i.e.
// Dominators(v) minus v itself.
func (s *SimpleCfg) StrictDominators(v int) *intset.IntSet {
	full := s.Dominators(v)
	if full == nil {
		return nil
	}

	out := intset.New(s.n)
	for _, d := range full.Slice() {
		if d != v {
			out.Add(d)
		}
	}

	return out
}

// ImmediateDominator recovers the single immediate dominator of v from its
// full dominator set: the strict dominator that is itself dominated by every
// other strict dominator (i.e. the one with the largest strict-dominator
// set). Returns v for the root or unreachable/out-of-range nodes.
func (s *SimpleCfg) ImmediateDominator(v int) int {
	strict := s.StrictDominators(v)
	if strict == nil || strict.Len() == 0 {
		return v
	}

	best := -1
	bestSize := -1
	for _, cand := range strict.Slice() {
		size := s.Dominators(cand).Len()
		if size > bestSize {
			bestSize = size
			best = cand
		}
	}

	return best
}

// Reachable reports whether v was reached from node 0.
func (s *SimpleCfg) Reachable(v int) bool {
	return v >= 0 && v < s.n && s.reachable[v]
}
