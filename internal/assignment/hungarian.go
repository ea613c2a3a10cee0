// Package assignment solves the one-to-one reference-to-candidate
// matching problem: minimum-cost bipartite matching over the
// admissibility graph, as spec.md §4.5 requires ("the implementer must
// use an algorithm that returns a globally optimal assignment").
package assignment

import (
	"math"
	"sort"
)

// infiniteCost marks a non-edge: a (reference, candidate) pair that
// failed tier admissibility can never be selected by the solver.
const infiniteCost = 1e9

// dummyCost is the cost of matching a reference or candidate to a
// padding slot, i.e. of leaving it unmatched. It sits strictly between
// the largest realistic admissible combined score (bounded well under
// 100) and infiniteCost, so the solver always prefers an admissible
// match over leaving a reference or candidate idle, and always prefers
// idling over a non-admissible pairing. Without this gap a naive
// min-cost formulation would treat "leave unmatched" (cost 0) as
// strictly better than any positive-cost admissible match, which is the
// opposite of what a recall-maximizing assignment must do.
const dummyCost = 1e6

// Edge is one admissible (reference, candidate) pair and its combined
// score (lower is better).
type Edge struct {
	RefIndex   int
	CandIndex  int
	RefID      string
	CandID     string
	Cost       float64
}

// Result is the solved assignment: RefToCand[i] is the matched candidate
// index for reference i, or -1 if reference i is unmatched.
type Result struct {
	RefToCand []int
}

// Solve computes the globally optimal one-to-one assignment over the
// admissibility graph described by edges. numRefs and numCandidates are
// the total counts on each side (including references/candidates with no
// admissible edge at all). Determinism is guaranteed by canonicalizing
// tie-breaking: edges are perturbed by an infinitesimal amount derived
// from their lexicographic rank on (Cost, CandID, RefID) before solving,
// so the unique optimum recovered by the solver always coincides with
// the specification's documented tie-break order among otherwise-equal
// assignments.
func Solve(numRefs, numCandidates int, edges []Edge) Result {
	n := numRefs
	if numCandidates > n {
		n = numCandidates
	}
	if n == 0 {
		return Result{RefToCand: []int{}}
	}

	cost := make([][]float64, n)
	for i := range cost {
		cost[i] = make([]float64, n)
		for j := range cost[i] {
			cost[i][j] = dummyCost // padding rows/cols: cost of staying unmatched
		}
	}
	for i := 0; i < numRefs; i++ {
		for j := 0; j < numCandidates; j++ {
			cost[i][j] = infiniteCost
		}
	}

	ranked := make([]Edge, len(edges))
	copy(ranked, edges)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Cost != ranked[j].Cost {
			return ranked[i].Cost < ranked[j].Cost
		}
		if ranked[i].CandID != ranked[j].CandID {
			return ranked[i].CandID < ranked[j].CandID
		}
		return ranked[i].RefID < ranked[j].RefID
	})

	epsilon := 1e-6 / float64(len(ranked)+1)
	for rank, e := range ranked {
		cost[e.RefIndex][e.CandIndex] = e.Cost + epsilon*float64(rank)
	}

	rowMatch := hungarianSolve(cost)

	result := Result{RefToCand: make([]int, numRefs)}
	for i := 0; i < numRefs; i++ {
		result.RefToCand[i] = -1
	}
	for i := 0; i < numRefs; i++ {
		j := rowMatch[i]
		if j < numCandidates && cost[i][j] < dummyCost {
			result.RefToCand[i] = j
		}
	}
	return result
}

// hungarianSolve implements the classic O(n^3) Kuhn-Munkres algorithm
// with row/column potentials on a square cost matrix, returning, for
// each row, the assigned column.
func hungarianSolve(cost [][]float64) []int {
	n := len(cost)
	const inf = math.MaxFloat64 / 2

	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1) // p[j] = row assigned to column j (1-indexed), 0 = none
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minV := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := 0; j <= n; j++ {
			minV[j] = inf
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minV[j] {
					minV[j] = cur
					way[j] = j0
				}
				if minV[j] < delta {
					delta = minV[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minV[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	rowMatch := make([]int, n)
	for j := 1; j <= n; j++ {
		if p[j] != 0 {
			rowMatch[p[j]-1] = j - 1
		}
	}
	return rowMatch
}
