package model

import (
	"math/rand"
	"sort"
)

// Node is one node of a decision tree. Leaves carry the positive-class
// fraction of the training rows that reached them.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      *Node   `json:"left,omitempty"`
	Right     *Node   `json:"right,omitempty"`
	Leaf      bool    `json:"leaf"`
	Positive  float64 `json:"positive"`
}

// Tree is a single CART classifier limited to MaxDepth.
type Tree struct {
	Root *Node `json:"root"`
}

// PredictProba returns the positive-class probability for one sample.
func (t *Tree) PredictProba(x []float64) float64 {
	n := t.Root
	for !n.Leaf {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Positive
}

// growTree fits a tree on the rows indexed by idx. At each split a
// random subset of sqrt(d) features is considered, drawn from rng.
func growTree(x [][]float64, y []int, idx []int, maxDepth, minSplit, mtry int, rng *rand.Rand) *Node {
	pos := 0
	for _, i := range idx {
		pos += y[i]
	}
	frac := float64(pos) / float64(len(idx))

	if maxDepth == 0 || len(idx) < minSplit || pos == 0 || pos == len(idx) {
		return &Node{Leaf: true, Positive: frac}
	}

	feature, threshold, ok := bestSplit(x, y, idx, mtry, rng)
	if !ok {
		return &Node{Leaf: true, Positive: frac}
	}

	var left, right []int
	for _, i := range idx {
		if x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &Node{Leaf: true, Positive: frac}
	}

	return &Node{
		Feature:   feature,
		Threshold: threshold,
		Left:      growTree(x, y, left, maxDepth-1, minSplit, mtry, rng),
		Right:     growTree(x, y, right, maxDepth-1, minSplit, mtry, rng),
	}
}

// bestSplit scans a random feature subset for the threshold with the
// lowest weighted gini impurity. Candidate thresholds are midpoints
// between consecutive distinct values.
func bestSplit(x [][]float64, y []int, idx []int, mtry int, rng *rand.Rand) (feature int, threshold float64, ok bool) {
	d := len(x[idx[0]])
	features := rng.Perm(d)[:mtry]
	sort.Ints(features)

	best := 1.0
	values := make([]float64, 0, len(idx))

	for _, f := range features {
		values = values[:0]
		for _, i := range idx {
			values = append(values, x[i][f])
		}
		sort.Float64s(values)

		for v := 1; v < len(values); v++ {
			if values[v] == values[v-1] {
				continue
			}
			th := (values[v] + values[v-1]) / 2
			g := splitGini(x, y, idx, f, th)
			if g < best {
				best = g
				feature = f
				threshold = th
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

func splitGini(x [][]float64, y []int, idx []int, feature int, threshold float64) float64 {
	var nL, nR, posL, posR int
	for _, i := range idx {
		if x[i][feature] <= threshold {
			nL++
			posL += y[i]
		} else {
			nR++
			posR += y[i]
		}
	}
	total := float64(nL + nR)
	return float64(nL)/total*gini(posL, nL) + float64(nR)/total*gini(posR, nR)
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}
