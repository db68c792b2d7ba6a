package model

import (
	"math"
	"math/rand"
)

// Forest is a bagged ensemble of decision trees. Each tree trains on
// a bootstrap sample of the data with feature subsampling at every
// split.
type Forest struct {
	Trees []Tree `json:"trees"`
	Seed  int64  `json:"seed"`
}

// FitForest trains numTrees trees on x,y. Each tree draws its own rng
// seeded from seed and the tree index, so training order and
// parallelism cannot change the result.
func FitForest(x [][]float64, y []int, numTrees, maxDepth int, seed int64) (*Forest, error) {
	if err := checkWidth(x); err != nil {
		return nil, err
	}
	pos := 0
	for _, label := range y {
		pos += label
	}
	if pos == 0 || pos == len(y) {
		return nil, ErrNotEnoughClasses
	}

	d := len(x[0])
	mtry := int(math.Sqrt(float64(d)))
	if mtry < 1 {
		mtry = 1
	}

	f := &Forest{Trees: make([]Tree, numTrees), Seed: seed}
	for t := 0; t < numTrees; t++ {
		rng := rand.New(rand.NewSource(seed + int64(t)))
		idx := make([]int, len(x))
		for i := range idx {
			idx[i] = rng.Intn(len(x))
		}
		f.Trees[t] = Tree{Root: growTree(x, y, idx, maxDepth, MinSamplesSplit, mtry, rng)}
	}
	return f, nil
}

// PredictProba returns the positive-class probability for one sample,
// averaged over all trees.
func (f *Forest) PredictProba(x []float64) float64 {
	sum := 0.0
	for i := range f.Trees {
		sum += f.Trees[i].PredictProba(x)
	}
	return sum / float64(len(f.Trees))
}

// Predict applies threshold to PredictProba.
func (f *Forest) Predict(x []float64, threshold float64) bool {
	return f.PredictProba(x) >= threshold
}
