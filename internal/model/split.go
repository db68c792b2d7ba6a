package model

import "math/rand"

// StratifiedSplit partitions row indices into train and test sets,
// holding out testFraction of each class so the test set preserves
// the fraud rate. The shuffle is seeded, so the same data always
// splits the same way.
func StratifiedSplit(y []int, testFraction float64, seed int64) (train, test []int) {
	var pos, neg []int
	for i, label := range y {
		if label == 1 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(pos), func(i, j int) { pos[i], pos[j] = pos[j], pos[i] })
	rng.Shuffle(len(neg), func(i, j int) { neg[i], neg[j] = neg[j], neg[i] })

	cutPos := int(float64(len(pos)) * testFraction)
	cutNeg := int(float64(len(neg)) * testFraction)

	test = append(test, pos[:cutPos]...)
	test = append(test, neg[:cutNeg]...)
	train = append(train, pos[cutPos:]...)
	train = append(train, neg[cutNeg:]...)
	return train, test
}
