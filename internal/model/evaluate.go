package model

import "sort"

// Confusion is a binary confusion matrix.
type Confusion struct {
	TrueNegative  int `json:"true_negative"`
	FalsePositive int `json:"false_positive"`
	FalseNegative int `json:"false_negative"`
	TruePositive  int `json:"true_positive"`
}

// Metrics summarizes classifier performance on a held-out set.
type Metrics struct {
	Samples   int       `json:"samples"`
	Positives int       `json:"positives"`
	Accuracy  float64   `json:"accuracy"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	F1        float64   `json:"f1"`
	ROCAUC    float64   `json:"roc_auc"`
	Confusion Confusion `json:"confusion"`
}

// Evaluate scores the forest on the given samples and computes the
// standard binary classification metrics at the given threshold.
func Evaluate(f *Forest, x [][]float64, y []int, threshold float64) Metrics {
	probs := make([]float64, len(x))
	for i := range x {
		probs[i] = f.PredictProba(x[i])
	}

	var m Metrics
	m.Samples = len(y)
	for i, label := range y {
		predicted := probs[i] >= threshold
		switch {
		case label == 1 && predicted:
			m.Confusion.TruePositive++
		case label == 1 && !predicted:
			m.Confusion.FalseNegative++
		case label == 0 && predicted:
			m.Confusion.FalsePositive++
		default:
			m.Confusion.TrueNegative++
		}
		m.Positives += label
	}

	c := m.Confusion
	if m.Samples > 0 {
		m.Accuracy = float64(c.TruePositive+c.TrueNegative) / float64(m.Samples)
	}
	if c.TruePositive+c.FalsePositive > 0 {
		m.Precision = float64(c.TruePositive) / float64(c.TruePositive+c.FalsePositive)
	}
	if c.TruePositive+c.FalseNegative > 0 {
		m.Recall = float64(c.TruePositive) / float64(c.TruePositive+c.FalseNegative)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	m.ROCAUC = rocAUC(probs, y)
	return m
}

// rocAUC computes the area under the ROC curve by rank statistic,
// with average ranks for tied scores. Returns 0.5 when only one class
// is present.
func rocAUC(probs []float64, y []int) float64 {
	n := len(probs)
	pos := 0
	for _, label := range y {
		pos += label
	}
	neg := n - pos
	if pos == 0 || neg == 0 {
		return 0.5
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return probs[order[a]] < probs[order[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && probs[order[j]] == probs[order[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		i = j
	}

	rankSum := 0.0
	for i, label := range y {
		if label == 1 {
			rankSum += ranks[i]
		}
	}
	return (rankSum - float64(pos)*float64(pos+1)/2) / (float64(pos) * float64(neg))
}
