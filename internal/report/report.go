// Package report renders the run summary printed by --show-metrics:
// model quality against the stored labels plus fraud volume counts.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmarchuk/fraudetl/internal/mart"
	"github.com/dmarchuk/fraudetl/internal/model"
	"github.com/dmarchuk/fraudetl/internal/warehouse"
)

// Summary is the computed report content.
type Summary struct {
	Transactions int
	Predicted    int
	FraudActual  int
	FraudFlagged int
	FraudRate    float64
	RuleFlagged  int

	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	Confusion model.Confusion

	// UsedRuleFallback is set when no predictions exist and the
	// rule-based high risk flag stood in for the model.
	UsedRuleFallback bool
}

// Build computes the summary by joining mart predictions against the
// warehouse labels. When the mart is empty it falls back to the
// rule-based HighRiskFlag so the report still says something useful
// before the first scoring run.
func Build(ctx context.Context, wh warehouse.Store, mt mart.Store) (*Summary, error) {
	rows, err := wh.ListFeatures(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	if len(rows) == 0 {
		return nil, warehouse.ErrNoTransactions
	}

	s := &Summary{Transactions: len(rows)}
	actual := make(map[string]bool, len(rows))
	for i := range rows {
		actual[rows[i].TransactionID] = rows[i].IsFraud
		if rows[i].IsFraud {
			s.FraudActual++
		}
		if rows[i].HighRiskFlag == 1 {
			s.RuleFlagged++
		}
	}
	s.FraudRate = float64(s.FraudActual) / float64(len(rows))

	preds, err := mt.ListPredictions(ctx)
	if err != nil && !errors.Is(err, mart.ErrNoPredictions) {
		return nil, fmt.Errorf("report: %w", err)
	}

	if len(preds) == 0 {
		s.UsedRuleFallback = true
		for i := range rows {
			s.tally(rows[i].IsFraud, rows[i].HighRiskFlag == 1)
		}
		s.Predicted = len(rows)
		s.FraudFlagged = s.RuleFlagged
	} else {
		for _, p := range preds {
			label, ok := actual[p.TransactionID]
			if !ok {
				continue
			}
			s.tally(label, p.PredictedFraud)
			s.Predicted++
			if p.PredictedFraud {
				s.FraudFlagged++
			}
		}
	}

	s.finish()
	return s, nil
}

func (s *Summary) tally(label, predicted bool) {
	switch {
	case label && predicted:
		s.Confusion.TruePositive++
	case label && !predicted:
		s.Confusion.FalseNegative++
	case !label && predicted:
		s.Confusion.FalsePositive++
	default:
		s.Confusion.TrueNegative++
	}
}

func (s *Summary) finish() {
	c := s.Confusion
	if s.Predicted > 0 {
		s.Accuracy = float64(c.TruePositive+c.TrueNegative) / float64(s.Predicted)
	}
	if c.TruePositive+c.FalsePositive > 0 {
		s.Precision = float64(c.TruePositive) / float64(c.TruePositive+c.FalsePositive)
	}
	if c.TruePositive+c.FalseNegative > 0 {
		s.Recall = float64(c.TruePositive) / float64(c.TruePositive+c.FalseNegative)
	}
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
}

// Print renders the summary as a terminal report.
func (s *Summary) Print(w io.Writer) {
	source := "model predictions"
	if s.UsedRuleFallback {
		source = "rule-based high risk flag (no predictions in mart)"
	}

	fmt.Fprintln(w, "=== Fraud Detection Report ===")
	fmt.Fprintf(w, "Source:            %s\n", source)
	fmt.Fprintf(w, "Transactions:      %d\n", s.Transactions)
	fmt.Fprintf(w, "Actual fraud:      %d (%.2f%%)\n", s.FraudActual, s.FraudRate*100)
	fmt.Fprintf(w, "Flagged as fraud:  %d\n", s.FraudFlagged)
	fmt.Fprintf(w, "Rule flagged:      %d\n", s.RuleFlagged)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Accuracy:          %.4f\n", s.Accuracy)
	fmt.Fprintf(w, "Precision:         %.4f\n", s.Precision)
	fmt.Fprintf(w, "Recall:            %.4f\n", s.Recall)
	fmt.Fprintf(w, "F1:                %.4f\n", s.F1)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Confusion matrix (rows: actual, cols: predicted)")
	fmt.Fprintf(w, "              legit   fraud\n")
	fmt.Fprintf(w, "  legit   %8d %7d\n", s.Confusion.TrueNegative, s.Confusion.FalsePositive)
	fmt.Fprintf(w, "  fraud   %8d %7d\n", s.Confusion.FalseNegative, s.Confusion.TruePositive)
}
