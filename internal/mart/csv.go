package mart

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var predictionColumns = []string{
	"TransactionID",
	"AccountID",
	"MerchantID",
	"TransactionAmount",
	"PredictedFraud",
	"FraudProbability",
	"Threshold",
	"PredictionTimestamp",
}

// WritePredictions writes the scored predictions as CSV, one row per
// transaction, in the order given.
func WritePredictions(w io.Writer, preds []Prediction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(predictionColumns); err != nil {
		return fmt.Errorf("write prediction header: %w", err)
	}
	for i := range preds {
		p := &preds[i]
		flag := "0"
		if p.PredictedFraud {
			flag = "1"
		}
		row := []string{
			p.TransactionID,
			p.AccountID,
			p.MerchantID,
			p.Amount.String(),
			flag,
			strconv.FormatFloat(p.FraudProbability, 'g', -1, 64),
			strconv.FormatFloat(p.Threshold, 'g', -1, 64),
			p.PredictedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write prediction row %s: %w", p.TransactionID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
