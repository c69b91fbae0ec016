package batch

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"credibility-scanner/classifier"
)

var ErrNoRows = errors.New("batch has no data rows")

// Columns appended to every output record.
var OutputColumns = []string{"Prediction", "Confidence", "Trust_Probability"}

type Summary struct {
	Total     int `json:"total"`
	Trusted   int `json:"trusted"`
	Untrusted int `json:"untrusted"`
}

type Result struct {
	Table       *Table
	Predictions []classifier.Prediction
	Summary     Summary
}

type Processor struct {
	Pipeline *classifier.Pipeline
	Logger   *zap.Logger
}

func NewProcessor(p *classifier.Pipeline, log *zap.Logger) *Processor {
	return &Processor{Pipeline: p, Logger: log}
}

// Run classifies every row of t. A row that fails alignment fails the whole
// batch before anything is sent to the model.
func (p *Processor) Run(ctx context.Context, t *Table) (*Result, error) {
	if len(t.Records) == 0 {
		return nil, ErrNoRows
	}
	start := time.Now()

	rows := t.Rows()
	preds, err := p.Pipeline.PredictRows(ctx, rows)
	if err != nil {
		return nil, err
	}

	res := &Result{Table: t, Predictions: preds}
	for _, pr := range preds {
		res.Summary.Total++
		if pr.Trusted() {
			res.Summary.Trusted++
		} else {
			res.Summary.Untrusted++
		}
	}

	p.Logger.Info("Batch processed",
		zap.Int("rows", res.Summary.Total),
		zap.Int("trusted", res.Summary.Trusted),
		zap.Int("untrusted", res.Summary.Untrusted),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// WriteCSV writes the input columns followed by the prediction columns.
func (r *Result) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append(append([]string{}, r.Table.Header...), OutputColumns...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, rec := range r.Table.Records {
		row := make([]string, len(r.Table.Header), len(header))
		copy(row, rec)
		pr := r.Predictions[i]
		row = append(row,
			pr.Text(),
			strconv.FormatFloat(pr.Confidence(), 'f', 2, 64),
			strconv.FormatFloat(pr.TrustProbability(), 'f', 2, 64))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
