package classifier

import (
	"context"
	"fmt"

	"credibility-scanner/features"
	"credibility-scanner/metrics"
)

// Pipeline aligns feature rows to the schema and classifies them. No vector
// reaches the model unless every row aligned to its input size.
type Pipeline struct {
	Aligner *features.Aligner
	Model   Classifier
}

func NewPipeline(aligner *features.Aligner, model Classifier) *Pipeline {
	return &Pipeline{Aligner: aligner, Model: model}
}

// Source reports where the pipeline's predictions come from.
func (p *Pipeline) Source() string { return Source(p.Model) }

func (p *Pipeline) PredictRow(ctx context.Context, row features.Row) (Prediction, error) {
	preds, err := p.PredictRows(ctx, []features.Row{row})
	if err != nil {
		return Prediction{}, err
	}
	return preds[0], nil
}

func (p *Pipeline) PredictRows(ctx context.Context, rows []features.Row) ([]Prediction, error) {
	dim := p.Model.InputDim()
	vectors := make([][]float64, len(rows))
	for i, row := range rows {
		vec, err := p.Aligner.Align(row, dim)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}

	preds, err := p.Model.Predict(ctx, vectors)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	for _, pr := range preds {
		metrics.Predictions.WithLabelValues(pr.Text()).Inc()
	}
	return preds, nil
}
