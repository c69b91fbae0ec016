package classifier

import (
	"context"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// LogisticModel scores vectors with linear weights read from YAML. It
// stands in for the model server when none is configured. Weights files
// marked placeholder are hand-written and their verdicts are illustrative.
type LogisticModel struct {
	Intercept    float64   `yaml:"intercept"`
	Coefficients []float64 `yaml:"coefficients"`
	Placeholder  bool      `yaml:"placeholder"`
}

func LoadLogisticModel(path string) (*LogisticModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weights: %w", err)
	}
	var m LogisticModel
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse weights %s: %w", path, err)
	}
	if len(m.Coefficients) == 0 {
		return nil, fmt.Errorf("weights %s: no coefficients", path)
	}
	return &m, nil
}

func (m *LogisticModel) InputDim() int { return len(m.Coefficients) }

func (m *LogisticModel) Predict(ctx context.Context, vectors [][]float64) ([]Prediction, error) {
	preds := make([]Prediction, len(vectors))
	for i, vec := range vectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(vec) != len(m.Coefficients) {
			return nil, fmt.Errorf("instance %d: %d features, model expects %d", i, len(vec), len(m.Coefficients))
		}
		z := m.Intercept
		for j, x := range vec {
			z += m.Coefficients[j] * x
		}
		p := sigmoid(z)
		label := LabelUntrusted
		if p >= 0.5 {
			label = LabelTrusted
		}
		preds[i] = Prediction{Label: label, Probabilities: [2]float64{1 - p, p}}
	}
	return preds, nil
}

func sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }
