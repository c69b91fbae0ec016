package classifier

import (
	"context"
	"math"
)

const (
	LabelUntrusted = 0
	LabelTrusted   = 1
)

// Prediction is one classifier answer: a 0/1 label and the probabilities of
// [untrusted, trusted].
type Prediction struct {
	Label         int        `json:"label"`
	Probabilities [2]float64 `json:"probabilities"`
}

func (p Prediction) Trusted() bool { return p.Label == LabelTrusted }

// Text returns "Trusted" or "Untrusted".
func (p Prediction) Text() string {
	if p.Trusted() {
		return "Trusted"
	}
	return "Untrusted"
}

// Confidence is the larger probability as a percentage.
func (p Prediction) Confidence() float64 {
	return math.Max(p.Probabilities[0], p.Probabilities[1]) * 100
}

// TrustProbability is P(trusted) as a percentage.
func (p Prediction) TrustProbability() float64 {
	return p.Probabilities[1] * 100
}

// Sources reported next to every prediction so callers can tell a real
// model from the bundled placeholder weights.
const (
	SourceModelServer = "model-server"
	SourceLogistic    = "logistic"
	SourcePlaceholder = "placeholder"
)

// Source names where the predictions of c come from.
func Source(c Classifier) string {
	switch m := c.(type) {
	case *HTTPClassifier:
		return SourceModelServer
	case *LogisticModel:
		if m.Placeholder {
			return SourcePlaceholder
		}
		return SourceLogistic
	default:
		return "custom"
	}
}

// Classifier is a pre-trained credibility model. InputDim is the vector
// length it was fit on; vectors of any other length must not be sent.
type Classifier interface {
	InputDim() int
	Predict(ctx context.Context, vectors [][]float64) ([]Prediction, error)
}
