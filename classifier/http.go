package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"credibility-scanner/metrics"
)

type predictRequest struct {
	Instances [][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions   []int       `json:"predictions"`
	Probabilities [][]float64 `json:"probabilities"`
	Error         string      `json:"error,omitempty"`
}

// HTTPClassifier calls a model server that exposes POST /predict.
type HTTPClassifier struct {
	BaseURL    string
	Dim        int
	HTTPClient *http.Client
	Breaker    *CircuitBreaker
	Logger     *zap.Logger
}

func NewHTTPClassifier(log *zap.Logger, baseURL string, inputDim int, timeout time.Duration, breaker *CircuitBreaker) *HTTPClassifier {
	return &HTTPClassifier{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Dim:        inputDim,
		HTTPClient: &http.Client{Timeout: timeout},
		Breaker:    breaker,
		Logger:     log,
	}
}

func (c *HTTPClassifier) InputDim() int { return c.Dim }

func (c *HTTPClassifier) Predict(ctx context.Context, vectors [][]float64) ([]Prediction, error) {
	var preds []Prediction
	call := func() error {
		var err error
		preds, err = c.predict(ctx, vectors)
		return err
	}

	var err error
	if c.Breaker != nil {
		err = c.Breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		c.Logger.Error("Model server prediction failed", zap.Error(err), zap.Int("instances", len(vectors)))
		return nil, err
	}
	return preds, nil
}

func (c *HTTPClassifier) predict(ctx context.Context, vectors [][]float64) ([]Prediction, error) {
	start := time.Now()
	defer func() { metrics.ModelLatency.Observe(time.Since(start).Seconds()) }()

	body, err := json.Marshal(predictRequest{Instances: vectors})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model server error (status %d): %s", resp.StatusCode, string(raw))
	}

	var out predictResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("model server error: %s", out.Error)
	}
	if len(out.Predictions) != len(vectors) || len(out.Probabilities) != len(vectors) {
		return nil, fmt.Errorf("model server returned %d predictions for %d instances", len(out.Predictions), len(vectors))
	}

	preds := make([]Prediction, len(vectors))
	for i := range vectors {
		if len(out.Probabilities[i]) != 2 {
			return nil, fmt.Errorf("instance %d: expected 2 probabilities, got %d", i, len(out.Probabilities[i]))
		}
		preds[i] = Prediction{
			Label:         out.Predictions[i],
			Probabilities: [2]float64{out.Probabilities[i][0], out.Probabilities[i][1]},
		}
	}
	return preds, nil
}
