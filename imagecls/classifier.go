package imagecls

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"credibility-scanner/metrics"
)

var ErrNotConfigured = errors.New("image model URL not configured")

// Result is the verdict of the AI-generated image detector.
type Result struct {
	AIProbability   float64 `json:"ai_probability"`
	RealProbability float64 `json:"real_probability"`
	AIGenerated     bool    `json:"ai_generated"`
	Label           string  `json:"label"`
	Confidence      float64 `json:"confidence"`
	Format          string  `json:"format,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
}

// NewResult interprets a sigmoid output as P(AI-generated). Above 0.5 is
// AI-generated.
func NewResult(p float64) Result {
	r := Result{
		AIProbability:   p,
		RealProbability: 1 - p,
		AIGenerated:     p > 0.5,
		Label:           "Real",
	}
	if r.AIGenerated {
		r.Label = "AI-generated"
	}
	r.Confidence = math.Max(r.AIProbability, r.RealProbability) * 100
	return r
}

type predictRequest struct {
	Instances []Tensor `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
}

// Classifier sends preprocessed images to a model server exposing a
// TensorFlow Serving style predict endpoint.
type Classifier struct {
	URL        string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func NewClassifier(url string, timeout time.Duration, log *zap.Logger) *Classifier {
	return &Classifier{URL: url, HTTPClient: &http.Client{Timeout: timeout}, Logger: log}
}

// Classify decodes r, preprocesses it and asks the model for a verdict.
func (c *Classifier) Classify(ctx context.Context, r io.Reader) (*Result, error) {
	if c.URL == "" {
		return nil, ErrNotConfigured
	}
	img, format, err := Decode(r)
	if err != nil {
		return nil, err
	}

	p, err := c.predict(ctx, Preprocess(img))
	if err != nil {
		return nil, err
	}

	res := NewResult(p)
	res.Format = format
	res.Width = img.Bounds().Dx()
	res.Height = img.Bounds().Dy()

	metrics.ImageClassifications.WithLabelValues(res.Label).Inc()
	c.Logger.Info("Image classified",
		zap.String("label", res.Label),
		zap.Float64("ai_probability", p),
		zap.String("format", format))
	return &res, nil
}

func (c *Classifier) predict(ctx context.Context, t Tensor) (float64, error) {
	body, err := json.Marshal(predictRequest{Instances: []Tensor{t}})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("image model error (status %d): %s", resp.StatusCode, string(raw))
	}

	var out predictResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(out.Predictions) == 0 || len(out.Predictions[0]) == 0 {
		return 0, errors.New("empty prediction from image model")
	}
	p := out.Predictions[0][0]
	if p < 0 || p > 1 || math.IsNaN(p) {
		return 0, fmt.Errorf("prediction %v outside [0,1]", p)
	}
	return p, nil
}
