package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"credibility-scanner/features"
)

type stubModel struct {
	dim   int
	calls int
	err   error
}

func (s *stubModel) InputDim() int { return s.dim }

func (s *stubModel) Predict(ctx context.Context, vectors [][]float64) ([]Prediction, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Prediction, len(vectors))
	for i := range vectors {
		out[i] = Prediction{Label: LabelTrusted, Probabilities: [2]float64{0.2, 0.8}}
	}
	return out, nil
}

func loadAligner(t *testing.T) *features.Aligner {
	t.Helper()
	schema, err := features.LoadSchema("../models/feature_schema.yaml")
	if err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	return features.NewAligner(schema)
}

func sampleRow() features.Row {
	return features.Row{
		"domain_age_years":        features.Number(26),
		"has_https":               features.Category("Yes"),
		"ssl_valid":               features.Category("Yes"),
		"ssl_issuer":              features.Category("DigiCert"),
		"tls_version":             features.Category("TLS 1.3"),
		"server_response_code":    features.Int(200),
		"privacy_policy_exists":   features.Bool(true),
		"terms_of_service_exists": features.Bool(true),
		"contact_info_available":  features.Bool(true),
		"ads_density_score":       features.Number(0.02),
	}
}

func TestPredictionAccessors(t *testing.T) {
	p := Prediction{Label: LabelUntrusted, Probabilities: [2]float64{0.7, 0.3}}
	if p.Trusted() || p.Text() != "Untrusted" {
		t.Errorf("label accessors wrong: %v %q", p.Trusted(), p.Text())
	}
	if math.Abs(p.Confidence()-70) > 1e-9 {
		t.Errorf("Confidence = %v", p.Confidence())
	}
	if math.Abs(p.TrustProbability()-30) > 1e-9 {
		t.Errorf("TrustProbability = %v", p.TrustProbability())
	}
}

func TestPipelineMismatchSkipsModel(t *testing.T) {
	aligner := loadAligner(t)
	model := &stubModel{dim: aligner.Len() - 1}

	_, err := NewPipeline(aligner, model).PredictRow(context.Background(), sampleRow())

	var mm *features.MismatchError
	if !errors.As(err, &mm) {
		t.Fatalf("expected *MismatchError, got %v", err)
	}
	if mm.Got != 67 || mm.Want != 66 {
		t.Errorf("mismatch = %+v", mm)
	}
	if model.calls != 0 {
		t.Error("model invoked despite mismatch")
	}
}

func TestPipelinePredicts(t *testing.T) {
	aligner := loadAligner(t)
	model := &stubModel{dim: aligner.Len()}

	preds, err := NewPipeline(aligner, model).PredictRows(context.Background(), []features.Row{sampleRow(), {}})
	if err != nil {
		t.Fatalf("PredictRows: %v", err)
	}
	if len(preds) != 2 || model.calls != 1 {
		t.Errorf("got %d predictions in %d calls", len(preds), model.calls)
	}
}

func TestLogisticModel(t *testing.T) {
	m, err := LoadLogisticModel("../models/logistic_weights.yaml")
	if err != nil {
		t.Fatalf("LoadLogisticModel: %v", err)
	}
	aligner := loadAligner(t)
	if m.InputDim() != aligner.Len() {
		t.Fatalf("weights cover %d features, schema has %d", m.InputDim(), aligner.Len())
	}

	p := NewPipeline(aligner, m)
	pred, err := p.PredictRow(context.Background(), sampleRow())
	if err != nil {
		t.Fatalf("PredictRow: %v", err)
	}
	sum := pred.Probabilities[0] + pred.Probabilities[1]
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("probabilities sum to %v", sum)
	}
	if pred.Trusted() != (pred.Probabilities[1] >= 0.5) {
		t.Errorf("label disagrees with probability: %+v", pred)
	}

	if !m.Placeholder || p.Source() != SourcePlaceholder {
		t.Errorf("bundled weights not reported as placeholder: %q", p.Source())
	}

	if _, err := m.Predict(context.Background(), [][]float64{{1, 2}}); err == nil {
		t.Error("expected error for short vector")
	}
}

func TestSource(t *testing.T) {
	tests := []struct {
		model Classifier
		want  string
	}{
		{&HTTPClassifier{Dim: 67}, SourceModelServer},
		{&LogisticModel{Coefficients: []float64{1}}, SourceLogistic},
		{&LogisticModel{Coefficients: []float64{1}, Placeholder: true}, SourcePlaceholder},
	}
	for _, tt := range tests {
		if got := Source(tt.model); got != tt.want {
			t.Errorf("Source(%T) = %q, want %q", tt.model, got, tt.want)
		}
	}
}

func TestLogisticModelSigmoid(t *testing.T) {
	m := &LogisticModel{Intercept: 0, Coefficients: []float64{1, -1}}
	preds, err := m.Predict(context.Background(), [][]float64{{0, 0}, {5, 0}, {0, 5}})
	if err != nil {
		t.Fatal(err)
	}
	if preds[0].Probabilities[1] != 0.5 || !preds[0].Trusted() {
		t.Errorf("z=0: %+v", preds[0])
	}
	if !preds[1].Trusted() || preds[2].Trusted() {
		t.Errorf("labels: %+v %+v", preds[1], preds[2])
	}
}

func TestHTTPClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := predictResponse{}
		for range req.Instances {
			resp.Predictions = append(resp.Predictions, 1)
			resp.Probabilities = append(resp.Probabilities, []float64{0.1, 0.9})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewHTTPClassifier(zap.NewNop(), srv.URL+"/", 3, time.Second, nil)
	preds, err := c.Predict(context.Background(), [][]float64{{1, 2, 3}, {0, 0, 0}})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(preds) != 2 || !preds[1].Trusted() || preds[1].Probabilities[1] != 0.9 {
		t.Errorf("preds = %+v", preds)
	}
}

func TestHTTPClassifierErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predictions":[1],"probabilities":[[0.5]]}`))
	}))
	defer srv.Close()

	c := NewHTTPClassifier(zap.NewNop(), srv.URL, 1, time.Second, nil)
	if _, err := c.Predict(context.Background(), [][]float64{{1}}); err == nil {
		t.Error("expected error for malformed probabilities")
	}
	if _, err := c.Predict(context.Background(), [][]float64{{1}, {2}}); err == nil {
		t.Error("expected error for count mismatch")
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer down.Close()
	c = NewHTTPClassifier(zap.NewNop(), down.URL, 1, time.Second, nil)
	if _, err := c.Predict(context.Background(), [][]float64{{1}}); err == nil {
		t.Error("expected error for 503")
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(name string, threshold int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(zap.NewNop(), name, threshold, time.Minute)
	cb.Now = clock.Now
	return cb, clock
}

func TestCircuitBreaker(t *testing.T) {
	cb, clock := newTestBreaker("test-model", 2)
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if cb.State() != BreakerOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}

	called := false
	if err := cb.Execute(func() error { called = true; return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("function ran while circuit open")
	}

	clock.Advance(time.Minute)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("trial call: %v", err)
	}
	if cb.State() != BreakerClosed {
		t.Errorf("state = %s, want closed", cb.State())
	}
}

func TestCircuitBreakerSuccessResetsCount(t *testing.T) {
	cb, _ := newTestBreaker("test-model-reset", 2)
	cb.Execute(func() error { return errors.New("down") })
	cb.Execute(func() error { return nil })
	cb.Execute(func() error { return errors.New("down") })
	if cb.State() != BreakerClosed {
		t.Errorf("non-consecutive failures opened the circuit")
	}
}

func TestCircuitBreakerHalfOpenFailure(t *testing.T) {
	cb, clock := newTestBreaker("test-model-2", 1)
	cb.Execute(func() error { return errors.New("down") })
	clock.Advance(2 * time.Minute)

	cb.Execute(func() error { return errors.New("still down") })
	if cb.State() != BreakerOpen {
		t.Errorf("failed trial should reopen, state = %s", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("cooldown not restarted: %v", err)
	}
}

func TestCircuitBreakerSingleTrial(t *testing.T) {
	cb, clock := newTestBreaker("test-model-3", 1)
	cb.Execute(func() error { return errors.New("down") })
	clock.Advance(time.Minute)

	var inner error
	err := cb.Execute(func() error {
		if cb.State() != BreakerHalfOpen {
			t.Errorf("state during trial = %s", cb.State())
		}
		inner = cb.Execute(func() error { return nil })
		return nil
	})
	if err != nil {
		t.Fatalf("trial: %v", err)
	}
	if !errors.Is(inner, ErrCircuitOpen) {
		t.Errorf("second call during trial = %v, want ErrCircuitOpen", inner)
	}
}
