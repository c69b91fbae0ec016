package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"credibility-scanner/ai"
	"credibility-scanner/batch"
	"credibility-scanner/classifier"
	"credibility-scanner/features"
	"credibility-scanner/imagecls"
	"credibility-scanner/scraper"
)

type failingWhois struct{}

func (failingWhois) Name() string { return "offline" }

func (failingWhois) Lookup(ctx context.Context, domain string) (scraper.WhoisResult, error) {
	return scraper.WhoisResult{}, errors.New("offline")
}

type cannedLLM struct{}

func (cannedLLM) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return "VERDICT: FAKE\nCONFIDENCE: 77\nREASONING: No sources.\nRED_FLAGS: clickbait\nRECOMMENDATION: Verify elsewhere.", nil
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	log := zap.NewNop()

	schema, err := features.LoadSchema("../models/feature_schema.yaml")
	if err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	model, err := classifier.LoadLogisticModel("../models/logistic_weights.yaml")
	if err != nil {
		t.Fatalf("LoadLogisticModel: %v", err)
	}
	pipeline := classifier.NewPipeline(features.NewAligner(schema), model)

	s := scraper.NewScraper(log)
	s.Whois = scraper.NewWhoisResolver(log, time.Second, failingWhois{})

	return &Handler{
		Scraper:  s,
		Pipeline: pipeline,
		Batch:    batch.NewProcessor(pipeline, log),
		Text:     ai.NewTextAnalyzer(cannedLLM{}, "test-model", log),
		Logger:   log,
	}
}

func do(t *testing.T, h http.Handler, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndRequestID(t *testing.T) {
	h := newTestHandler(t).Routes("/metrics")
	rr := do(t, h, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	var body map[string]any
	json.Unmarshal(rr.Body.Bytes(), &body)
	if body["model_features"] != float64(67) {
		t.Errorf("health = %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rr := do(t, newTestHandler(t).Routes("/metrics"), http.MethodGet, "/metrics", "", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Errorf("metrics status %d", rr.Code)
	}
}

func TestPredictURL(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta name="viewport" content="width=device-width"></head>
<body><p>Contact us. Privacy Policy. Terms of Service.</p></body></html>`)
	}))
	defer site.Close()

	h := newTestHandler(t).Routes("/metrics")
	rr := do(t, h, http.MethodPost, "/predict/url", "application/json", []byte(`{"url":"`+site.URL+`"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body)
	}

	var resp URLPredictionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Record.MobileResponsive != "Yes" || !resp.Record.PrivacyPolicyExists {
		t.Errorf("record = %+v", resp.Record)
	}
	if resp.Prediction.Prediction != "Trusted" && resp.Prediction.Prediction != "Untrusted" {
		t.Errorf("prediction = %+v", resp.Prediction)
	}
	noted := false
	for _, d := range resp.Record.DebugInfo {
		if strings.HasPrefix(d, "Feature columns not in schema:") && strings.Contains(d, "popups_present_No") {
			noted = true
		}
	}
	if !noted {
		t.Errorf("dropped columns not recorded: %v", resp.Record.DebugInfo)
	}
	if resp.Prediction.Model != classifier.SourcePlaceholder {
		t.Errorf("model = %q, want placeholder", resp.Prediction.Model)
	}
	if len(resp.Indicators.Negative) == 0 {
		t.Error("plain http site should carry risk indicators")
	}
}

func TestScrapeErrorSentinel(t *testing.T) {
	ln, _ := net.Listen("tcp", "127.0.0.1:0")
	addr := ln.Addr().String()
	ln.Close()

	h := newTestHandler(t).Routes("/metrics")
	rr := do(t, h, http.MethodPost, "/scrape", "application/json", []byte(`{"url":"http://`+addr+`"}`))
	if rr.Code != http.StatusBadGateway {
		t.Errorf("status = %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"error":"Connection error - could not reach website"}` {
		t.Errorf("body = %s", rr.Body)
	}

	rr = do(t, h, http.MethodPost, "/scrape", "application/json", []byte(`{}`))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing url: status = %d", rr.Code)
	}
}

func TestPredictManual(t *testing.T) {
	h := newTestHandler(t).Routes("/metrics")
	body := []byte(`{"domain_age_years": 20, "has_https": "Yes", "ssl_valid": "Yes",
		"privacy_policy_exists": true, "contact_info_available": true, "terms_of_service_exists": true,
		"server_response_code": 200, "ads_density_score": 0.0, "not_a_feature": "x"}`)

	rr := do(t, h, http.MethodPost, "/predict", "application/json", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body)
	}
	var resp PredictionResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.TrustProbability < 0 || resp.TrustProbability > 100 || resp.Confidence < 50 {
		t.Errorf("resp = %+v", resp)
	}
}

type shortModel struct{}

func (shortModel) InputDim() int { return 10 }

func (shortModel) Predict(ctx context.Context, v [][]float64) ([]classifier.Prediction, error) {
	return nil, errors.New("must not be called")
}

func TestPredictMismatch(t *testing.T) {
	hd := newTestHandler(t)
	hd.Pipeline = classifier.NewPipeline(hd.Pipeline.Aligner, shortModel{})

	rr := do(t, hd.Routes("/metrics"), http.MethodPost, "/predict", "application/json", []byte(`{}`))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Feature mismatch: 67 provided, 10 expected") {
		t.Errorf("body = %s", rr.Body)
	}
}

func TestPredictBatch(t *testing.T) {
	csvData, err := os.ReadFile("../batch/testdata/sites.csv")
	if err != nil {
		t.Fatal(err)
	}
	h := newTestHandler(t).Routes("/metrics")

	rr := do(t, h, http.MethodPost, "/predict/batch", "text/csv", csvData)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body)
	}
	if rr.Header().Get("X-Batch-Model") != classifier.SourcePlaceholder {
		t.Errorf("model = %q", rr.Header().Get("X-Batch-Model"))
	}
	if rr.Header().Get("X-Batch-Total") != "3" {
		t.Errorf("total = %q", rr.Header().Get("X-Batch-Total"))
	}
	if !strings.Contains(strings.SplitN(rr.Body.String(), "\n", 2)[0], "Trust_Probability") {
		t.Error("output header missing prediction columns")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "sites.csv")
	fw.Write(csvData)
	mw.Close()
	rr = do(t, h, http.MethodPost, "/predict/batch", mw.FormDataContentType(), buf.Bytes())
	if rr.Code != http.StatusOK {
		t.Errorf("multipart status = %d body = %s", rr.Code, rr.Body)
	}

	rr = do(t, h, http.MethodPost, "/predict/batch", "text/csv", []byte("domain_age_years\n"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty batch status = %d", rr.Code)
	}
}

func TestAnalyzeText(t *testing.T) {
	hd := newTestHandler(t)
	h := hd.Routes("/metrics")

	rr := do(t, h, http.MethodPost, "/analyze/text", "application/json",
		[]byte(`{"text":"Scientists confirm that drinking coffee makes you immortal, says anonymous blog."}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body)
	}
	var resp map[string]any
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp["verdict"] != "FAKE" || resp["confidence"] != float64(77) {
		t.Errorf("resp = %v", resp)
	}

	rr = do(t, h, http.MethodPost, "/analyze/text", "application/json", []byte(`{"text":""}`))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty text status = %d", rr.Code)
	}

	hd.Text = nil
	rr = do(t, hd.Routes("/metrics"), http.MethodPost, "/analyze/text", "application/json", []byte(`{"text":"x"}`))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured status = %d", rr.Code)
	}
}

func TestAnalyzeImage(t *testing.T) {
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predictions": [[0.12]]}`))
	}))
	defer model.Close()

	hd := newTestHandler(t)
	hd.Images = imagecls.NewClassifier(model.URL, time.Second, zap.NewNop())
	h := hd.Routes("/metrics")

	var img bytes.Buffer
	png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 8, 8)))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("image", "photo.png")
	fw.Write(img.Bytes())
	mw.Close()

	rr := do(t, h, http.MethodPost, "/analyze/image", mw.FormDataContentType(), buf.Bytes())
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body)
	}
	var res imagecls.Result
	json.Unmarshal(rr.Body.Bytes(), &res)
	if res.AIGenerated || res.Label != "Real" {
		t.Errorf("result = %+v", res)
	}

	rr = do(t, h, http.MethodPost, "/analyze/image", "image/png", []byte("garbage"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("garbage status = %d", rr.Code)
	}
}
