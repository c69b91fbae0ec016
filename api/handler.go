package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"credibility-scanner/ai"
	"credibility-scanner/batch"
	"credibility-scanner/classifier"
	"credibility-scanner/features"
	"credibility-scanner/imagecls"
	"credibility-scanner/scraper"
)

const maxUploadBytes = 20 << 20

// Handler serves the scanner over HTTP. Text and Images may be nil when the
// corresponding collaborator is not configured.
type Handler struct {
	Scraper  *scraper.Scraper
	Pipeline *classifier.Pipeline
	Batch    *batch.Processor
	Text     *ai.TextAnalyzer
	Images   *imagecls.Classifier
	Logger   *zap.Logger
}

type URLRequest struct {
	URL string `json:"url"`
}

type TextRequest struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

type PredictionResponse struct {
	Prediction       string  `json:"prediction"`
	Label            int     `json:"label"`
	Confidence       float64 `json:"confidence"`
	TrustProbability float64 `json:"trust_probability"`
	Model            string  `json:"model"`
}

type URLPredictionResponse struct {
	Record     *scraper.MetadataRecord `json:"record"`
	Prediction PredictionResponse      `json:"prediction"`
	Indicators scraper.Indicators      `json:"indicators"`
}

type TextAnalysisResponse struct {
	*ai.Analysis
	Article *ai.Article `json:"article,omitempty"`
}

// NewPredictionResponse flattens p for JSON output. model is the pipeline
// source, "placeholder" when no trained model is configured.
func NewPredictionResponse(p classifier.Prediction, model string) PredictionResponse {
	return PredictionResponse{
		Prediction:       p.Text(),
		Label:            p.Label,
		Confidence:       p.Confidence(),
		TrustProbability: p.TrustProbability(),
		Model:            model,
	}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes(metricsPath string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /scrape", h.Scrape)
	mux.HandleFunc("POST /predict/url", h.PredictURL)
	mux.HandleFunc("POST /predict", h.Predict)
	mux.HandleFunc("POST /predict/batch", h.PredictBatch)
	mux.HandleFunc("POST /analyze/text", h.AnalyzeText)
	mux.HandleFunc("POST /analyze/image", h.AnalyzeImage)
	mux.HandleFunc("GET /healthz", h.Health)
	mux.Handle("GET "+metricsPath, promhttp.Handler())
	return withRequestID(h.Logger, mux)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"model_features": h.Pipeline.Model.InputDim(),
		"model":          h.Pipeline.Source(),
		"text_analysis":  h.Text != nil,
		"image_model":    h.Images != nil && h.Images.URL != "",
	})
}

func (h *Handler) Scrape(w http.ResponseWriter, r *http.Request) {
	var req URLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		sendError(w, "url required", http.StatusBadRequest)
		return
	}

	rec, err := h.Scraper.Scrape(r.Context(), req.URL)
	if err != nil {
		h.sendScrapeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) PredictURL(w http.ResponseWriter, r *http.Request) {
	log := loggerFrom(r.Context(), h.Logger)

	var req URLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		sendError(w, "url required", http.StatusBadRequest)
		return
	}

	rec, err := h.Scraper.Scrape(r.Context(), req.URL)
	if err != nil {
		h.sendScrapeError(w, err)
		return
	}

	row := rec.FeatureRow()
	if dropped := h.Pipeline.Aligner.Unknown(row); len(dropped) > 0 {
		rec.DebugInfo.Addf("Feature columns not in schema: %s", strings.Join(dropped, ", "))
		log.Debug("Dropped feature columns", zap.Strings("columns", dropped))
	}

	pred, err := h.Pipeline.PredictRow(r.Context(), row)
	if err != nil {
		h.sendPredictError(w, err)
		return
	}

	log.Info("URL classified",
		zap.String("domain", rec.Domain),
		zap.String("prediction", pred.Text()),
		zap.Float64("trust_probability", pred.TrustProbability()))

	writeJSON(w, http.StatusOK, URLPredictionResponse{
		Record:     rec,
		Prediction: NewPredictionResponse(pred, h.Pipeline.Source()),
		Indicators: rec.Indicators(),
	})
}

// Predict classifies a manually entered feature object.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		sendError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	row := features.RowFromMap(fields)
	if dropped := h.Pipeline.Aligner.Unknown(row); len(dropped) > 0 {
		loggerFrom(r.Context(), h.Logger).Debug("Dropped feature columns", zap.Strings("columns", dropped))
	}

	pred, err := h.Pipeline.PredictRow(r.Context(), row)
	if err != nil {
		h.sendPredictError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewPredictionResponse(pred, h.Pipeline.Source()))
}

// PredictBatch accepts a CSV body or a multipart "file" upload (CSV or
// XLSX) and answers with the annotated CSV.
func (h *Handler) PredictBatch(w http.ResponseWriter, r *http.Request) {
	table, err := readBatchUpload(w, r)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.Batch.Run(r.Context(), table)
	if err != nil {
		if errors.Is(err, batch.ErrNoRows) {
			sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.sendPredictError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := res.WriteCSV(&buf); err != nil {
		sendError(w, "failed to write results", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="predictions.csv"`)
	w.Header().Set("X-Batch-Model", h.Pipeline.Source())
	w.Header().Set("X-Batch-Total", strconv.Itoa(res.Summary.Total))
	w.Header().Set("X-Batch-Trusted", strconv.Itoa(res.Summary.Trusted))
	w.Header().Set("X-Batch-Untrusted", strconv.Itoa(res.Summary.Untrusted))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func readBatchUpload(w http.ResponseWriter, r *http.Request) (*batch.Table, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return batch.ReadCSV(r.Body)
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("file upload required: %w", err)
	}
	defer file.Close()

	if strings.HasSuffix(strings.ToLower(hdr.Filename), ".xlsx") {
		return batch.ReadXLSX(file)
	}
	return batch.ReadCSV(file)
}

func (h *Handler) AnalyzeText(w http.ResponseWriter, r *http.Request) {
	if h.Text == nil {
		sendError(w, "text analysis not configured: "+ai.ErrMissingAPIKey.Error(), http.StatusServiceUnavailable)
		return
	}

	var req TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	var article *ai.Article
	text := req.Text
	if strings.TrimSpace(text) == "" && req.URL != "" {
		a, err := ai.FetchArticle(r.Context(), h.Scraper.Client, h.Scraper.UserAgent, scraper.NormalizeURL(req.URL))
		if err != nil {
			sendError(w, err.Error(), http.StatusBadGateway)
			return
		}
		article = a
		text = a.Text
	}

	analysis, err := h.Text.Analyze(r.Context(), text)
	if err != nil {
		if errors.Is(err, ai.ErrEmptyText) {
			sendError(w, "text or url required", http.StatusBadRequest)
			return
		}
		loggerFrom(r.Context(), h.Logger).Error("Text analysis failed", zap.Error(err))
		sendError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, TextAnalysisResponse{Analysis: analysis, Article: article})
}

// AnalyzeImage accepts a multipart "image" upload or a raw image body.
func (h *Handler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	if h.Images == nil || h.Images.URL == "" {
		sendError(w, imagecls.ErrNotConfigured.Error(), http.StatusServiceUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("image")
		if err != nil {
			sendError(w, "image upload required", http.StatusBadRequest)
			return
		}
		defer file.Close()
		src = file
	}

	res, err := h.Images.Classify(r.Context(), src)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, imagecls.ErrDecode) {
			status = http.StatusBadRequest
		}
		sendError(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) sendScrapeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var se *scraper.ScrapeError
	if errors.As(err, &se) {
		switch se.Kind {
		case scraper.KindTimeout:
			status = http.StatusGatewayTimeout
		case scraper.KindRequest:
			status = http.StatusBadRequest
		}
	}
	writeJSON(w, status, scraper.ErrorResult{Error: err.Error()})
}

func (h *Handler) sendPredictError(w http.ResponseWriter, err error) {
	var mm *features.MismatchError
	if errors.As(err, &mm) {
		sendError(w, mm.Error(), http.StatusUnprocessableEntity)
		return
	}
	if errors.Is(err, classifier.ErrCircuitOpen) {
		sendError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	h.Logger.Error("Prediction failed", zap.Error(err))
	sendError(w, err.Error(), http.StatusBadGateway)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, scraper.ErrorResult{Error: message})
}
