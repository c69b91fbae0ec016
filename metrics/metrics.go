package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counts scrape calls by outcome ("ok", "timeout", "connection", "request", "scraping").
var Scrapes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "credibility_scrapes_total",
	Help: "Total number of website scrapes by outcome",
}, []string{"outcome"})

var ScrapeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "credibility_scrape_latency_seconds",
	Help:    "Wall time of a full scrape including TLS and WHOIS lookups",
	Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
})

// WHOIS and TLS lookups
var (
	WhoisLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credibility_whois_lookups_total",
		Help: "WHOIS attempts by strategy and outcome",
	}, []string{"strategy", "outcome"})

	WhoisFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credibility_whois_fallbacks_total",
		Help: "Scrapes where the static known-site table supplied domain facts",
	})

	TLSHandshakes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credibility_tls_handshakes_total",
		Help: "TLS inspections by outcome",
	}, []string{"outcome"})
)

// Classifier metrics
var (
	Predictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credibility_predictions_total",
		Help: "Credibility predictions by label",
	}, []string{"label"})

	FeatureMismatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credibility_feature_mismatch_total",
		Help: "Requests rejected because the feature vector did not match the model input size",
	})

	ModelLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "credibility_model_latency_seconds",
		Help:    "Time taken by the model server to answer a prediction request",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "credibility_circuit_breaker_state",
		Help: "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
	}, []string{"service"})
)

// LLM and image collaborator metrics
var (
	LLMRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credibility_llm_requests_total",
		Help: "Total number of text analysis requests sent to the LLM",
	})

	LLMErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credibility_llm_errors_total",
		Help: "Total number of failed LLM requests",
	})

	ImageClassifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credibility_image_classifications_total",
		Help: "Image classifications by verdict",
	}, []string{"verdict"})
)
