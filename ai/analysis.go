package ai

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
	"go.uber.org/zap"
)

var ErrEmptyText = errors.New("no text to analyze")

// Analysis is the parsed fact-check answer plus simple text statistics.
type Analysis struct {
	Verdict        string `json:"verdict"`
	Confidence     int    `json:"confidence"`
	Reasoning      string `json:"reasoning"`
	RedFlags       string `json:"red_flags"`
	Recommendation string `json:"recommendation"`

	WordCount int    `json:"word_count"`
	CharCount int    `json:"char_count"`
	Language  string `json:"language"`
	Model     string `json:"model,omitempty"`
}

// Category buckets the free-form verdict into fake, misleading or legitimate.
func (a *Analysis) Category() string {
	v := strings.ToUpper(a.Verdict)
	switch {
	case strings.Contains(v, "FAKE"):
		return "fake"
	case strings.Contains(v, "MISLEADING"):
		return "misleading"
	default:
		return "legitimate"
	}
}

// ParseAnalysis reads the five labeled lines of a fact-check answer.
// Missing lines keep their defaults: verdict UNKNOWN and confidence 0.
func ParseAnalysis(text string) Analysis {
	a := Analysis{Verdict: "UNKNOWN"}
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "VERDICT:"):
			a.Verdict = strings.TrimSpace(strings.TrimPrefix(line, "VERDICT:"))
		case strings.HasPrefix(line, "CONFIDENCE:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:"))
			n, err := strconv.Atoi(strings.TrimSpace(strings.ReplaceAll(raw, "%", "")))
			if err != nil {
				n = 0
			}
			a.Confidence = n
		case strings.HasPrefix(line, "REASONING:"):
			a.Reasoning = strings.TrimSpace(strings.TrimPrefix(line, "REASONING:"))
		case strings.HasPrefix(line, "RED_FLAGS:"):
			a.RedFlags = strings.TrimSpace(strings.TrimPrefix(line, "RED_FLAGS:"))
		case strings.HasPrefix(line, "RECOMMENDATION:"):
			a.Recommendation = strings.TrimSpace(strings.TrimPrefix(line, "RECOMMENDATION:"))
		}
	}
	return a
}

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt, systemPrompt string) (string, error)
}

// TextAnalyzer runs the fact-check prompt and annotates the answer.
type TextAnalyzer struct {
	LLM      Generator
	Detector lingua.LanguageDetector
	Model    string
	Logger   *zap.Logger
}

func NewTextAnalyzer(llm Generator, model string, log *zap.Logger) *TextAnalyzer {
	return &TextAnalyzer{
		LLM:      llm,
		Detector: NewLanguageDetector(),
		Model:    model,
		Logger:   log,
	}
}

func (t *TextAnalyzer) Analyze(ctx context.Context, text string) (*Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	reply, err := t.LLM.Generate(ctx, fmt.Sprintf(factCheckTemplate, text), FactCheckSystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("text analysis: %w", err)
	}

	a := ParseAnalysis(reply)
	a.WordCount = len(strings.Fields(text))
	a.CharCount = utf8.RuneCountInString(text)
	a.Language = DetectLanguage(t.Detector, text)
	a.Model = t.Model

	t.Logger.Info("Text analyzed",
		zap.String("verdict", a.Verdict),
		zap.Int("confidence", a.Confidence),
		zap.String("language", a.Language),
		zap.Int("words", a.WordCount))
	return &a, nil
}

var detectorLanguages = []lingua.Language{
	lingua.English, lingua.Spanish, lingua.French, lingua.German,
	lingua.Italian, lingua.Portuguese, lingua.Dutch, lingua.Russian,
	lingua.Arabic, lingua.Hindi, lingua.Chinese, lingua.Japanese,
}

func NewLanguageDetector() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().
		FromLanguages(detectorLanguages...).
		Build()
}

// DetectLanguage returns the ISO 639-1 code of text, or "unknown" for short
// or undetectable input.
func DetectLanguage(detector lingua.LanguageDetector, text string) string {
	const minTextLength = 20
	if detector == nil || len(text) < minTextLength {
		return "unknown"
	}
	lang, ok := detector.DetectLanguageOf(text)
	if !ok {
		return "unknown"
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
