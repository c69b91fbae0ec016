package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"credibility-scanner/ai"
	"credibility-scanner/api"
	"credibility-scanner/batch"
	"credibility-scanner/classifier"
	"credibility-scanner/config"
	"credibility-scanner/features"
	"credibility-scanner/imagecls"
	"credibility-scanner/logger"
	"credibility-scanner/scraper"
)

// app holds every collaborator built from configuration.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	scraper  *scraper.Scraper
	pipeline *classifier.Pipeline
	batch    *batch.Processor
	text     *ai.TextAnalyzer
	images   *imagecls.Classifier
}

func setup(c *cli.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	s := scraper.NewScraper(log)
	s.UserAgent = cfg.UserAgent
	s.Timeout = cfg.ScrapeTimeoutDuration()
	s.MaxBodyBytes = cfg.MaxBodyBytes
	s.TLS = scraper.NewTLSInspector(cfg.TLSTimeoutDuration())
	whoisTimeout := cfg.WhoisTimeoutDuration()
	s.Whois = scraper.NewWhoisResolver(log, whoisTimeout,
		scraper.DefaultStrategies(whoisTimeout, cfg.WhoisAPIURL, cfg.WhoisAPIKey)...)
	if cfg.GeoLookupEnabled {
		s.Geo = scraper.NewGeoLocator(cfg.GeoAPIURL, cfg.TLSTimeoutDuration())
	}

	schema, err := features.LoadSchema(cfg.FeatureSchemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load feature schema: %w", err)
	}
	aligner := features.NewAligner(schema)

	var model classifier.Classifier
	if cfg.ModelServerURL != "" {
		breaker := classifier.NewCircuitBreaker(log, "model-server", cfg.BreakerThreshold, cfg.BreakerResetDuration())
		model = classifier.NewHTTPClassifier(log, cfg.ModelServerURL, schema.NFeaturesIn, cfg.ModelTimeoutDuration(), breaker)
	} else {
		lm, err := classifier.LoadLogisticModel(cfg.ModelWeightsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load model weights: %w", err)
		}
		if lm.Placeholder {
			log.Warn("Using placeholder model weights, predictions are illustrative only",
				zap.String("weights", cfg.ModelWeightsPath),
				zap.String("hint", "set MODEL_SERVER_URL to use the trained classifier"))
		}
		model = lm
	}
	pipeline := classifier.NewPipeline(aligner, model)

	a := &app{
		cfg:      cfg,
		log:      log,
		scraper:  s,
		pipeline: pipeline,
		batch:    batch.NewProcessor(pipeline, log),
		images:   imagecls.NewClassifier(cfg.ImageModelURL, cfg.ModelTimeoutDuration(), log),
	}

	gemini, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	switch {
	case err == nil:
		a.text = ai.NewTextAnalyzer(gemini, gemini.Model, log)
	case errors.Is(err, ai.ErrMissingAPIKey):
		log.Info("Text analysis disabled", zap.String("reason", err.Error()))
	default:
		return nil, err
	}

	log.Info("Scanner configured",
		zap.Int("model_features", model.InputDim()),
		zap.String("model", pipeline.Source()),
		zap.Bool("geo_lookup", cfg.GeoLookupEnabled))
	return a, nil
}

func serveAction(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	h := &api.Handler{
		Scraper:  a.scraper,
		Pipeline: a.pipeline,
		Batch:    a.batch,
		Text:     a.text,
		Images:   a.images,
		Logger:   a.log,
	}
	srv := &http.Server{
		Addr:              ":" + a.cfg.ServerPort,
		Handler:           h.Routes(a.cfg.MetricsPath),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("Credibility scanner listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func scrapeAction(c *cli.Context) error {
	return scrapeURLs(c, false)
}

func predictAction(c *cli.Context) error {
	return scrapeURLs(c, true)
}

type urlResult struct {
	URL        string                  `json:"url"`
	Record     *scraper.MetadataRecord `json:"record,omitempty"`
	Prediction *api.PredictionResponse `json:"prediction,omitempty"`
	Indicators *scraper.Indicators     `json:"indicators,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// scrapeURLs visits each argument in turn, paced by SCRAPE_RATE_LIMIT.
func scrapeURLs(c *cli.Context, classify bool) error {
	urls := c.Args().Slice()
	if len(urls) == 0 {
		return errors.New("at least one URL is required")
	}
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	limit := rate.Inf
	if a.cfg.ScrapeRateLimit > 0 {
		limit = rate.Limit(a.cfg.ScrapeRateLimit)
	}
	limiter := rate.NewLimiter(limit, 1)

	ctx := c.Context
	var results []urlResult
	failed := 0
	for _, u := range urls {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		res := urlResult{URL: u}
		rec, err := a.scraper.Scrape(ctx, u)
		if err != nil {
			res.Error = err.Error()
			failed++
			results = append(results, res)
			if !c.Bool("json") {
				printScrapeFailure(u, err)
			}
			continue
		}
		res.Record = rec

		var pred *classifier.Prediction
		if classify {
			row := rec.FeatureRow()
			if dropped := a.pipeline.Aligner.Unknown(row); len(dropped) > 0 {
				rec.DebugInfo.Addf("Feature columns not in schema: %s", strings.Join(dropped, ", "))
			}
			p, err := a.pipeline.PredictRow(ctx, row)
			if err != nil {
				return err
			}
			pred = &p
			pr := api.NewPredictionResponse(p, a.pipeline.Source())
			in := rec.Indicators()
			res.Prediction = &pr
			res.Indicators = &in
		}
		results = append(results, res)

		if !c.Bool("json") {
			printRecord(rec, pred, a.pipeline.Source())
		}
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	if len(urls) > 1 {
		fmt.Printf("\n%s scanned, %s failed\n",
			humanize.Comma(int64(len(urls))), humanize.Comma(int64(failed)))
	}
	return nil
}

func batchAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one input file is required")
	}
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	table, err := batch.ReadFile(c.Args().First())
	if err != nil {
		return err
	}
	res, err := a.batch.Run(c.Context, table)
	if err != nil {
		return err
	}

	out := os.Stdout
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := res.WriteCSV(out); err != nil {
		return err
	}
	if out != os.Stdout {
		if st, err := out.Stat(); err == nil {
			fmt.Fprintf(os.Stderr, "wrote %s (%s)\n", out.Name(), humanize.Bytes(uint64(st.Size())))
		}
	}
	printBatchSummary(res.Summary, a.pipeline.Source())
	return nil
}

func analyzeTextAction(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.log.Sync()
	if a.text == nil {
		return ai.ErrMissingAPIKey
	}

	text := c.String("text")
	var article *ai.Article
	switch {
	case c.String("file") != "":
		data, err := os.ReadFile(c.String("file"))
		if err != nil {
			return err
		}
		text = string(data)
	case c.String("url") != "":
		article, err = ai.FetchArticle(c.Context, a.scraper.Client, a.scraper.UserAgent, scraper.NormalizeURL(c.String("url")))
		if err != nil {
			return err
		}
		text = article.Text
	}
	if strings.TrimSpace(text) == "" && c.NArg() > 0 {
		text = strings.Join(c.Args().Slice(), " ")
	}

	analysis, err := a.text.Analyze(c.Context, text)
	if err != nil {
		return err
	}
	printAnalysis(analysis, article)
	return nil
}

func classifyImageAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one image path is required")
	}
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	f, err := os.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := a.images.Classify(c.Context, f)
	if err != nil {
		return err
	}
	printImageResult(c.Args().First(), res)
	return nil
}
