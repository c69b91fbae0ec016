package scraper

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"credibility-scanner/metrics"
)

const (
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 10 << 20
	maxRedirects        = 30
)

// Scraper fetches a page and runs the TLS, DOM and WHOIS lookups on it in
// sequence. Everything it needs is held in its fields.
type Scraper struct {
	Client       *http.Client
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64

	TLS        *TLSInspector
	Whois      *WhoisResolver
	Heuristics *Heuristics
	// Geo refines server_location when set.
	Geo *GeoLocator

	Logger *zap.Logger
}

// NewScraper builds a scraper with the default lookups.
func NewScraper(log *zap.Logger) *Scraper {
	return &Scraper{
		Client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				// The page is fetched even when its certificate is bad;
				// validity is judged separately by the TLS inspector.
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		UserAgent:    DefaultUserAgent,
		Timeout:      DefaultTimeout,
		MaxBodyBytes: DefaultMaxBodyBytes,
		TLS:          NewTLSInspector(5 * time.Second),
		Whois:        NewWhoisResolver(log, 5*time.Second, DefaultStrategies(5*time.Second, DefaultWhoisAPIURL, "at_free")...),
		Heuristics:   NewHeuristics(),
		Logger:       log,
	}
}

// NormalizeURL prepends https:// when no scheme is given.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "https://" + raw
	}
	return raw
}

// WhoisDomain returns the registrable domain for host, or host itself when
// it has none (IP addresses, single labels).
func WhoisDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if net.ParseIP(host) != nil {
		return host
	}
	if apex, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return apex
	}
	return host
}

// Scrape collects the metadata record for rawURL. A non-nil error is always
// a *ScrapeError describing a fetch-phase failure; sub-lookup failures are
// recorded in the record's diagnostics instead.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*MetadataRecord, error) {
	start := time.Now()
	rec, err := s.scrape(ctx, rawURL)
	metrics.ScrapeLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		se := classifyFetchError(err)
		metrics.Scrapes.WithLabelValues(string(se.Kind)).Inc()
		s.Logger.Warn("Scrape failed",
			zap.String("url", rawURL),
			zap.String("kind", string(se.Kind)),
			zap.Error(se.Err))
		return nil, se
	}

	metrics.Scrapes.WithLabelValues("ok").Inc()
	s.Logger.Info("Scrape completed",
		zap.String("domain", rec.Domain),
		zap.Int("status", rec.ServerResponseCode),
		zap.Float64("domain_age_years", rec.DomainAgeYears),
		zap.Duration("elapsed", time.Since(start)))
	return rec, nil
}

func (s *Scraper) scrape(ctx context.Context, rawURL string) (*MetadataRecord, error) {
	rec := NewRecord()

	u, err := url.Parse(NormalizeURL(rawURL))
	if err != nil {
		return nil, requestError(err)
	}
	rec.Domain = u.Host
	if rec.Domain == "" {
		rec.Domain = u.Path
	}
	rec.HasHTTPS = yesNo(u.Scheme == "https")

	resp, body, err := s.fetch(ctx, u, rec)
	if err != nil {
		return nil, err
	}

	if u.Scheme == "https" {
		s.inspectTLS(ctx, u, rec)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, scrapingError(err)
	}
	s.Heuristics.Analyze(rec, doc, resp.Header, u)

	if s.Geo != nil && rec.ServerLocation == "Unknown" {
		loc, err := s.Geo.Locate(ctx, u.Hostname())
		if err != nil {
			rec.DebugInfo.Addf("Geo lookup failed: %v", err)
		} else {
			rec.ServerLocation = loc
		}
	}

	s.resolveDomainFacts(ctx, u, rec)
	return rec, nil
}

// fetch performs the single GET, recording load time, status and redirects.
func (s *Scraper) fetch(ctx context.Context, u *url.URL, rec *MetadataRecord) (*http.Response, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	redirects := 0
	client := *s.Client
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("exceeded %d redirects", maxRedirects)
		}
		redirects = len(via)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, nil, requestError(err)
	}
	req.Header.Set("User-Agent", s.UserAgent)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.MaxBodyBytes))
	if err != nil {
		return nil, nil, err
	}

	rec.PageLoadTimeSec = round(time.Since(start).Seconds(), 2)
	rec.ServerResponseCode = resp.StatusCode
	rec.RedirectCount = redirects
	return resp, body, nil
}

func (s *Scraper) inspectTLS(ctx context.Context, u *url.URL, rec *MetadataRecord) {
	res, err := s.TLS.Inspect(ctx, u.Hostname(), "")
	if err != nil {
		metrics.TLSHandshakes.WithLabelValues("failed").Inc()
		rec.SSLValid = "No"
		rec.SSLIssuer = "Unknown"
		rec.DebugInfo.Addf("TLS inspection failed: %v", err)
		return
	}
	metrics.TLSHandshakes.WithLabelValues("ok").Inc()
	rec.SSLValid = "Yes"
	rec.TLSVersion = res.Version
	rec.SSLIssuer = res.Issuer
	rec.CertificateType = res.CertificateType
}

func (s *Scraper) resolveDomainFacts(ctx context.Context, u *url.URL, rec *MetadataRecord) {
	out := s.Whois.Resolve(ctx, WhoisDomain(u.Hostname()), &rec.DebugInfo)
	if out.Registrar != "" {
		rec.DomainRegistrar = out.Registrar
	}
	rec.WhoisPrivacyEnabled = out.PrivacyEnabled

	if out.Found {
		rec.DomainAgeYears = out.AgeYears
		return
	}

	if applyKnownSiteFallback(rec) {
		metrics.WhoisFallbacks.Inc()
		return
	}
	rec.DebugInfo.Addf("Could not retrieve actual domain age - using default neutral value (%g years)", rec.DomainAgeYears)
}
