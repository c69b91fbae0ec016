package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	whois "github.com/likexian/whois"
	parser "github.com/likexian/whois-parser"
)

// DefaultStrategies returns the three lookups in the order they are tried.
func DefaultStrategies(timeout time.Duration, apiURL, apiKey string) []Strategy {
	return []Strategy{
		NewLibraryStrategy(timeout),
		NewAPIStrategy(apiURL, apiKey, timeout),
		NewRawStrategy(timeout),
	}
}

//
// STRUCTURED WHOIS CLIENT
//

type LibraryStrategy struct {
	client *whois.Client
}

func NewLibraryStrategy(timeout time.Duration) *LibraryStrategy {
	c := whois.NewClient()
	c.SetTimeout(timeout)
	return &LibraryStrategy{client: c}
}

func (s *LibraryStrategy) Name() string { return "whois-client" }

func (s *LibraryStrategy) Lookup(ctx context.Context, domain string) (WhoisResult, error) {
	type answer struct {
		raw string
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		raw, err := s.client.Whois(domain)
		ch <- answer{raw, err}
	}()

	var raw string
	select {
	case <-ctx.Done():
		return WhoisResult{}, ctx.Err()
	case a := <-ch:
		if a.err != nil {
			return WhoisResult{}, a.err
		}
		raw = a.raw
	}

	return parseStructured(raw)
}

var privacyKeywords = []string{"privacy", "protect", "whoisguard", "proxy"}

func parseStructured(raw string) (WhoisResult, error) {
	var res WhoisResult

	info, err := parser.Parse(raw)
	if err != nil {
		return res, err
	}

	if info.Registrar != nil {
		res.Registrar = info.Registrar.Name
	}
	for _, c := range []*parser.Contact{info.Registrar, info.Registrant, info.Administrative, info.Technical, info.Billing} {
		if c != nil && containsAny(strings.ToLower(c.Email), privacyKeywords) {
			res.PrivacyEnabled = true
		}
	}

	if info.Domain == nil {
		return res, ErrNoCreationDate
	}
	created, err := parseWhoisDate(info.Domain.CreatedDate)
	if err != nil {
		return res, err
	}
	res.Created = created
	return res, nil
}

//
// WHOIS OVER HTTP
//

const DefaultWhoisAPIURL = "https://www.whoisxmlapi.com/whoisserver/WhoisService"

type APIStrategy struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewAPIStrategy(baseURL, apiKey string, timeout time.Duration) *APIStrategy {
	if baseURL == "" {
		baseURL = DefaultWhoisAPIURL
	}
	return &APIStrategy{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (s *APIStrategy) Name() string { return "whois-api" }

type whoisAPIResponse struct {
	WhoisRecord *struct {
		CreatedDate   string `json:"createdDate"`
		RegistrarName string `json:"registrarName"`
	} `json:"WhoisRecord"`
}

func (s *APIStrategy) Lookup(ctx context.Context, domain string) (WhoisResult, error) {
	var res WhoisResult

	q := url.Values{}
	q.Set("apiKey", s.APIKey)
	q.Set("domainName", domain)
	q.Set("outputFormat", "JSON")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return res, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return res, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return res, fmt.Errorf("API error (status %d)", resp.StatusCode)
	}

	var body whoisAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return res, fmt.Errorf("decode response: %w", err)
	}
	if body.WhoisRecord == nil {
		return res, ErrNoCreationDate
	}

	res.Registrar = body.WhoisRecord.RegistrarName
	if body.WhoisRecord.CreatedDate == "" {
		return res, ErrNoCreationDate
	}

	// 2024-01-15T00:00:00Z, only the date part is used.
	datePart := strings.SplitN(body.WhoisRecord.CreatedDate, "T", 2)[0]
	created, err := time.Parse("2006-01-02", datePart)
	if err != nil {
		return res, fmt.Errorf("parse createdDate: %w", err)
	}
	res.Created = created
	return res, nil
}

//
// RAW WHOIS (port 43)
//

var defaultWhoisServers = map[string]string{
	"com": "whois.verisign-grs.com",
	"net": "whois.verisign-grs.com",
	"org": "whois.pir.org",
	"uk":  "whois.nic.uk",
	"io":  "whois.nic.io",
	"co":  "whois.nic.co",
}

type datePattern struct {
	re     *regexp.Regexp
	layout string
}

var creationDatePatterns = []datePattern{
	{regexp.MustCompile(`(?i)Creation Date:\s*(\d{4}-\d{2}-\d{2})`), "2006-01-02"},
	{regexp.MustCompile(`(?i)Created:\s*(\d{4}-\d{2}-\d{2})`), "2006-01-02"},
	{regexp.MustCompile(`(?i)Registration Date:\s*(\d{4}-\d{2}-\d{2})`), "2006-01-02"},
	{regexp.MustCompile(`(?i)Registered on:\s*(\d{2}-\w{3}-\d{4})`), "02-Jan-2006"},
}

var registrarPattern = regexp.MustCompile(`(?i)Registrar:[ \t]*(.+)`)

type RawStrategy struct {
	// Servers maps a TLD to its WHOIS host. Unmapped TLDs use whois.nic.<tld>.
	Servers map[string]string
	Port    string
	Timeout time.Duration
}

func NewRawStrategy(timeout time.Duration) *RawStrategy {
	return &RawStrategy{Servers: defaultWhoisServers, Port: "43", Timeout: timeout}
}

func (s *RawStrategy) Name() string { return "whois-raw" }

func (s *RawStrategy) server(domain string) string {
	labels := strings.Split(domain, ".")
	tld := strings.ToLower(labels[len(labels)-1])
	if srv, ok := s.Servers[tld]; ok {
		return srv
	}
	return "whois.nic." + tld
}

func (s *RawStrategy) Lookup(ctx context.Context, domain string) (WhoisResult, error) {
	d := &net.Dialer{Timeout: s.Timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(s.server(domain), s.Port))
	if err != nil {
		return WhoisResult{}, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := fmt.Fprintf(conn, "%s\r\n", domain); err != nil {
		return WhoisResult{}, err
	}
	raw, err := io.ReadAll(io.LimitReader(conn, 1<<20))
	if err != nil {
		return WhoisResult{}, err
	}

	return parseRawWhois(string(raw))
}

func parseRawWhois(text string) (WhoisResult, error) {
	var res WhoisResult

	if m := registrarPattern.FindStringSubmatch(text); m != nil {
		res.Registrar = strings.TrimSpace(m[1])
	}

	for _, p := range creationDatePatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		t, err := time.Parse(p.layout, m[1])
		if err != nil {
			continue
		}
		res.Created = t
		return res, nil
	}
	return res, ErrNoCreationDate
}
