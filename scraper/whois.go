package scraper

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"

	"credibility-scanner/metrics"
)

var ErrNoCreationDate = errors.New("no creation date in whois response")

// WhoisResult is what a single strategy learned. Registrar and privacy may
// be set even when the creation date is missing.
type WhoisResult struct {
	Created        time.Time
	Registrar      string
	PrivacyEnabled bool
}

// Strategy is one way of asking WHOIS about a domain.
type Strategy interface {
	Name() string
	Lookup(ctx context.Context, domain string) (WhoisResult, error)
}

// WhoisOutcome is the merged result of running the strategies in order.
type WhoisOutcome struct {
	AgeYears       float64
	Registrar      string
	PrivacyEnabled bool
	Found          bool
	Strategy       string
}

// WhoisResolver runs its strategies in order and stops at the first one
// that yields a creation date. Each strategy gets its own timeout.
type WhoisResolver struct {
	Strategies []Strategy
	Timeout    time.Duration
	Logger     *zap.Logger
	Now        func() time.Time
}

func NewWhoisResolver(log *zap.Logger, timeout time.Duration, strategies ...Strategy) *WhoisResolver {
	return &WhoisResolver{
		Strategies: strategies,
		Timeout:    timeout,
		Logger:     log,
		Now:        time.Now,
	}
}

func (r *WhoisResolver) Resolve(ctx context.Context, domain string, diag *Diagnostics) WhoisOutcome {
	var out WhoisOutcome
	diag.Addf("Starting WHOIS lookup for %s...", domain)

	for _, s := range r.Strategies {
		res, err := r.run(ctx, s, domain)

		if res.Registrar != "" {
			out.Registrar = CanonicalRegistrar(res.Registrar)
		}
		if res.PrivacyEnabled {
			out.PrivacyEnabled = true
		}

		if err == nil && res.Created.IsZero() {
			err = ErrNoCreationDate
		}
		if err != nil {
			metrics.WhoisLookups.WithLabelValues(s.Name(), "failed").Inc()
			diag.Addf("%s failed: %v", s.Name(), err)
			r.Logger.Debug("WHOIS strategy failed",
				zap.String("strategy", s.Name()),
				zap.String("domain", domain),
				zap.Error(err))
			continue
		}

		metrics.WhoisLookups.WithLabelValues(s.Name(), "ok").Inc()
		out.AgeYears = AgeYears(res.Created, r.Now())
		out.Found = true
		out.Strategy = s.Name()
		diag.Addf("Domain age found via %s: %.1f years", s.Name(), out.AgeYears)
		return out
	}

	return out
}

func (r *WhoisResolver) run(ctx context.Context, s Strategy, domain string) (res WhoisResult, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			res, err = WhoisResult{}, fmt.Errorf("panic: %v", p)
		}
	}()
	return s.Lookup(ctx, domain)
}

// AgeYears converts a creation date into whole days over 365.25, rounded
// to one decimal and never negative.
func AgeYears(created, now time.Time) float64 {
	days := math.Floor(now.Sub(created).Hours() / 24)
	years := round(days/365.25, 1)
	if years < 0 {
		return 0
	}
	return years
}

// Evaluated in order against the raw registrar string (case-sensitive).
var registrarRules = []rule{
	{[]string{"MarkMonitor"}, "MarkMonitor"},
	{[]string{"CSC", "Corporation Service"}, "CSC Corporate"},
	{[]string{"Network Solutions"}, "Network Solutions"},
	{[]string{"Verisign"}, "Verisign"},
	{[]string{"GoDaddy"}, "GoDaddy"},
	{[]string{"Namecheap"}, "Namecheap"},
}

// CanonicalRegistrar maps a registrar name onto the model vocabulary or
// truncates it to 30 characters.
func CanonicalRegistrar(registrar string) string {
	registrar = strings.TrimSpace(registrar)
	for _, r := range registrarRules {
		if r.matches(registrar) {
			return r.label
		}
	}
	return truncate(registrar, 30)
}

var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

func parseWhoisDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrNoCreationDate
	}
	for _, l := range whoisDateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return dateparse.ParseAny(s)
}
