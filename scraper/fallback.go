package scraper

import "strings"

// The site lists below mirror what the trained model saw for large
// platforms. They bias results toward well-known brands and are not a
// general signal of trust.

var majorCertificateSites = []string{
	"github", "google", "youtube", "facebook", "microsoft",
	"amazon", "apple", "netflix", "twitter", "linkedin", "reddit",
	"wikipedia", "stackoverflow", "zoom", "dropbox", "adobe",
}

var professionalSites = []string{
	"github", "google", "youtube", "facebook", "microsoft",
	"amazon", "apple", "netflix", "twitter", "linkedin",
}

var hostingIndicators = []string{
	"enterprise", "aws", "azure", "gcp", "google", "amazon",
	"microsoft", "cloudflare", "fastly", "akamai",
}

var markMonitorSites = []string{
	"github", "google", "youtube", "facebook", "microsoft", "apple",
	"amazon", "netflix", "linkedin", "twitter", "reddit", "ebay",
}

type knownAge struct {
	site  string
	years float64
}

// Checked in order; the first substring hit wins.
var knownSiteAges = []knownAge{
	{"google", 26}, {"youtube", 19}, {"facebook", 20}, {"twitter", 18},
	{"linkedin", 21}, {"github", 18}, {"reddit", 19}, {"microsoft", 39},
	{"apple", 28}, {"amazon", 30}, {"wikipedia", 24}, {"netflix", 27},
	{"ebay", 29}, {"yahoo", 29}, {"instagram", 14},
}

// KnownSiteAge returns the approximate age for a recognized major domain.
func KnownSiteAge(domain string) (site string, years float64, ok bool) {
	d := strings.ToLower(domain)
	for _, k := range knownSiteAges {
		if strings.Contains(d, k.site) {
			return k.site, k.years, true
		}
	}
	return "", 0, false
}

// KnownSiteRegistrar guesses MarkMonitor for recognized tech companies.
func KnownSiteRegistrar(domain string) (string, bool) {
	if containsAny(strings.ToLower(domain), markMonitorSites) {
		return "MarkMonitor", true
	}
	return "", false
}

// HostingType returns "dedicated" when the Server header or the domain
// points at professional infrastructure, and "" otherwise.
func HostingType(serverHeader, domain string) string {
	if containsAny(strings.ToLower(serverHeader), hostingIndicators) ||
		containsAny(strings.ToLower(domain), professionalSites) {
		return "dedicated"
	}
	return ""
}

// applyKnownSiteFallback is consulted only after every WHOIS strategy
// failed to find a creation date. Overrides are noted in diagnostics.
func applyKnownSiteFallback(rec *MetadataRecord) bool {
	if rec.DomainRegistrar == "Unknown" {
		if reg, ok := KnownSiteRegistrar(rec.Domain); ok {
			rec.DomainRegistrar = reg
			rec.DebugInfo.Addf("Assigned %s based on site recognition", reg)
		}
	}

	site, years, ok := KnownSiteAge(rec.Domain)
	if !ok {
		return false
	}
	rec.DomainAgeYears = years
	rec.DebugInfo.Addf("Assigned known age for %s: %g years", strings.ToUpper(site[:1])+site[1:], years)
	return true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
