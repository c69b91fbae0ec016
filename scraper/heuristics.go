package scraper

import (
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cloudflare/ahocorasick"
)

var (
	adPattern         = regexp.MustCompile(`(?i)ad|advertisement|banner|sponsor`)
	adIframePattern   = regexp.MustCompile(`(?i)ad|doubleclick|adsense`)
	popupClassPattern = regexp.MustCompile(`(?i)popup|pop-up|popover`)
	popupIDPattern    = regexp.MustCompile(`(?i)popup|pop-up`)
	responsivePattern = regexp.MustCompile(`(?i)responsive|mobile|col-`)
)

var popupExclusions = []string{"cookie", "consent", "gdpr", "privacy"}

var socialPlatforms = []string{
	"facebook.com", "twitter.com", "x.com", "linkedin.com",
	"instagram.com", "youtube.com", "tiktok.com", "pinterest.com",
}

var cdnIndicators = []string{
	"cloudflare", "cloudfront", "akamai", "fastly", "cdn.",
	"maxcdn", "cloudimg", "jsdelivr", "cdnjs",
}

var cdnHeaders = []string{"Server", "X-Cache", "X-Cdn", "Cf-Ray", "X-Amz-Cf-Id", "X-Fastly-Request-Id"}

type signal int

const (
	signalContact signal = iota
	signalPrivacy
	signalTerms
)

type phrase struct {
	text string
	kind signal
}

var pagePhrases = []phrase{
	{"contact", signalContact},
	{"email", signalContact},
	{"phone", signalContact},
	{"address", signalContact},
	{"reach us", signalContact},
	{"get in touch", signalContact},
	{"privacy policy", signalPrivacy},
	{"privacy notice", signalPrivacy},
	{"data protection", signalPrivacy},
	{"terms of service", signalTerms},
	{"terms and conditions", signalTerms},
	{"terms of use", signalTerms},
	{"user agreement", signalTerms},
}

// Heuristics derives content signals from a parsed page. It is safe for
// concurrent use once built.
type Heuristics struct {
	matcher *ahocorasick.Matcher
}

func NewHeuristics() *Heuristics {
	patterns := make([]string, len(pagePhrases))
	for i, p := range pagePhrases {
		patterns[i] = p.text
	}
	return &Heuristics{matcher: ahocorasick.NewStringMatcher(patterns)}
}

// Analyze fills the DOM- and header-derived fields of rec.
func (h *Heuristics) Analyze(rec *MetadataRecord, doc *goquery.Document, header http.Header, pageURL *url.URL) {
	anchors := doc.Find("a[href]")
	hrefs := make([]string, 0, anchors.Length())
	anchors.Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		hrefs = append(hrefs, href)
	})

	rec.ExternalLinksCount = ExternalLinks(hrefs, pageURL.Host)

	total := doc.Find("*").Length()
	rec.AdsDensityScore = AdDensity(countAdElements(doc), total)

	rec.PopupsPresent = yesNo(countPopups(doc) > 3)
	rec.MobileResponsive = mobileResponsive(doc)

	found := h.scanText(strings.ToLower(doc.Text()))
	rec.ContactInfoAvailable = found[signalContact] || anyHrefContains(hrefs, "contact")
	rec.PrivacyPolicyExists = found[signalPrivacy] || anyHrefContains(hrefs, "privacy")
	rec.TermsOfServiceExists = found[signalTerms] || anyHrefContains(hrefs, "terms")

	rec.SocialMediaPresence = SocialPresence(hrefs)

	if usesCDN(doc, header) {
		rec.CDNUsed = "yes"
	} else {
		rec.CDNUsed = "no"
	}

	rec.ContentUpdateFrequency = updateFrequency(doc, header)
	rec.ServerLocation = serverLocation(header)
	rec.HostingType = HostingType(header.Get("Server"), rec.Domain)
}

func (h *Heuristics) scanText(text string) map[signal]bool {
	found := make(map[signal]bool)
	for _, i := range h.matcher.MatchThreadSafe([]byte(text)) {
		found[pagePhrases[i].kind] = true
	}
	return found
}

// AdDensity is ad-like elements over total elements with a floor of one,
// clamped to [0,1] and rounded to two decimals.
func AdDensity(adElements, totalElements int) float64 {
	if totalElements < 1 {
		totalElements = 1
	}
	d := float64(adElements) / float64(totalElements)
	if d > 1 {
		d = 1
	}
	return round(d, 2)
}

func countAdElements(doc *goquery.Document) int {
	n := 0
	doc.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		if c, _ := s.Attr("class"); adPattern.MatchString(c) {
			n++
		}
	})
	doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		if id, _ := s.Attr("id"); adPattern.MatchString(id) {
			n++
		}
	})
	doc.Find("iframe[src]").Each(func(_ int, s *goquery.Selection) {
		if src, _ := s.Attr("src"); adIframePattern.MatchString(src) {
			n++
		}
	})
	return n
}

// countPopups counts popup-like elements, skipping consent banners.
func countPopups(doc *goquery.Document) int {
	n := 0
	count := func(s *goquery.Selection) {
		class, _ := s.Attr("class")
		id, _ := s.Attr("id")
		if !IsConsentElement(class, id) {
			n++
		}
	}
	doc.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		if c, _ := s.Attr("class"); popupClassPattern.MatchString(c) {
			count(s)
		}
	})
	doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		if id, _ := s.Attr("id"); popupIDPattern.MatchString(id) {
			count(s)
		}
	})
	return n
}

// IsConsentElement reports whether class or id marks a cookie or privacy
// banner, which never counts as a popup.
func IsConsentElement(class, id string) bool {
	return containsAny(strings.ToLower(class+" "+id), popupExclusions)
}

func mobileResponsive(doc *goquery.Document) string {
	viewport := doc.Find("meta").FilterFunction(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		_, hasContent := s.Attr("content")
		return name == "viewport" && hasContent
	})
	if viewport.Length() > 0 {
		return "Yes"
	}

	responsive := 0
	doc.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		if c, _ := s.Attr("class"); responsivePattern.MatchString(c) {
			responsive++
		}
	})
	if responsive > 5 {
		return "Partial"
	}
	return "No"
}

// SocialPresence counts distinct links to the tracked platforms.
// "high" is never produced.
func SocialPresence(hrefs []string) string {
	seen := make(map[string]struct{})
	for _, href := range hrefs {
		if containsAny(strings.ToLower(href), socialPlatforms) {
			seen[href] = struct{}{}
		}
	}
	switch {
	case len(seen) >= 2:
		return "medium"
	case len(seen) == 1:
		return "low"
	default:
		return "none"
	}
}

// ExternalLinks counts absolute http(s) links whose host differs from the
// page host. Ports are ignored.
func ExternalLinks(hrefs []string, pageHost string) int {
	pageName := pageHost
	if h, _, err := net.SplitHostPort(pageHost); err == nil {
		pageName = h
	}

	n := 0
	for _, href := range hrefs {
		if !strings.HasPrefix(href, "http") {
			continue
		}
		u, err := url.Parse(href)
		if err != nil || u.Host == "" {
			if !strings.Contains(href, pageName) {
				n++
			}
			continue
		}
		if !strings.EqualFold(u.Hostname(), pageName) {
			n++
		}
	}
	return n
}

func anyHrefContains(hrefs []string, sub string) bool {
	for _, href := range hrefs {
		if strings.Contains(strings.ToLower(href), sub) {
			return true
		}
	}
	return false
}

func usesCDN(doc *goquery.Document, header http.Header) bool {
	found := false
	doc.Find("script[src], link[href], img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		href, _ := s.Attr("href")
		if containsAny(strings.ToLower(src+href), cdnIndicators) {
			found = true
			return false
		}
		return true
	})
	if found {
		return true
	}

	for _, name := range cdnHeaders {
		v := header.Get(name)
		if v == "" {
			continue
		}
		v = strings.ToLower(v)
		if containsAny(v, cdnIndicators) || strings.Contains(v, "cache") {
			return true
		}
	}
	return false
}

func updateFrequency(doc *goquery.Document, header http.Header) string {
	if header.Get("Last-Modified") != "" {
		return "weekly"
	}
	if doc.Find(`meta[property="article:modified_time"], meta[name="last-modified"]`).Length() > 0 {
		return "weekly"
	}
	return "irregular"
}

func serverLocation(header http.Header) string {
	if header.Get("Cf-Ray") != "" || strings.Contains(strings.ToLower(header.Get("Server")), "cloudflare") {
		return "USA"
	}
	return "Unknown"
}
