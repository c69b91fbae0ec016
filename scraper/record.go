package scraper

import (
	"fmt"
	"math"

	"credibility-scanner/features"
)

// Diagnostics is the ordered, append-only debug log attached to a record.
type Diagnostics []string

func (d *Diagnostics) Addf(format string, args ...any) {
	*d = append(*d, fmt.Sprintf(format, args...))
}

// MetadataRecord holds the credibility signals collected for one URL.
// It is created per scrape call and never shared between requests.
type MetadataRecord struct {
	Domain string `json:"domain"`

	HasHTTPS        string `json:"has_https"`
	SSLValid        string `json:"ssl_valid"`
	SSLIssuer       string `json:"ssl_issuer"`
	TLSVersion      string `json:"tls_version"`
	CertificateType string `json:"certificate_type"`

	DomainAgeYears      float64 `json:"domain_age_years"`
	DomainRegistrar     string  `json:"domain_registrar"`
	WhoisPrivacyEnabled bool    `json:"whois_privacy_enabled"`

	PageLoadTimeSec    float64 `json:"page_load_time_sec"`
	RedirectCount      int     `json:"redirect_count"`
	ServerResponseCode int     `json:"server_response_code"`

	AdsDensityScore        float64 `json:"ads_density_score"`
	ExternalLinksCount     int     `json:"external_links_count"`
	PopupsPresent          string  `json:"popups_present"`
	ServerLocation         string  `json:"server_location"`
	HostingType            string  `json:"hosting_type"`
	CDNUsed                string  `json:"cdn_used"`
	ContactInfoAvailable   bool    `json:"contact_info_available"`
	PrivacyPolicyExists    bool    `json:"privacy_policy_exists"`
	TermsOfServiceExists   bool    `json:"terms_of_service_exists"`
	SocialMediaPresence    string  `json:"social_media_presence"`
	ContentUpdateFrequency string  `json:"content_update_frequency"`
	MobileResponsive       string  `json:"mobile_responsive"`

	DebugInfo Diagnostics `json:"debug_info"`
}

// DefaultDomainAgeYears is used when no lookup or fallback yields an age.
const DefaultDomainAgeYears = 5.0

// NewRecord returns a record populated with the neutral defaults.
func NewRecord() *MetadataRecord {
	return &MetadataRecord{
		HasHTTPS:               "No",
		SSLValid:               "No",
		SSLIssuer:              "Unknown",
		TLSVersion:             "none",
		CertificateType:        "none",
		DomainAgeYears:         DefaultDomainAgeYears,
		DomainRegistrar:        "Unknown",
		ServerResponseCode:     404,
		PopupsPresent:          "No",
		ServerLocation:         "Unknown",
		CDNUsed:                "no",
		SocialMediaPresence:    "low",
		ContentUpdateFrequency: "irregular",
		MobileResponsive:       "No",
		DebugInfo:              Diagnostics{},
	}
}

// FeatureRow exposes the record's scalar fields to the feature aligner.
// domain and debug_info are not model inputs.
func (r *MetadataRecord) FeatureRow() features.Row {
	return features.Row{
		"has_https":                features.Category(r.HasHTTPS),
		"ssl_valid":                features.Category(r.SSLValid),
		"ssl_issuer":               features.Category(r.SSLIssuer),
		"tls_version":              features.Category(r.TLSVersion),
		"certificate_type":         features.Category(r.CertificateType),
		"domain_age_years":         features.Number(r.DomainAgeYears),
		"domain_registrar":         features.Category(r.DomainRegistrar),
		"whois_privacy_enabled":    features.Bool(r.WhoisPrivacyEnabled),
		"page_load_time_sec":       features.Number(r.PageLoadTimeSec),
		"redirect_count":           features.Int(r.RedirectCount),
		"server_response_code":     features.Int(r.ServerResponseCode),
		"ads_density_score":        features.Number(r.AdsDensityScore),
		"external_links_count":     features.Int(r.ExternalLinksCount),
		"popups_present":           features.Category(r.PopupsPresent),
		"server_location":          features.Category(r.ServerLocation),
		"hosting_type":             features.Category(r.HostingType),
		"cdn_used":                 features.Category(r.CDNUsed),
		"contact_info_available":   features.Bool(r.ContactInfoAvailable),
		"privacy_policy_exists":    features.Bool(r.PrivacyPolicyExists),
		"terms_of_service_exists":  features.Bool(r.TermsOfServiceExists),
		"social_media_presence":    features.Category(r.SocialMediaPresence),
		"content_update_frequency": features.Category(r.ContentUpdateFrequency),
		"mobile_responsive":        features.Category(r.MobileResponsive),
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
