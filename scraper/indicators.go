package scraper

import "fmt"

// Indicators lists the record's notable trust and risk signals for display
// next to a prediction.
type Indicators struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
}

func (r *MetadataRecord) Indicators() Indicators {
	var in Indicators

	if r.HasHTTPS == "Yes" {
		in.Positive = append(in.Positive, "HTTPS encryption enabled")
	}
	if r.SSLValid == "Yes" {
		in.Positive = append(in.Positive, "Valid SSL certificate")
	}
	if r.DomainAgeYears >= 5 {
		in.Positive = append(in.Positive, fmt.Sprintf("Established domain (%g years)", r.DomainAgeYears))
	}
	if r.ContactInfoAvailable {
		in.Positive = append(in.Positive, "Contact information available")
	}
	if r.PrivacyPolicyExists {
		in.Positive = append(in.Positive, "Privacy policy present")
	}
	if r.CDNUsed == "yes" {
		in.Positive = append(in.Positive, "Content delivery network in use")
	}

	if r.HasHTTPS == "No" {
		in.Negative = append(in.Negative, "Missing HTTPS encryption")
	}
	if r.SSLValid == "No" {
		in.Negative = append(in.Negative, "Invalid SSL certificate")
	}
	if r.DomainAgeYears < 1 {
		in.Negative = append(in.Negative, "Recently registered domain")
	}
	if r.AdsDensityScore > 0.3 {
		in.Negative = append(in.Negative, fmt.Sprintf("High advertisement density (%.2f)", r.AdsDensityScore))
	}
	if !r.ContactInfoAvailable {
		in.Negative = append(in.Negative, "No contact information found")
	}
	if !r.PrivacyPolicyExists {
		in.Negative = append(in.Negative, "No privacy policy found")
	}
	if r.PopupsPresent == "Yes" {
		in.Negative = append(in.Negative, "Popup elements detected")
	}
	return in
}
