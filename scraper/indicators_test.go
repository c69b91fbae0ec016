package scraper

import (
	"reflect"
	"testing"
)

func TestIndicators(t *testing.T) {
	rec := NewRecord()
	rec.HasHTTPS = "Yes"
	rec.SSLValid = "Yes"
	rec.DomainAgeYears = 26
	rec.PrivacyPolicyExists = true
	rec.CDNUsed = "yes"
	rec.AdsDensityScore = 0.45

	in := rec.Indicators()
	wantPos := []string{
		"HTTPS encryption enabled",
		"Valid SSL certificate",
		"Established domain (26 years)",
		"Privacy policy present",
		"Content delivery network in use",
	}
	if !reflect.DeepEqual(in.Positive, wantPos) {
		t.Errorf("Positive = %v", in.Positive)
	}
	wantNeg := []string{"High advertisement density (0.45)", "No contact information found"}
	if !reflect.DeepEqual(in.Negative, wantNeg) {
		t.Errorf("Negative = %v", in.Negative)
	}
}

func TestIndicatorsDefaultRecord(t *testing.T) {
	in := NewRecord().Indicators()
	if len(in.Positive) != 1 || in.Positive[0] != "Established domain (5 years)" {
		t.Errorf("Positive = %v", in.Positive)
	}
	if len(in.Negative) != 4 {
		t.Errorf("Negative = %v", in.Negative)
	}
}
