package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"credibility-scanner/ai"
	"credibility-scanner/batch"
	"credibility-scanner/classifier"
	"credibility-scanner/imagecls"
	"credibility-scanner/scraper"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
)

func printScrapeFailure(url string, err error) {
	fmt.Printf("%s %s\n  %s\n", cyan(url), red("[FAILED]"), err)
}

func printRecord(rec *scraper.MetadataRecord, pred *classifier.Prediction, source string) {
	fmt.Println(cyan(rec.Domain))

	if pred != nil {
		verdict := green(pred.Text())
		if !pred.Trusted() {
			verdict = red(pred.Text())
		}
		fmt.Printf("  Prediction:      %s (%.1f%% confidence, %.1f%% trust)\n",
			verdict, pred.Confidence(), pred.TrustProbability())
		if source == classifier.SourcePlaceholder {
			fmt.Printf("  %s\n", yellow("Placeholder model weights: verdict is illustrative only"))
		}
	}

	fmt.Printf("  HTTPS / SSL:     %s / %s  %s, %s, %s\n",
		rec.HasHTTPS, rec.SSLValid, rec.TLSVersion, rec.SSLIssuer, rec.CertificateType)
	fmt.Printf("  Domain:          %g years, registrar %s, privacy %t\n",
		rec.DomainAgeYears, rec.DomainRegistrar, rec.WhoisPrivacyEnabled)
	fmt.Printf("  Response:        %d in %.2fs, %s redirects\n",
		rec.ServerResponseCode, rec.PageLoadTimeSec, humanize.Comma(int64(rec.RedirectCount)))
	fmt.Printf("  Content:         ads %.2f, %s external links, popups %s, mobile %s\n",
		rec.AdsDensityScore, humanize.Comma(int64(rec.ExternalLinksCount)), rec.PopupsPresent, rec.MobileResponsive)
	fmt.Printf("  Transparency:    contact %t, privacy %t, terms %t, social %s\n",
		rec.ContactInfoAvailable, rec.PrivacyPolicyExists, rec.TermsOfServiceExists, rec.SocialMediaPresence)
	fmt.Printf("  Infrastructure:  cdn %s, location %s, hosting %q, updates %s\n",
		rec.CDNUsed, rec.ServerLocation, rec.HostingType, rec.ContentUpdateFrequency)

	if pred != nil {
		in := rec.Indicators()
		for _, p := range in.Positive {
			fmt.Printf("  %s %s\n", green("+"), p)
		}
		for _, n := range in.Negative {
			fmt.Printf("  %s %s\n", red("-"), n)
		}
	}

	for _, d := range rec.DebugInfo {
		fmt.Printf("  %s %s\n", yellow("debug:"), d)
	}
}

func printBatchSummary(s batch.Summary, source string) {
	fmt.Printf("%s rows: %s trusted, %s untrusted\n",
		humanize.Comma(int64(s.Total)),
		green(humanize.Comma(int64(s.Trusted))),
		red(humanize.Comma(int64(s.Untrusted))))
	if source == classifier.SourcePlaceholder {
		fmt.Println(yellow("Placeholder model weights: verdicts are illustrative only"))
	}
}

func printAnalysis(a *ai.Analysis, article *ai.Article) {
	if article != nil {
		fmt.Println(cyan(article.Title))
	}

	var verdict string
	switch a.Category() {
	case "fake":
		verdict = red(a.Verdict)
	case "misleading":
		verdict = yellow(a.Verdict)
	default:
		verdict = green(a.Verdict)
	}
	fmt.Printf("Verdict:        %s (%d%% confidence)\n", verdict, a.Confidence)
	fmt.Printf("Reasoning:      %s\n", a.Reasoning)
	if a.RedFlags != "" && !strings.EqualFold(a.RedFlags, "none") {
		fmt.Printf("Red flags:      %s\n", red(a.RedFlags))
	}
	fmt.Printf("Recommendation: %s\n", a.Recommendation)
	fmt.Printf("Statistics:     %s words, %s characters, language %s\n",
		humanize.Comma(int64(a.WordCount)), humanize.Comma(int64(a.CharCount)), a.Language)
}

func printImageResult(path string, r *imagecls.Result) {
	label := green(r.Label)
	if r.AIGenerated {
		label = red(r.Label)
	}
	fmt.Printf("%s (%s, %dx%d)\n", cyan(path), r.Format, r.Width, r.Height)
	fmt.Printf("  %s with %.1f%% confidence (AI probability %.3f)\n", label, r.Confidence, r.AIProbability)
}
