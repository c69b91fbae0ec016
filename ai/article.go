package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Article is the readable part of a news page.
type Article struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Byline   string `json:"byline,omitempty"`
	SiteName string `json:"site_name,omitempty"`
	Excerpt  string `json:"excerpt,omitempty"`
	Text     string `json:"text"`
}

// FetchArticle downloads rawURL and extracts its main content.
func FetchArticle(ctx context.Context, client *http.Client, userAgent, rawURL string) (*Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch article: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read article: %w", err)
	}
	return ExtractArticle(string(body), rawURL)
}

// ExtractArticle runs readability over html and flattens the result to text.
func ExtractArticle(html, rawURL string) (*Article, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	rp := readability.NewParser()
	parsed, err := rp.Parse(strings.NewReader(html), u)
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(parsed.Content))
	if err != nil {
		return nil, err
	}
	var paras []string
	doc.Find("h1,h2,h3,p,li").Each(func(_ int, s *goquery.Selection) {
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			paras = append(paras, t)
		}
	})
	text := strings.Join(paras, "\n\n")
	if text == "" {
		text = strings.Join(strings.Fields(doc.Text()), " ")
	}

	return &Article{
		URL:      rawURL,
		Title:    strings.TrimSpace(parsed.Title),
		Byline:   parsed.Byline,
		SiteName: parsed.SiteName,
		Excerpt:  parsed.Excerpt,
		Text:     text,
	}, nil
}
