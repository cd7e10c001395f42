// Package steps provides the step function implementations driven by the
// pipeline orchestrator. Each step wraps one external boundary (site fetch,
// search, model call, image provider, asset store, deploy target) and holds
// no state between calls.
package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/landing-agent/internal/fetch"
	"github.com/jonathan/landing-agent/internal/llm"
	"github.com/jonathan/landing-agent/internal/types"
)

// ScrapeStep extracts content, metadata, and branding from the target site.
// The optional LLM client refines industry classification when keyword
// detection is inconclusive.
type ScrapeStep struct {
	LLM        llm.Client
	UseBrowser bool
	Timeout    time.Duration
	Verbose    bool
}

// NewScrapeStep creates a scrape step with the default timeout.
func NewScrapeStep(client llm.Client) *ScrapeStep {
	return &ScrapeStep{LLM: client, Timeout: fetch.DefaultTimeout}
}

// Scrape fetches the target URL and extracts the site's text, metadata, and
// brand signals. Falls back to headless browser rendering for pages that
// serve no content over plain HTTP.
func (s *ScrapeStep) Scrape(ctx context.Context, targetURL string) (*types.ScrapeResult, error) {
	result, err := fetch.URL(ctx, targetURL, &fetch.Options{
		Timeout:   s.Timeout,
		UserAgent: fetch.DefaultUserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch target site: %w", err)
	}

	html := result.HTML
	text, err := fetch.ExtractMainText(html, fetch.DefaultTextSelectors())
	if err != nil {
		return nil, fmt.Errorf("failed to extract site text: %w", err)
	}

	if s.UseBrowser && fetch.ShouldUseBrowser(text) {
		rendered, berr := fetch.WithBrowser(ctx, targetURL, s.Timeout, s.Verbose)
		if berr != nil {
			log.Printf("[scrape] browser fallback failed, using HTTP content: %v", berr)
		} else {
			html = rendered
			if t, terr := fetch.ExtractMainText(html, fetch.DefaultTextSelectors()); terr == nil {
				text = t
			}
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse site HTML: %w", err)
	}

	meta := extractMetadata(doc, targetURL)
	meta.Industry = detectIndustry(text)
	branding := extractBranding(doc, targetURL)

	if meta.Industry == "general" && s.LLM != nil {
		if industry := s.classifyIndustry(ctx, text); industry != "" {
			meta.Industry = industry
		}
	}

	return &types.ScrapeResult{
		Markdown: text,
		HTML:     html,
		Metadata: meta,
		Branding: branding,
	}, nil
}

// classifyIndustry asks the lite model tier for a site profile. Failures
// leave the keyword-derived classification in place.
func (s *ScrapeStep) classifyIndustry(ctx context.Context, text string) string {
	excerpt := text
	if len(excerpt) > 3000 {
		excerpt = excerpt[:3000]
	}
	prompt := llm.BuildExtractionPrompt(llm.SiteProfileSchema(), excerpt)
	raw, err := s.LLM.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		log.Printf("[scrape] industry classification failed: %v", err)
		return ""
	}
	var profile struct {
		Industry string `json:"industry"`
	}
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &profile); err != nil {
		log.Printf("[scrape] industry classification returned invalid JSON: %v", err)
		return ""
	}
	return strings.TrimSpace(profile.Industry)
}

func extractMetadata(doc *goquery.Document, targetURL string) types.SiteMetadata {
	meta := types.SiteMetadata{URL: targetURL}

	meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if og, ok := metaContent(doc, "og:title"); ok && meta.Title == "" {
		meta.Title = og
	}
	if meta.Title == "" {
		meta.Title = "Untitled"
	}

	if desc, ok := metaName(doc, "description"); ok {
		meta.Description = desc
	} else if og, ok := metaContent(doc, "og:description"); ok {
		meta.Description = og
	}

	if img, ok := metaContent(doc, "og:image"); ok {
		meta.OGImage = absoluteURL(targetURL, img)
	}
	if kw, ok := metaName(doc, "keywords"); ok {
		meta.Keywords = kw
	}
	if author, ok := metaName(doc, "author"); ok {
		meta.Author = author
	}

	if href, ok := doc.Find(`link[rel="icon"], link[rel="shortcut icon"]`).First().Attr("href"); ok {
		meta.Favicon = absoluteURL(targetURL, href)
	}

	return meta
}

func extractBranding(doc *goquery.Document, targetURL string) types.Branding {
	var b types.Branding

	if color, ok := metaName(doc, "theme-color"); ok {
		b.PrimaryColor = color
	}

	if logo, ok := doc.Find(`img[class*="logo"], img[id*="logo"], img[alt*="logo" i]`).First().Attr("src"); ok {
		b.Logo = absoluteURL(targetURL, logo)
	}

	doc.Find("img[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if src, ok := sel.Attr("src"); ok && !strings.HasPrefix(src, "data:") {
			b.ImageURLs = append(b.ImageURLs, absoluteURL(targetURL, src))
		}
		return len(b.ImageURLs) < 5
	})

	return b
}

func metaName(doc *goquery.Document, name string) (string, bool) {
	content, ok := doc.Find(fmt.Sprintf(`meta[name="%s"]`, name)).First().Attr("content")
	content = strings.TrimSpace(content)
	return content, ok && content != ""
}

func metaContent(doc *goquery.Document, property string) (string, bool) {
	content, ok := doc.Find(fmt.Sprintf(`meta[property="%s"]`, property)).First().Attr("content")
	content = strings.TrimSpace(content)
	return content, ok && content != ""
}

func absoluteURL(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

// detectIndustry classifies a site from its content via keyword matching.
func detectIndustry(text string) string {
	content := strings.ToLower(text)

	switch {
	case containsAny(content, "crypto", "blockchain", "bitcoin"):
		return "cryptocurrency"
	case containsAny(content, "machine learning", "artificial intelligence", " ai "):
		return "artificial intelligence"
	case containsAny(content, "saas", "software"):
		return "software"
	case containsAny(content, "finance", "fintech"):
		return "finance"
	case containsAny(content, "health", "medical"):
		return "healthcare"
	default:
		return "general"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
