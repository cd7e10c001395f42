package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/landing-agent/internal/prompts"
	"github.com/jonathan/landing-agent/internal/types"
)

// Image provider endpoints. The edit endpoint takes reference images.
const (
	DefaultImageEndpoint     = "https://fal.run/fal-ai/nano-banana-pro"
	DefaultImageEditEndpoint = "https://fal.run/fal-ai/nano-banana-pro/edit"
)

// sectionIDs are the page sections that receive one generated image each,
// in order. They match the structured spec's section identifiers.
var sectionIDs = []string{"value-proposition", "features", "call-to-action"}

// ImageStep generates one illustrative image per page section. When a
// reference image or scraped brand assets exist it switches to
// image-to-image mode so output matches the existing brand.
type ImageStep struct {
	APIKey       string
	Endpoint     string
	EditEndpoint string
	Client       *http.Client
}

// NewImageStep creates an image generation step against the default provider.
func NewImageStep(apiKey string) *ImageStep {
	return &ImageStep{
		APIKey:       apiKey,
		Endpoint:     DefaultImageEndpoint,
		EditEndpoint: DefaultImageEditEndpoint,
		Client:       &http.Client{Timeout: 120 * time.Second},
	}
}

type imageRequest struct {
	Prompt       string   `json:"prompt"`
	ImageURLs    []string `json:"image_urls,omitempty"`
	NumImages    int      `json:"num_images"`
	AspectRatio  string   `json:"aspect_ratio"`
	OutputFormat string   `json:"output_format"`
	Resolution   string   `json:"resolution"`
}

type imageResponse struct {
	Images []struct {
		URL         string `json:"url"`
		FileName    string `json:"file_name"`
		ContentType string `json:"content_type"`
	} `json:"images"`
}

// GenerateImages produces the per-section images sequentially; the provider
// rate-limits aggressively, so no fan-out here.
func (s *ImageStep) GenerateImages(ctx context.Context, req types.GenerateRequest, scrape *types.ScrapeResult, spec *types.LandingSpec) (*types.ImageGenResult, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("image API key is not configured")
	}

	// Prioritize the user's reference image, then scraped brand assets.
	var refs []string
	if req.ImageURL != "" {
		refs = append(refs, req.ImageURL)
	}
	refs = append(refs, scrape.BrandImageURLs()...)

	method := "text-to-image"
	endpoint := s.Endpoint
	if len(refs) > 0 {
		method = "image-to-image"
		endpoint = s.EditEndpoint
	}

	style := buildStyleContext(scrape)
	result := &types.ImageGenResult{Method: method}

	for i, section := range sectionIDs {
		prompt, err := buildImagePrompt(section, req.CampaignDescription, style, spec.Text)
		if err != nil {
			return nil, err
		}

		images, err := s.generate(ctx, endpoint, prompt, refs)
		if err != nil {
			return nil, fmt.Errorf("%s image generation failed: %w", method, err)
		}
		for j, img := range images {
			name := img.Name
			if name == "" {
				name = fmt.Sprintf("%s-%d.png", section, i*10+j)
			}
			img.Name = name
			result.Images = append(result.Images, img)
		}
	}

	return result, nil
}

func (s *ImageStep) generate(ctx context.Context, endpoint, prompt string, refs []string) ([]types.GeneratedImage, error) {
	body, err := json.Marshal(imageRequest{
		Prompt:       prompt,
		ImageURLs:    refs,
		NumImages:    1,
		AspectRatio:  "1:1",
		OutputFormat: "png",
		Resolution:   "1K",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		errText := string(errBody)
		// 422s here almost always mean the provider could not download a
		// reference image URL.
		if resp.StatusCode == http.StatusUnprocessableEntity || strings.Contains(errText, "download") {
			return nil, fmt.Errorf("image provider cannot access reference URLs (ensure they are public): %d - %s", resp.StatusCode, errText)
		}
		return nil, fmt.Errorf("image API error: %d - %s", resp.StatusCode, errText)
	}

	var parsed imageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode image response: %w", err)
	}

	out := make([]types.GeneratedImage, 0, len(parsed.Images))
	for _, img := range parsed.Images {
		out = append(out, types.GeneratedImage{
			Name:        img.FileName,
			URL:         img.URL,
			ContentType: img.ContentType,
		})
	}
	return out, nil
}

// buildStyleContext summarizes brand identity for the image prompt.
func buildStyleContext(scrape *types.ScrapeResult) string {
	var sb strings.Builder
	sb.WriteString("Style Guide:\n")
	sb.WriteString("- Brand: " + scrape.Metadata.Title + "\n")
	sb.WriteString("- Industry: " + scrape.Metadata.Industry + "\n")
	if scrape.Branding.PrimaryColor != "" {
		sb.WriteString("- Primary Color: " + scrape.Branding.PrimaryColor + "\n")
	}
	if scrape.Branding.SecondaryColor != "" {
		sb.WriteString("- Secondary Color: " + scrape.Branding.SecondaryColor + "\n")
	}
	return sb.String()
}

func buildImagePrompt(section, campaign, style, specText string) (string, error) {
	sectionContext, err := prompts.Get("images.json", "section-"+section)
	if err != nil {
		return "", fmt.Errorf("failed to load section prompt: %w", err)
	}
	template, err := prompts.Get("images.json", "image-body")
	if err != nil {
		return "", fmt.Errorf("failed to load image prompt: %w", err)
	}

	excerpt := specText
	if len(excerpt) > 500 {
		excerpt = excerpt[:500]
	}

	return prompts.Format(template, map[string]string{
		"SectionContext": sectionContext,
		"Campaign":       campaign,
		"StyleGuide":     style,
		"SpecExcerpt":    excerpt,
		"Section":        strings.ReplaceAll(section, "-", " "),
	}), nil
}
