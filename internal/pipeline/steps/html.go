package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/landing-agent/internal/llm"
	"github.com/jonathan/landing-agent/internal/prompts"
	"github.com/jonathan/landing-agent/internal/types"
)

// HTMLStep synthesizes the complete standalone page document from the
// content spec and uploaded assets.
type HTMLStep struct {
	LLM llm.Client
}

// NewHTMLStep creates the HTML generation step.
func NewHTMLStep(client llm.Client) *HTMLStep {
	return &HTMLStep{LLM: client}
}

// GenerateHTML produces a single self-contained HTML document. The output
// must start with a doctype; anything else from the model is rejected.
func (s *HTMLStep) GenerateHTML(ctx context.Context, spec *types.LandingSpec, scrape *types.ScrapeResult, assets []types.UploadedAsset, targetURL string) (string, error) {
	template, err := prompts.Get("html.json", "generate-page")
	if err != nil {
		return "", fmt.Errorf("failed to load html prompt: %w", err)
	}

	prompt := prompts.Format(template, map[string]string{
		"Spec":        spec.Text,
		"Title":       scrape.Metadata.Title,
		"Description": scrape.Metadata.Description,
		"OGImage":     scrape.Metadata.OGImage,
		"Favicon":     scrape.Metadata.Favicon,
		"ImageList":   formatImageList(assets),
		"TargetURL":   targetURL,
	})

	raw, err := s.LLM.GenerateContent(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return "", fmt.Errorf("html generation failed: %w", err)
	}

	html := llm.CleanHTMLBlock(raw)
	if err := validateDocument(html); err != nil {
		return "", err
	}
	return html, nil
}

// formatImageList renders the uploaded assets as a prompt-friendly listing.
func formatImageList(assets []types.UploadedAsset) string {
	if len(assets) == 0 {
		return "(no generated images available; use CSS gradients and shapes instead)"
	}
	var b strings.Builder
	for _, a := range assets {
		fmt.Fprintf(&b, "- %s: %s\n", a.Name, a.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

// validateDocument checks that the model returned a full HTML document
// rather than a fragment or a refusal.
func validateDocument(html string) error {
	lower := strings.ToLower(html)
	if !strings.HasPrefix(lower, "<!doctype") {
		return fmt.Errorf("generated output does not start with a doctype")
	}
	if !strings.Contains(lower, "<html") || !strings.Contains(lower, "</html>") {
		return fmt.Errorf("generated output is not a complete HTML document")
	}
	return nil
}
