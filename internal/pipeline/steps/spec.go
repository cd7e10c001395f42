package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jonathan/landing-agent/internal/llm"
	"github.com/jonathan/landing-agent/internal/prompts"
	"github.com/jonathan/landing-agent/internal/schemas"
	"github.com/jonathan/landing-agent/internal/types"
)

// specContentLimit caps how much scraped content goes into the prompt.
const specContentLimit = 3000

// SpecStep generates the landing page content specification: a prose spec
// for downstream prompts plus a schema-validated structured form.
type SpecStep struct {
	LLM llm.Client
}

// NewSpecStep creates a spec generation step.
func NewSpecStep(client llm.Client) *SpecStep {
	return &SpecStep{LLM: client}
}

// GenerateSpec produces the content specification from the scraped site and
// market research. The structured form is best-effort: if the model's JSON
// fails schema validation the prose spec still stands.
func (s *SpecStep) GenerateSpec(ctx context.Context, req types.GenerateRequest, scrape *types.ScrapeResult, search *types.SearchResult) (*types.LandingSpec, error) {
	content := scrape.Markdown
	if len(content) > specContentLimit {
		content = content[:specContentLimit]
	}

	template, err := prompts.Get("spec.json", "landing-spec")
	if err != nil {
		return nil, fmt.Errorf("failed to load spec prompt: %w", err)
	}
	prompt := prompts.Format(template, map[string]string{
		"Title":       scrape.Metadata.Title,
		"Description": scrape.Metadata.Description,
		"Industry":    scrape.Metadata.Industry,
		"Campaign":    req.CampaignDescription,
		"Content":     content,
		"Research":    search.Results,
	})

	text, err := s.LLM.GenerateContent(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, fmt.Errorf("spec generation failed: %w", err)
	}
	if text == "" {
		return nil, fmt.Errorf("spec generation returned empty output")
	}

	spec := &types.LandingSpec{
		Text:  text,
		Model: s.LLM.GetModel(llm.TierStandard),
	}
	spec.Structured = s.structure(ctx, text)

	return spec, nil
}

// structure converts the prose spec into validated JSON. Returns nil when
// the model output does not satisfy the landing spec schema.
func (s *SpecStep) structure(ctx context.Context, specText string) *types.StructuredSpec {
	template, err := prompts.Get("spec.json", "landing-spec-structured")
	if err != nil {
		log.Printf("[spec] failed to load structuring prompt: %v", err)
		return nil
	}
	prompt := prompts.Format(template, map[string]string{"Spec": specText})

	raw, err := s.LLM.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		log.Printf("[spec] structuring call failed: %v", err)
		return nil
	}
	cleaned := llm.CleanJSONBlock(raw)

	if err := schemas.ValidateLandingSpec(cleaned); err != nil {
		log.Printf("[spec] structured output failed schema validation: %v", err)
		return nil
	}

	var structured types.StructuredSpec
	if err := json.Unmarshal([]byte(cleaned), &structured); err != nil {
		log.Printf("[spec] structured output unmarshal failed: %v", err)
		return nil
	}
	return &structured
}
