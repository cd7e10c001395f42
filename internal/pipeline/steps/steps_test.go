package steps

import (
	"context"

	"github.com/jonathan/landing-agent/internal/llm"
)

// fakeLLM is a canned-response llm.Client for step tests.
type fakeLLM struct {
	content    string
	contentErr error
	json       string
	jsonErr    error

	lastContentPrompt string
	lastJSONPrompt    string
	lastTier          llm.ModelTier
}

func (f *fakeLLM) GenerateContent(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.lastContentPrompt = prompt
	f.lastTier = tier
	return f.content, f.contentErr
}

func (f *fakeLLM) GenerateJSON(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.lastJSONPrompt = prompt
	f.lastTier = tier
	return f.json, f.jsonErr
}

func (f *fakeLLM) GetModel(tier llm.ModelTier) string {
	return "fake-model-" + string(tier)
}

func (f *fakeLLM) Close() error { return nil }
