package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/landing-agent/internal/fetch"
)

// ScreenshotStep captures a full-page preview of the deployed site with a
// headless browser.
type ScreenshotStep struct {
	Timeout time.Duration
	Verbose bool
}

// NewScreenshotStep creates a screenshot step with the given render timeout.
func NewScreenshotStep(timeout time.Duration) *ScreenshotStep {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &ScreenshotStep{Timeout: timeout}
}

// Capture renders liveURL and returns the PNG bytes.
func (s *ScreenshotStep) Capture(ctx context.Context, liveURL string) ([]byte, error) {
	buf, err := fetch.Screenshot(ctx, liveURL, s.Timeout, s.Verbose)
	if err != nil {
		return nil, fmt.Errorf("screenshot capture failed: %w", err)
	}
	return buf, nil
}
