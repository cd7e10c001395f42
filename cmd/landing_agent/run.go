package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/landing-agent/internal/config"
	"github.com/jonathan/landing-agent/internal/llm"
	"github.com/jonathan/landing-agent/internal/observability"
	"github.com/jonathan/landing-agent/internal/pipeline"
	"github.com/jonathan/landing-agent/internal/status"
	"github.com/jonathan/landing-agent/internal/types"
)

var (
	runURL      string
	runCampaign string
	runImageURL string
	runUserID   string
	runTimeout  time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate one landing page from the command line",
	Long:  `Run the full generation pipeline once, without the HTTP server or database, and print the result. Intermediate outputs are summarized as each step completes.`,
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().StringVar(&runURL, "url", "", "Target site URL (required)")
	runCmd.Flags().StringVar(&runCampaign, "campaign", "", "Campaign description (required)")
	runCmd.Flags().StringVar(&runImageURL, "image-url", "", "Reference image URL for brand-matched visuals")
	runCmd.Flags().StringVar(&runUserID, "user", "", "User identifier recorded on the page")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 15*time.Minute, "Overall run budget")
	_ = runCmd.MarkFlagRequired("url")
	_ = runCmd.MarkFlagRequired("campaign")
	rootCmd.AddCommand(runCmd)
}

func runOnce(_ *cobra.Command, _ []string) error {
	req := types.GenerateRequest{
		URL:                 runURL,
		CampaignDescription: runCampaign,
		ImageURL:            runImageURL,
		UserID:              runUserID,
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	cfg := &config.Config{Verbose: true}
	cfg.FromEnv()
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	llmClient, err := llm.NewClient(ctx, nil, cfg.GeminiAPIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer llmClient.Close() //nolint:errcheck

	printer := observability.NewPrinter(os.Stdout)

	cache := status.NewMemoryCache()
	tracker := status.NewTracker()
	results := &memoryResults{}

	pipe := &pipeline.Pipeline{
		Steps:       printingSteps(buildSteps(cfg, llmClient), printer),
		Broadcaster: status.NewBroadcaster(cache, nil),
		Tracker:     tracker,
		Results:     results,
		Verbose:     true,
	}

	runID := uuid.New().String()
	runErr := pipe.Run(ctx, runID, req)

	printer.PrintSteps(cache.Get(runID))
	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}

	printer.PrintRunSummary(results.page)
	return nil
}

// memoryResults keeps the page record in memory; the one-off CLI has no
// database behind it.
type memoryResults struct {
	page *types.LandingPage
}

func (m *memoryResults) SaveLandingPage(_ context.Context, page *types.LandingPage) error {
	m.page = page
	return nil
}

// printingSteps wraps the step implementations so each intermediate result
// is summarized to stdout as it is produced.
func printingSteps(s pipeline.Steps, printer *observability.Printer) pipeline.Steps {
	s.Scraper = &printingScraper{Scraper: s.Scraper, printer: printer}
	s.Searcher = &printingSearcher{Searcher: s.Searcher, printer: printer}
	s.Spec = &printingSpec{SpecGenerator: s.Spec, printer: printer}
	s.Assets = &printingAssets{AssetUploader: s.Assets, printer: printer}
	return s
}

type printingScraper struct {
	pipeline.Scraper
	printer *observability.Printer
}

func (p *printingScraper) Scrape(ctx context.Context, targetURL string) (*types.ScrapeResult, error) {
	result, err := p.Scraper.Scrape(ctx, targetURL)
	if err == nil {
		p.printer.PrintScrapeResult(result)
	}
	return result, err
}

type printingSearcher struct {
	pipeline.Searcher
	printer *observability.Printer
}

func (p *printingSearcher) Search(ctx context.Context, query string) (*types.SearchResult, error) {
	result, err := p.Searcher.Search(ctx, query)
	if err == nil {
		p.printer.PrintSearchResult(result)
	}
	return result, err
}

type printingSpec struct {
	pipeline.SpecGenerator
	printer *observability.Printer
}

func (p *printingSpec) GenerateSpec(ctx context.Context, req types.GenerateRequest, scrape *types.ScrapeResult, search *types.SearchResult) (*types.LandingSpec, error) {
	spec, err := p.SpecGenerator.GenerateSpec(ctx, req, scrape, search)
	if err == nil {
		p.printer.PrintSpec(spec)
	}
	return spec, err
}

type printingAssets struct {
	pipeline.AssetUploader
	printer *observability.Printer
}

func (p *printingAssets) UploadImages(ctx context.Context, runID string, images []types.GeneratedImage) ([]types.UploadedAsset, error) {
	assets, err := p.AssetUploader.UploadImages(ctx, runID, images)
	if err == nil {
		p.printer.PrintAssets(assets)
	}
	return assets, err
}
