package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/landing-agent/internal/status"
	"github.com/jonathan/landing-agent/internal/types"
)

// Scraper extracts content, metadata, and branding from the target site.
type Scraper interface {
	Scrape(ctx context.Context, targetURL string) (*types.ScrapeResult, error)
}

// Searcher gathers market context for the target's industry.
type Searcher interface {
	Search(ctx context.Context, query string) (*types.SearchResult, error)
}

// SpecGenerator produces the landing page content specification.
type SpecGenerator interface {
	GenerateSpec(ctx context.Context, req types.GenerateRequest, scrape *types.ScrapeResult, search *types.SearchResult) (*types.LandingSpec, error)
}

// ImageGenerator produces per-section illustrative images.
type ImageGenerator interface {
	GenerateImages(ctx context.Context, req types.GenerateRequest, scrape *types.ScrapeResult, spec *types.LandingSpec) (*types.ImageGenResult, error)
}

// AssetUploader rehosts generated assets on durable storage.
type AssetUploader interface {
	UploadImages(ctx context.Context, runID string, images []types.GeneratedImage) ([]types.UploadedAsset, error)
	UploadBytes(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// HTMLGenerator synthesizes the standalone page markup.
type HTMLGenerator interface {
	GenerateHTML(ctx context.Context, spec *types.LandingSpec, scrape *types.ScrapeResult, assets []types.UploadedAsset, targetURL string) (string, error)
}

// Deployer publishes the page and returns its live URL.
type Deployer interface {
	Deploy(ctx context.Context, runID, html string) (*types.DeployResult, error)
}

// Screenshotter captures a preview image of the deployed page.
type Screenshotter interface {
	Capture(ctx context.Context, liveURL string) ([]byte, error)
}

// ResultStore upserts the run's durable page record. *db.DB satisfies it.
type ResultStore interface {
	SaveLandingPage(ctx context.Context, page *types.LandingPage) error
}

// AuditSink records full step payloads out of band. *db.DB satisfies it.
type AuditSink interface {
	RecordStepPayload(ctx context.Context, runID, stepID string, payload any) error
}

// Steps bundles the step function implementations the orchestrator drives.
type Steps struct {
	Scraper    Scraper
	Searcher   Searcher
	Spec       SpecGenerator
	Images     ImageGenerator
	Assets     AssetUploader
	HTML       HTMLGenerator
	Deployer   Deployer
	Screenshot Screenshotter
}

// Pipeline executes the fixed step definition for one run at a time.
// Steps run strictly sequentially; each consumes only outputs of steps
// that precede it in the definition.
type Pipeline struct {
	Steps       Steps
	Broadcaster *status.Broadcaster
	Tracker     *status.Tracker
	Results     ResultStore
	Audit       AuditSink
	Verbose     bool
}

// auditTimeout bounds the fire-and-forget audit write.
const auditTimeout = 10 * time.Second

// banner prints run progress to stdout when verbose output is enabled.
func (p *Pipeline) banner(format string, args ...any) {
	if p.Verbose {
		fmt.Printf(format, args...)
	}
}

// Run executes the full pipeline for one submitted job. It blocks until the
// run reaches a terminal state; callers start it in a goroutine. The returned
// error is the fatal step error, already recorded against the run.
func (p *Pipeline) Run(ctx context.Context, runID string, req types.GenerateRequest) error {
	p.Tracker.Start(runID)

	defs := Definition()
	total := len(defs)

	// Seed every step as pending so clients see the full plan immediately.
	for _, def := range defs {
		p.emit(ctx, runID, def, types.StepRecord{Status: types.StepPending})
	}

	// Step 1: scrape (fatal)
	def := defs[0]
	p.banner("[%s] Step 1/%d: Scraping %s...\n", runID, total, req.URL)
	started := p.running(ctx, runID, def)
	scrape, err := p.Steps.Scraper.Scrape(ctx, req.URL)
	if err != nil {
		return p.abort(ctx, runID, def, started, err)
	}
	p.succeed(ctx, runID, def, started, map[string]any{
		"markdown_bytes": len(scrape.Markdown),
		"industry":       scrape.Metadata.Industry,
	})
	p.audit(runID, def.ID, scrape)

	// Step 2: search (recoverable)
	def = defs[1]
	query := fmt.Sprintf("Industry news related to %s", scrape.Metadata.Industry)
	p.banner("[%s] Step 2/%d: Searching market context...\n", runID, total)
	started = p.running(ctx, runID, def)
	search, err := p.Steps.Searcher.Search(ctx, query)
	if err != nil {
		p.recover(ctx, runID, def, started, err)
		search = &types.SearchResult{Query: query}
	} else {
		p.succeed(ctx, runID, def, started, map[string]any{
			"results_bytes": len(search.Results),
			"citations":     len(search.Citations),
		})
		p.audit(runID, def.ID, search)
	}

	// Step 3: content spec (fatal)
	def = defs[2]
	p.banner("[%s] Step 3/%d: Generating content spec...\n", runID, total)
	started = p.running(ctx, runID, def)
	spec, err := p.Steps.Spec.GenerateSpec(ctx, req, scrape, search)
	if err != nil {
		return p.abort(ctx, runID, def, started, err)
	}
	p.succeed(ctx, runID, def, started, map[string]any{
		"spec_bytes": len(spec.Text),
		"model":      spec.Model,
	})
	p.audit(runID, def.ID, spec)

	// Step 4: section images (recoverable)
	def = defs[3]
	p.banner("[%s] Step 4/%d: Generating section images...\n", runID, total)
	started = p.running(ctx, runID, def)
	images, err := p.Steps.Images.GenerateImages(ctx, req, scrape, spec)
	if err != nil {
		p.recover(ctx, runID, def, started, err)
		images = &types.ImageGenResult{}
	} else {
		p.succeed(ctx, runID, def, started, map[string]any{
			"count":  len(images.Images),
			"method": images.Method,
		})
		p.audit(runID, def.ID, images)
	}

	// Step 5: asset upload (recoverable)
	def = defs[4]
	p.banner("[%s] Step 5/%d: Uploading %d asset(s)...\n", runID, total, len(images.Images))
	started = p.running(ctx, runID, def)
	var assets []types.UploadedAsset
	if len(images.Images) > 0 {
		assets, err = p.Steps.Assets.UploadImages(ctx, runID, images.Images)
		if err != nil {
			p.recover(ctx, runID, def, started, err)
			assets = nil
		} else {
			p.succeed(ctx, runID, def, started, map[string]any{"count": len(assets)})
			p.audit(runID, def.ID, assets)
		}
	} else {
		p.succeed(ctx, runID, def, started, map[string]any{"count": 0})
	}

	// Step 6: page HTML (fatal)
	def = defs[5]
	p.banner("[%s] Step 6/%d: Generating page HTML...\n", runID, total)
	started = p.running(ctx, runID, def)
	html, err := p.Steps.HTML.GenerateHTML(ctx, spec, scrape, assets, req.URL)
	if err != nil {
		return p.abort(ctx, runID, def, started, err)
	}
	p.succeed(ctx, runID, def, started, map[string]any{"html_bytes": len(html)})
	p.audit(runID, def.ID, map[string]any{"html_bytes": len(html)})

	// Step 7: deploy (fatal)
	def = defs[6]
	p.banner("[%s] Step 7/%d: Deploying...\n", runID, total)
	started = p.running(ctx, runID, def)
	deploy, err := p.Steps.Deployer.Deploy(ctx, runID, html)
	if err != nil {
		return p.abort(ctx, runID, def, started, err)
	}
	p.succeed(ctx, runID, def, started, map[string]any{
		"live_url":      deploy.LiveURL,
		"deployment_id": deploy.DeploymentID,
	})
	p.audit(runID, def.ID, deploy)

	now := time.Now().UTC()
	page := &types.LandingPage{
		RunID:               runID,
		URL:                 req.URL,
		CampaignDescription: req.CampaignDescription,
		ReferenceImageURL:   req.ImageURL,
		UserID:              req.UserID,
		Industry:            scrape.Metadata.Industry,
		Brand:               &scrape.Branding,
		Spec:                spec.Text,
		HTML:                html,
		Images:              assets,
		LiveURL:             deploy.LiveURL,
		DeploymentID:        deploy.DeploymentID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	// Step 8: save page record (recoverable)
	def = defs[7]
	p.banner("[%s] Step 8/%d: Saving page record...\n", runID, total)
	started = p.running(ctx, runID, def)
	if err := p.Results.SaveLandingPage(ctx, page); err != nil {
		p.recover(ctx, runID, def, started, err)
	} else {
		p.succeed(ctx, runID, def, started, map[string]any{"live_url": page.LiveURL})
	}

	// Step 9: preview screenshot (recoverable)
	def = defs[8]
	p.banner("[%s] Step 9/%d: Capturing screenshot...\n", runID, total)
	started = p.running(ctx, runID, def)
	if shotURL, err := p.screenshot(ctx, runID, deploy.LiveURL); err != nil {
		p.recover(ctx, runID, def, started, err)
	} else {
		page.ScreenshotURL = shotURL
		page.UpdatedAt = time.Now().UTC()
		// Attach the screenshot to the already-saved record.
		if err := p.Results.SaveLandingPage(ctx, page); err != nil {
			log.Printf("[pipeline] %s: failed to re-save page with screenshot: %v", runID, err)
		}
		p.succeed(ctx, runID, def, started, map[string]any{"screenshot_url": shotURL})
	}

	p.Tracker.Complete(runID, page)
	p.banner("[%s] Done: %s\n", runID, deploy.LiveURL)
	return nil
}

// screenshot captures the deployed page and rehosts the bytes.
func (p *Pipeline) screenshot(ctx context.Context, runID, liveURL string) (string, error) {
	buf, err := p.Steps.Screenshot.Capture(ctx, liveURL)
	if err != nil {
		return "", fmt.Errorf("screenshot capture failed: %w", err)
	}
	name := fmt.Sprintf("screenshots/%s.png", runID)
	url, err := p.Steps.Assets.UploadBytes(ctx, name, "image/png", buf)
	if err != nil {
		return "", fmt.Errorf("screenshot upload failed: %w", err)
	}
	return url, nil
}

// running publishes the step's running record and starts its timer.
func (p *Pipeline) running(ctx context.Context, runID string, def StepDef) time.Time {
	p.emit(ctx, runID, def, types.StepRecord{Status: types.StepRunning})
	return time.Now()
}

// succeed publishes a success record with duration and summarized detail.
// Detail stays small: byte lengths and counts, never full payloads.
func (p *Pipeline) succeed(ctx context.Context, runID string, def StepDef, started time.Time, detail map[string]any) {
	dur := time.Since(started).Milliseconds()
	p.emit(ctx, runID, def, types.StepRecord{
		Status:     types.StepSuccess,
		DurationMs: &dur,
		Detail:     detail,
	})
}

// recover records a non-fatal step failure; the pipeline continues with that
// step's output treated as absent.
func (p *Pipeline) recover(ctx context.Context, runID string, def StepDef, started time.Time, err error) {
	log.Printf("[pipeline] %s: step %s failed (recoverable): %v", runID, def.ID, err)
	dur := time.Since(started).Milliseconds()
	p.emit(ctx, runID, def, types.StepRecord{
		Status:     types.StepError,
		DurationMs: &dur,
		Error:      err.Error(),
	})
}

// abort records a fatal step failure and terminates the run.
func (p *Pipeline) abort(ctx context.Context, runID string, def StepDef, started time.Time, err error) error {
	log.Printf("[pipeline] %s: step %s failed (fatal): %v", runID, def.ID, err)
	dur := time.Since(started).Milliseconds()
	p.emit(ctx, runID, def, types.StepRecord{
		Status:     types.StepError,
		DurationMs: &dur,
		Error:      err.Error(),
	})
	p.Tracker.Fail(runID, err.Error())
	return fmt.Errorf("step %s failed: %w", def.ID, err)
}

// emit fills in the record's identity fields and publishes it.
func (p *Pipeline) emit(ctx context.Context, runID string, def StepDef, rec types.StepRecord) {
	rec.StepID = def.ID
	rec.Label = def.Label
	rec.TransitionedAt = time.Now().UTC()
	p.Broadcaster.Publish(ctx, runID, rec)
}

// audit writes the step's full payload to the audit sink without awaiting
// the result; a sink failure never fails the step.
func (p *Pipeline) audit(runID, stepID string, payload any) {
	if p.Audit == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		if err := p.Audit.RecordStepPayload(ctx, runID, stepID, payload); err != nil {
			log.Printf("[pipeline] %s: audit write for step %s failed: %v", runID, stepID, err)
		}
	}()
}
