package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/landing-agent/internal/config"
	"github.com/jonathan/landing-agent/internal/db"
	"github.com/jonathan/landing-agent/internal/llm"
	"github.com/jonathan/landing-agent/internal/payment"
	"github.com/jonathan/landing-agent/internal/pipeline"
	"github.com/jonathan/landing-agent/internal/pipeline/steps"
	"github.com/jonathan/landing-agent/internal/server"
	"github.com/jonathan/landing-agent/internal/status"
)

var (
	servePort       int
	serveConfigPath string
	serveVerbose    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for submitting landing page runs, polling run status, and browsing the page gallery.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to a JSON config file")
	serveCmd.Flags().BoolVar(&serveVerbose, "verbose", false, "Print detailed step progress")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadServeConfig()
	if err != nil {
		return err
	}

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	ctx := context.Background()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	llmClient, err := llm.NewClient(ctx, nil, cfg.GeminiAPIKey)
	if err != nil {
		database.Close()
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	cache := status.NewMemoryCache()
	tracker := status.NewTracker()
	broadcaster := status.NewBroadcaster(cache, database)

	pipe := &pipeline.Pipeline{
		Steps:       buildSteps(cfg, llmClient),
		Broadcaster: broadcaster,
		Tracker:     tracker,
		Results:     database,
		Audit:       database,
		Verbose:     cfg.Verbose,
	}

	gracePeriod := config.Duration(cfg.StatusGracePeriod, status.DefaultNotFoundAfter)
	resolver := status.NewResolver(tracker, cache, database, database, pipeline.TotalSteps()).
		WithNotFoundAfter(gracePeriod)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	retention := config.Duration(cfg.CacheRetention, time.Hour)
	status.StartSweeper(sweepCtx, cache, 5*time.Minute, retention)
	go sweepTracker(sweepCtx, tracker, retention)

	verifier, payReqs := buildPaymentGate(cfg)

	srv := server.New(server.Config{Port: cfg.Port}, server.Deps{
		Runner:   pipe,
		Resolver: resolver,
		Pages:    database,
		Audit:    database,
		JWT:      loadJWTService(),
		Verifier: verifier,
		PayReqs:  payReqs,
	})
	broadcaster.WithPush(srv.PushStep)
	srv.OnShutdown(func() {
		stopSweeper()
		_ = llmClient.Close()
		database.Close()
	})

	return srv.Start()
}

// loadServeConfig layers the optional config file, environment variables,
// and flag values into one validated configuration.
func loadServeConfig() (*config.Config, error) {
	cfg := &config.Config{Verbose: serveVerbose}

	if serveConfigPath != "" {
		fileCfg, err := config.LoadConfig(serveConfigPath)
		if err != nil {
			return nil, err
		}
		merged := cfg.MergeWithDefaults(*fileCfg)
		cfg = &merged
	}

	cfg.FromEnv()
	if cfg.Port == 0 {
		cfg.Port = servePort
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildSteps constructs the pipeline step implementations from provider
// credentials. Steps with missing credentials fail at run time, not here;
// only scrape, spec, html, and deploy are required for a run to succeed.
func buildSteps(cfg *config.Config, llmClient llm.Client) pipeline.Steps {
	scrape := steps.NewScrapeStep(llmClient)
	scrape.UseBrowser = cfg.UseBrowser
	scrape.Verbose = cfg.Verbose

	deploy := steps.NewDeployStep(cfg.DeployToken, cfg.DeployProject)
	deploy.Verbose = cfg.Verbose

	screenshot := steps.NewScreenshotStep(config.Duration(cfg.ScreenshotTimeout, 45*time.Second))
	screenshot.Verbose = cfg.Verbose

	return pipeline.Steps{
		Scraper:    scrape,
		Searcher:   steps.NewSearchStep(cfg.PerplexityAPIKey),
		Spec:       steps.NewSpecStep(llmClient),
		Images:     steps.NewImageStep(cfg.FalAPIKey),
		Assets:     steps.NewAssetStep(cfg.BlobToken),
		HTML:       steps.NewHTMLStep(llmClient),
		Deployer:   deploy,
		Screenshot: screenshot,
	}
}

// buildPaymentGate wires the x402 facilitator verifier when the payment
// gate is enabled; otherwise every submission passes.
func buildPaymentGate(cfg *config.Config) (payment.Verifier, payment.Requirements) {
	if !cfg.PaymentEnabled {
		return payment.NoopVerifier{}, payment.Requirements{}
	}

	amount := cfg.PaymentAmount
	if amount == "" {
		amount = "100000" // 0.1 USDC in atomic units
	}
	network := cfg.PaymentNetwork
	if network == "" {
		network = "base"
	}
	resource := fmt.Sprintf("http://localhost:%d/generate", cfg.Port)

	verifier := payment.NewFacilitatorVerifier(cfg.FacilitatorURL, os.Getenv("FACILITATOR_API_KEY"))
	return verifier, payment.NewRequirements(amount, network, cfg.PaymentPayTo, resource)
}

// loadJWTService builds the admin token validator. Without a JWT_SECRET
// the admin surface stays disabled.
func loadJWTService() *server.JWTService {
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		log.Printf("[server] admin endpoints disabled: %v", err)
		return nil
	}
	return server.NewJWTService(jwtCfg)
}

// sweepTracker periodically drops terminal live-run handles.
func sweepTracker(ctx context.Context, tracker *status.Tracker, maxAge time.Duration) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := tracker.Sweep(maxAge); n > 0 {
				log.Printf("[status] swept %d terminal run handle(s)", n)
			}
		}
	}
}
