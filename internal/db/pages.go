package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/landing-agent/internal/types"
)

// SaveLandingPage upserts the full landing page record by run ID.
// Each save is a full replace of the document; callers pass the complete
// artifact as known so far, so a later save (e.g. attaching the screenshot
// URL) must include everything from the earlier one.
func (db *DB) SaveLandingPage(ctx context.Context, page *types.LandingPage) error {
	var brandJSON, imagesJSON []byte
	var err error
	if page.Brand != nil {
		brandJSON, err = json.Marshal(page.Brand)
		if err != nil {
			return fmt.Errorf("failed to marshal brand: %w", err)
		}
	}
	if page.Images != nil {
		imagesJSON, err = json.Marshal(page.Images)
		if err != nil {
			return fmt.Errorf("failed to marshal images: %w", err)
		}
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO landing_pages
		   (run_id, url, campaign_description, reference_image_url, user_id,
		    industry, brand, spec, html, images, live_url, deployment_id, screenshot_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (run_id) DO UPDATE SET
		   url = $2, campaign_description = $3, reference_image_url = $4, user_id = $5,
		   industry = $6, brand = $7, spec = $8, html = $9, images = $10,
		   live_url = $11, deployment_id = $12, screenshot_url = $13, updated_at = NOW()`,
		page.RunID, page.URL, page.CampaignDescription, page.ReferenceImageURL, page.UserID,
		page.Industry, brandJSON, page.Spec, page.HTML, imagesJSON,
		page.LiveURL, page.DeploymentID, page.ScreenshotURL,
	)
	if err != nil {
		return fmt.Errorf("failed to save landing page: %w", err)
	}
	return nil
}

// GetLandingPage retrieves a landing page record by run ID.
// Returns nil (no error) when no record exists.
func (db *DB) GetLandingPage(ctx context.Context, runID string) (*types.LandingPage, error) {
	var page types.LandingPage
	var brandJSON, imagesJSON []byte

	err := db.pool.QueryRow(ctx,
		`SELECT run_id, url, campaign_description, reference_image_url, user_id,
		        industry, brand, spec, html, images, live_url, deployment_id, screenshot_url,
		        created_at, updated_at
		 FROM landing_pages WHERE run_id = $1`,
		runID,
	).Scan(&page.RunID, &page.URL, &page.CampaignDescription, &page.ReferenceImageURL, &page.UserID,
		&page.Industry, &brandJSON, &page.Spec, &page.HTML, &imagesJSON,
		&page.LiveURL, &page.DeploymentID, &page.ScreenshotURL,
		&page.CreatedAt, &page.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get landing page: %w", err)
	}

	if len(brandJSON) > 0 {
		_ = json.Unmarshal(brandJSON, &page.Brand)
	}
	if len(imagesJSON) > 0 {
		_ = json.Unmarshal(imagesJSON, &page.Images)
	}

	return &page, nil
}

// ListLandingPages retrieves the gallery projection of recent landing pages,
// most recent first.
func (db *DB) ListLandingPages(ctx context.Context, limit int) ([]types.PageSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.pool.Query(ctx,
		`SELECT run_id, url, campaign_description, industry, live_url, screenshot_url, created_at
		 FROM landing_pages ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list landing pages: %w", err)
	}
	defer rows.Close()

	var pages []types.PageSummary
	for rows.Next() {
		var p types.PageSummary
		if err := rows.Scan(&p.RunID, &p.URL, &p.CampaignDescription, &p.Industry,
			&p.LiveURL, &p.ScreenshotURL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan landing page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// DeleteLandingPage deletes a landing page record and its step status and
// audit rows (via cascade).
func (db *DB) DeleteLandingPage(ctx context.Context, runID string) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM landing_pages WHERE run_id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete landing page: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("landing page not found: %s", runID)
	}
	return nil
}
