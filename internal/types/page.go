package types

import (
	"time"
)

// LandingPage is the durable record of a run's output (the result artifact).
// It is upserted by run ID as the pipeline progresses: an initial save once
// the page is deployed, then again when the screenshot reference is known.
type LandingPage struct {
	RunID               string          `json:"run_id"`
	URL                 string          `json:"url"`
	CampaignDescription string          `json:"campaign_description"`
	ReferenceImageURL   string          `json:"reference_image_url,omitempty"`
	UserID              string          `json:"user_id,omitempty"`
	Industry            string          `json:"industry,omitempty"`
	Brand               *Branding       `json:"brand,omitempty"`
	Spec                string          `json:"spec,omitempty"`
	HTML                string          `json:"html,omitempty"`
	Images              []UploadedAsset `json:"images,omitempty"`
	LiveURL             string          `json:"live_url,omitempty"`
	DeploymentID        string          `json:"deployment_id,omitempty"`
	ScreenshotURL       string          `json:"screenshot_url,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// PageSummary is the gallery projection of a LandingPage.
type PageSummary struct {
	RunID               string    `json:"run_id"`
	URL                 string    `json:"url"`
	CampaignDescription string    `json:"campaign_description"`
	Industry            string    `json:"industry,omitempty"`
	LiveURL             string    `json:"live_url,omitempty"`
	ScreenshotURL       string    `json:"screenshot_url,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}
