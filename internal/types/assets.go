package types

// GeneratedImage is one image produced by the image generation step,
// still hosted at the provider's ephemeral URL.
type GeneratedImage struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

// ImageGenResult is the output of the image generation step.
type ImageGenResult struct {
	Images []GeneratedImage `json:"images"`
	Method string           `json:"method"` // "image-to-image" or "text-to-image"
}

// UploadedAsset is an asset rehosted on durable storage.
type UploadedAsset struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// DeployResult is the output of the deployment step.
type DeployResult struct {
	LiveURL      string `json:"live_url"`
	DeploymentID string `json:"deployment_id"`
	ReadyState   string `json:"ready_state"`
}
