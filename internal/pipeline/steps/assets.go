package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/landing-agent/internal/types"
)

// DefaultBlobEndpoint is the blob store's upload API base.
const DefaultBlobEndpoint = "https://blob.vercel-storage.com"

// DefaultUploadConcurrency bounds the upload fan-out; matches the blob
// store's per-token rate limit.
const DefaultUploadConcurrency = 3

// maxAssetBytes caps a single downloaded asset.
const maxAssetBytes = 20 << 20

// AssetStep rehosts generated images from the provider's ephemeral URLs
// onto durable blob storage.
type AssetStep struct {
	Token       string
	Endpoint    string
	Prefix      string
	Concurrency int
	Client      *http.Client
}

// NewAssetStep creates an asset upload step against the default blob store.
func NewAssetStep(token string) *AssetStep {
	return &AssetStep{
		Token:       token,
		Endpoint:    DefaultBlobEndpoint,
		Prefix:      "landing-assets",
		Concurrency: DefaultUploadConcurrency,
		Client:      &http.Client{Timeout: 60 * time.Second},
	}
}

// UploadImages downloads each generated image and re-uploads it to the blob
// store, with a bounded fan-out. An individual asset failure is logged and
// skipped; the step fails only when nothing could be uploaded.
func (s *AssetStep) UploadImages(ctx context.Context, runID string, images []types.GeneratedImage) ([]types.UploadedAsset, error) {
	if s.Token == "" {
		return nil, fmt.Errorf("blob store token is not configured")
	}
	if len(images) == 0 {
		return nil, nil
	}

	var mu sync.Mutex
	uploaded := make([]types.UploadedAsset, 0, len(images))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)

	for _, img := range images {
		img := img
		g.Go(func() error {
			asset, err := s.rehost(gCtx, runID, img)
			if err != nil {
				log.Printf("[assets] skipping %s: %v", img.Name, err)
				return nil
			}
			mu.Lock()
			uploaded = append(uploaded, *asset)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(uploaded) == 0 {
		return nil, fmt.Errorf("all %d asset upload(s) failed", len(images))
	}
	return uploaded, nil
}

// rehost downloads one image and uploads the bytes under the run's prefix.
func (s *AssetStep) rehost(ctx context.Context, runID string, img types.GeneratedImage) (*types.UploadedAsset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download asset: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("asset download returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read asset body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = img.ContentType
	}
	if contentType == "" {
		contentType = "image/png"
	}

	name := img.Name
	if !strings.Contains(name, ".") {
		name += "." + extensionFor(contentType)
	}
	pathname := fmt.Sprintf("%s/%s/%s", s.Prefix, runID, name)

	url, err := s.UploadBytes(ctx, pathname, contentType, data)
	if err != nil {
		return nil, err
	}
	return &types.UploadedAsset{Name: img.Name, URL: url}, nil
}

type blobPutResponse struct {
	URL string `json:"url"`
}

// UploadBytes stores raw bytes in the blob store and returns the public URL.
func (s *AssetStep) UploadBytes(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if s.Token == "" {
		return "", fmt.Errorf("blob store token is not configured")
	}

	uploadURL := strings.TrimSuffix(s.Endpoint, "/") + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Access", "public")
	req.Header.Set("X-Add-Random-Suffix", "1")

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("blob upload failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("blob store error: %d - %s", resp.StatusCode, string(errBody))
	}

	var parsed blobPutResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode blob response: %w", err)
	}
	if parsed.URL == "" {
		return "", fmt.Errorf("blob store returned no URL")
	}
	return parsed.URL, nil
}

func extensionFor(contentType string) string {
	if idx := strings.Index(contentType, "/"); idx >= 0 {
		ext := contentType[idx+1:]
		if semi := strings.Index(ext, ";"); semi >= 0 {
			ext = ext[:semi]
		}
		if ext != "" {
			return ext
		}
	}
	return "png"
}
