package steps

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/landing-agent/internal/types"
)

// DefaultDeployEndpoint is the hosting platform's API base.
const DefaultDeployEndpoint = "https://api.vercel.com"

const (
	deployPollInterval = time.Second
	deployMaxPolls     = 60
)

// DeployStep publishes the generated page as a static deployment.
type DeployStep struct {
	Token    string
	Endpoint string
	Project  string
	Verbose  bool
	Client   *http.Client
}

// NewDeployStep creates a deploy step against the default hosting API.
func NewDeployStep(token, project string) *DeployStep {
	return &DeployStep{
		Token:    token,
		Endpoint: DefaultDeployEndpoint,
		Project:  project,
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type deployFileRef struct {
	File string `json:"file"`
	SHA  string `json:"sha"`
	Size int    `json:"size"`
}

type deployCreateRequest struct {
	Name            string          `json:"name"`
	Files           []deployFileRef `json:"files"`
	ProjectSettings deploySettings  `json:"projectSettings"`
	Target          string          `json:"target"`
	Public          bool            `json:"public"`
}

type deploySettings struct {
	Framework string `json:"framework"`
}

type deployResponse struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	ReadyState string `json:"readyState"`
}

// Deploy uploads the page files, creates a deployment, and polls until the
// platform reports it ready or the poll budget is exhausted.
func (s *DeployStep) Deploy(ctx context.Context, runID, html string) (*types.DeployResult, error) {
	if s.Token == "" {
		return nil, fmt.Errorf("deploy token is not configured")
	}

	content := []byte(html)
	digest := sha1Hex(content)
	if err := s.uploadFile(ctx, digest, content); err != nil {
		return nil, fmt.Errorf("failed to upload page file: %w", err)
	}

	project := s.Project
	if project == "" {
		project = "landing-" + runID
	}

	created, err := s.createDeployment(ctx, project, []deployFileRef{
		{File: "index.html", SHA: digest, Size: len(content)},
	})
	if err != nil {
		return nil, err
	}

	readyState, err := s.awaitReady(ctx, created.ID, created.ReadyState)
	if err != nil {
		return nil, err
	}

	liveURL := created.URL
	if !strings.HasPrefix(liveURL, "http") {
		liveURL = "https://" + liveURL
	}
	return &types.DeployResult{
		LiveURL:      liveURL,
		DeploymentID: created.ID,
		ReadyState:   readyState,
	}, nil
}

func (s *DeployStep) uploadFile(ctx context.Context, digest string, content []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint+"/v2/now/files", bytes.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("x-vercel-digest", digest)

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("file upload returned %d - %s", resp.StatusCode, string(errBody))
	}
	return nil
}

func (s *DeployStep) createDeployment(ctx context.Context, project string, files []deployFileRef) (*deployResponse, error) {
	body, err := json.Marshal(deployCreateRequest{
		Name:            project,
		Files:           files,
		ProjectSettings: deploySettings{Framework: "static"},
		Target:          "production",
		Public:          true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint+"/v13/deployments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create deployment: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("deployment create returned %d - %s", resp.StatusCode, string(errBody))
	}

	var created deployResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode deployment response: %w", err)
	}
	if created.URL == "" {
		return nil, fmt.Errorf("deployment response missing URL")
	}
	return &created, nil
}

// awaitReady polls the deployment status. Running out of the poll budget is
// not an error; the deployment usually finishes shortly after.
func (s *DeployStep) awaitReady(ctx context.Context, id, state string) (string, error) {
	for attempt := 0; state != "READY" && attempt < deployMaxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-time.After(deployPollInterval):
		}

		current, err := s.fetchState(ctx, id)
		if err != nil {
			log.Printf("[deploy] status poll failed: %v", err)
			continue
		}
		state = current
		if state == "ERROR" || state == "CANCELED" {
			return state, fmt.Errorf("deployment entered state %s", state)
		}
	}
	if s.Verbose && state != "READY" {
		log.Printf("[deploy] deployment %s still %s after polling", id, state)
	}
	return state, nil
}

func (s *DeployStep) fetchState(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Endpoint+"/v13/deployments/"+id, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status poll returned %d", resp.StatusCode)
	}

	var status deployResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", err
	}
	return status.ReadyState, nil
}

func sha1Hex(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
