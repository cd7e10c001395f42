package steps

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeployStep(endpoint string) *DeployStep {
	s := NewDeployStep("deploy-token", "landing-pages")
	s.Endpoint = endpoint
	return s
}

func TestDeploy_Success(t *testing.T) {
	var fileUploads, creates atomic.Int32
	var captured deployCreateRequest

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/now/files", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer deploy-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("x-vercel-digest"))
		fileUploads.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /v13/deployments", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		creates.Add(1)
		_ = json.NewEncoder(w).Encode(deployResponse{
			ID:         "dpl_123",
			URL:        "landing-pages-abc.vercel.app",
			ReadyState: "READY",
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	result, err := newTestDeployStep(srv.URL).Deploy(context.Background(), "run-1", "<!DOCTYPE html><html></html>")
	require.NoError(t, err)

	assert.Equal(t, "https://landing-pages-abc.vercel.app", result.LiveURL)
	assert.Equal(t, "dpl_123", result.DeploymentID)
	assert.Equal(t, "READY", result.ReadyState)
	assert.Equal(t, int32(1), fileUploads.Load())
	assert.Equal(t, int32(1), creates.Load())

	assert.Equal(t, "landing-pages", captured.Name)
	assert.Equal(t, "production", captured.Target)
	assert.True(t, captured.Public)
	require.Len(t, captured.Files, 1)
	assert.Equal(t, "index.html", captured.Files[0].File)
	assert.Len(t, captured.Files[0].SHA, 40)
}

func TestDeploy_PollsUntilReady(t *testing.T) {
	var polls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/now/files", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /v13/deployments", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(deployResponse{ID: "dpl_456", URL: "x.vercel.app", ReadyState: "BUILDING"})
	})
	mux.HandleFunc("GET /v13/deployments/dpl_456", func(w http.ResponseWriter, _ *http.Request) {
		polls.Add(1)
		state := "BUILDING"
		if polls.Load() >= 2 {
			state = "READY"
		}
		_ = json.NewEncoder(w).Encode(deployResponse{ID: "dpl_456", ReadyState: state})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	result, err := newTestDeployStep(srv.URL).Deploy(context.Background(), "run-2", "<!DOCTYPE html>")
	require.NoError(t, err)
	assert.Equal(t, "READY", result.ReadyState)
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestDeploy_ErrorState(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/now/files", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /v13/deployments", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(deployResponse{ID: "dpl_789", URL: "x.vercel.app", ReadyState: "BUILDING"})
	})
	mux.HandleFunc("GET /v13/deployments/dpl_789", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(deployResponse{ID: "dpl_789", ReadyState: "ERROR"})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newTestDeployStep(srv.URL).Deploy(context.Background(), "run-3", "<!DOCTYPE html>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERROR")
}

func TestDeploy_UploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestDeployStep(srv.URL).Deploy(context.Background(), "run-4", "<!DOCTYPE html>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload page file")
}

func TestDeploy_MissingToken(t *testing.T) {
	step := NewDeployStep("", "landing-pages")
	_, err := step.Deploy(context.Background(), "run-5", "<!DOCTYPE html>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestSHA1Hex(t *testing.T) {
	assert.Equal(t, "a94a8fe5ccb19ba61c4c0873d391e987982fbbd3", sha1Hex([]byte("test")))
}
