// Package clients holds the HTTP adapters behind the generation and
// publishing capability interfaces.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/castrove/castrove/internal/capability"
	"github.com/castrove/castrove/internal/credentials"
)

const defaultVideoModel = "sora-2-text-to-video"

// VideoClient generates short videos through the Kie task API: it submits a
// generation task, then polls until the task reports a terminal status.
type VideoClient struct {
	baseURL      string
	model        string
	pollInterval time.Duration
	client       *http.Client
	creds        credentials.Store
	credName     string
}

// VideoOption configures a VideoClient instance.
type VideoOption func(*VideoClient)

// WithVideoModel overrides the generation model.
func WithVideoModel(model string) VideoOption {
	return func(v *VideoClient) { v.model = model }
}

// WithPollInterval overrides how often task status is checked.
func WithPollInterval(d time.Duration) VideoOption {
	return func(v *VideoClient) { v.pollInterval = d }
}

// WithVideoHTTPClient overrides the HTTP client, mainly for tests.
func WithVideoHTTPClient(c *http.Client) VideoOption {
	return func(v *VideoClient) { v.client = c }
}

// NewVideoClient creates a video generator against the given base URL. The
// API key is resolved from creds under credName on each call, so rotated
// keys take effect without a restart.
func NewVideoClient(baseURL, credName string, creds credentials.Store, opts ...VideoOption) *VideoClient {
	v := &VideoClient{
		baseURL:      baseURL,
		model:        defaultVideoModel,
		pollInterval: 10 * time.Second,
		client:       &http.Client{Timeout: 60 * time.Second},
		creds:        creds,
		credName:     credName,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var _ capability.Generator = (*VideoClient)(nil)

type createTaskRequest struct {
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
}

type createTaskResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

type taskStatusResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Status   string `json:"status"`
		FailMsg  string `json:"failMsg"`
		Response struct {
			ResultURLs []string `json:"resultUrls"`
		} `json:"response"`
	} `json:"data"`
}

// Generate submits a generation task and blocks until it finishes or ctx
// expires. Failures are returned as *capability.GenerationError.
func (v *VideoClient) Generate(ctx context.Context, req capability.GenerationRequest) (*capability.Asset, error) {
	apiKey, err := v.creds.Secret(v.credName)
	if err != nil {
		return nil, &capability.GenerationError{Detail: "video credential unavailable", Err: err}
	}

	taskID, err := v.createTask(ctx, apiKey, req)
	if err != nil {
		return nil, &capability.GenerationError{Detail: "create task", Err: err}
	}

	asset, err := v.waitForTask(ctx, apiKey, taskID)
	if err != nil {
		return nil, &capability.GenerationError{Detail: fmt.Sprintf("task %s", taskID), Err: err}
	}
	return asset, nil
}

func (v *VideoClient) createTask(ctx context.Context, apiKey string, req capability.GenerationRequest) (string, error) {
	body := createTaskRequest{
		Model:       v.model,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
	}
	if m, ok := req.Params["model"].(string); ok && m != "" {
		body.Model = m
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("video: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/jobs/createTask", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("video: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	httpResp, err := v.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("video: request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(httpResp.Body)
		return "", fmt.Errorf("video: API returned status %d: %s", httpResp.StatusCode, string(raw))
	}

	var resp createTaskResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("video: decode response: %w", err)
	}
	if resp.Data.TaskID == "" {
		return "", fmt.Errorf("video: no task ID in response: %s", resp.Msg)
	}
	return resp.Data.TaskID, nil
}

func (v *VideoClient) waitForTask(ctx context.Context, apiKey, taskID string) (*capability.Asset, error) {
	ticker := time.NewTicker(v.pollInterval)
	defer ticker.Stop()

	for {
		status, err := v.taskStatus(ctx, apiKey, taskID)
		if err != nil {
			return nil, err
		}

		switch status.Data.Status {
		case "SUCCESS":
			if len(status.Data.Response.ResultURLs) == 0 {
				return nil, fmt.Errorf("video: task succeeded but returned no result URL")
			}
			return &capability.Asset{URL: status.Data.Response.ResultURLs[0], MimeType: "video/mp4"}, nil
		case "FAILED", "ERROR":
			return nil, fmt.Errorf("video: generation failed: %s", status.Data.FailMsg)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("video: wait for task: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (v *VideoClient) taskStatus(ctx context.Context, apiKey, taskID string) (*taskStatusResponse, error) {
	statusURL := v.baseURL + "/jobs/recordInfo?" + url.Values{"taskId": {taskID}}.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("video: create status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	httpResp, err := v.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("video: status request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("video: status API returned %d: %s", httpResp.StatusCode, string(raw))
	}

	var resp taskStatusResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("video: decode status response: %w", err)
	}
	return &resp, nil
}
