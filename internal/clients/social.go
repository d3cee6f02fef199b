package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/castrove/castrove/internal/capability"
	"github.com/castrove/castrove/internal/credentials"
)

// SocialClient publishes assets through an aggregator API that fronts the
// individual social platforms. Publishing is two calls: upload the asset so
// the aggregator hosts its own copy, then create the platform post against
// a pre-connected account ID.
type SocialClient struct {
	baseURL  string
	accounts map[string]string // platform -> connected account ID
	client   *http.Client
	creds    credentials.Store
	credName string
}

// SocialOption configures a SocialClient instance.
type SocialOption func(*SocialClient)

// WithSocialHTTPClient overrides the HTTP client, mainly for tests.
func WithSocialHTTPClient(c *http.Client) SocialOption {
	return func(s *SocialClient) { s.client = c }
}

// NewSocialClient creates a publisher against the given aggregator URL.
// accounts maps each lowercase platform name to its connected account ID;
// platforms without an entry cannot be published to.
func NewSocialClient(baseURL, credName string, creds credentials.Store, accounts map[string]string, opts ...SocialOption) *SocialClient {
	s := &SocialClient{
		baseURL:  baseURL,
		accounts: accounts,
		client:   &http.Client{Timeout: 60 * time.Second},
		creds:    creds,
		credName: credName,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ capability.Publisher = (*SocialClient)(nil)

type uploadMediaRequest struct {
	MediaURL string `json:"mediaUrl"`
}

type uploadMediaResponse struct {
	URL string `json:"url"`
}

type createPostRequest struct {
	Platform  string   `json:"platform"`
	AccountID string   `json:"accountId"`
	Content   string   `json:"content"`
	MediaURLs []string `json:"mediaUrls"`
}

type createPostResponse struct {
	ID      string `json:"id"`
	PostURL string `json:"postUrl"`
}

// Publish uploads the asset and creates one post on the named platform.
// Failures are returned as *capability.PublishError so one platform's
// outcome stays isolated from its siblings.
func (s *SocialClient) Publish(ctx context.Context, asset *capability.Asset, platform, caption string) (*capability.PostResult, error) {
	accountID, ok := s.accounts[platform]
	if !ok {
		return nil, &capability.PublishError{Platform: platform, Detail: "no connected account"}
	}

	apiKey, err := s.creds.Secret(s.credName)
	if err != nil {
		return nil, &capability.PublishError{Platform: platform, Detail: "social credential unavailable", Err: err}
	}

	hostedURL, err := s.uploadMedia(ctx, apiKey, asset.URL)
	if err != nil {
		return nil, &capability.PublishError{Platform: platform, Detail: "upload media", Err: err}
	}

	post, err := s.createPost(ctx, apiKey, createPostRequest{
		Platform:  platform,
		AccountID: accountID,
		Content:   caption,
		MediaURLs: []string{hostedURL},
	})
	if err != nil {
		return nil, &capability.PublishError{Platform: platform, Detail: "create post", Err: err}
	}

	return &capability.PostResult{Platform: platform, PostID: post.ID, URL: post.PostURL}, nil
}

func (s *SocialClient) uploadMedia(ctx context.Context, apiKey, mediaURL string) (string, error) {
	var resp uploadMediaResponse
	if err := s.post(ctx, apiKey, "/media", uploadMediaRequest{MediaURL: mediaURL}, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		// Some aggregator deployments echo the source URL instead of
		// rehosting; fall back to it.
		return mediaURL, nil
	}
	return resp.URL, nil
}

func (s *SocialClient) createPost(ctx context.Context, apiKey string, req createPostRequest) (*createPostResponse, error) {
	var resp createPostResponse
	if err := s.post(ctx, apiKey, "/posts", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *SocialClient) post(ctx context.Context, apiKey, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("social: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("social: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	httpResp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("social: request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		raw, _ := io.ReadAll(httpResp.Body)
		return fmt.Errorf("social: API returned status %d: %s", httpResp.StatusCode, string(raw))
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("social: decode response: %w", err)
	}
	return nil
}
