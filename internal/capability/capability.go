// Package capability defines the boundary contracts the executor calls for
// asset generation and social publishing. Concrete clients live in
// internal/clients; tests substitute fakes.
package capability

import (
	"context"
	"fmt"
)

// GenerationRequest is a fully resolved asset-generation order: the idea
// selection step turns a workflow's content spec into one of these.
type GenerationRequest struct {
	Prompt      string         `json:"prompt"`
	Title       string         `json:"title,omitempty"`
	Caption     string         `json:"caption,omitempty"`
	AspectRatio string         `json:"aspect_ratio,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
}

// Asset is a produced piece of content, addressable by URL.
type Asset struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
}

// PostResult is the unambiguous outcome of one successful publish call.
type PostResult struct {
	Platform string `json:"platform"`
	PostID   string `json:"post_id"`
	URL      string `json:"url,omitempty"`
}

// Generator produces an asset from a generation request. The call is
// synchronous from the executor's point of view and honors ctx deadlines.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*Asset, error)
}

// Publisher posts an asset to a single platform. One platform's failure must
// not affect another; the executor calls Publish per target independently.
type Publisher interface {
	Publish(ctx context.Context, asset *Asset, platform, caption string) (*PostResult, error)
}

// GenerationError means the capability failed to produce an asset. The run
// terminates as failed; the core does not retry.
type GenerationError struct {
	Detail string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("generation failed: %s", e.Detail)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// PublishError means one target platform rejected the post. Sibling targets
// are unaffected.
type PublishError struct {
	Platform string
	Detail   string
	Err      error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("publish to %s failed: %s: %v", e.Platform, e.Detail, e.Err)
	}
	return fmt.Sprintf("publish to %s failed: %s", e.Platform, e.Detail)
}

func (e *PublishError) Unwrap() error { return e.Err }
