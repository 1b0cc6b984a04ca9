package smtp

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/oshokin/camera-funnel/internal/domain/trigger"
)

// Loopback forwards a camera name to the HTTP trigger endpoint.
type Loopback interface {
	Motion(ctx context.Context, cameraName string) (trigger.Result, error)
}

// HTTPLoopback calls GET /motion?<camera> on the local HTTP adapter,
// tagging the request so the trigger is accounted to the smtp channel.
type HTTPLoopback struct {
	client *resty.Client
}

// NewHTTPLoopback creates a loopback client for the given base URL.
func NewHTTPLoopback(baseURL string, timeout time.Duration) *HTTPLoopback {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader(trigger.HeaderChannel, string(trigger.ChannelSMTP))

	return &HTTPLoopback{client: client}
}

// Motion reports motion for the camera; a 500 answer comes back as an error result.
func (l *HTTPLoopback) Motion(ctx context.Context, cameraName string) (trigger.Result, error) {
	var result trigger.Result

	resp, err := l.client.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&result).
		Get("/motion?" + url.PathEscape(cameraName))
	if err != nil {
		return trigger.Result{}, fmt.Errorf("loopback request for %q: %w", cameraName, err)
	}

	if resp.IsError() && result.Message == "" {
		return trigger.Result{}, fmt.Errorf("loopback request for %q: unexpected status %s", cameraName, resp.Status())
	}

	return result, nil
}
