// Package platform resolves the content URLs loaded into the overlay source
// windows. The chat URL depends on the active streaming platform and theme;
// lookups may touch the network and carry no retry logic of their own.
package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/neferent/streamlabs-obs/config"
)

var (
	// ErrUnknownPlatform is returned for a platform id with no configured
	// chat URL.
	ErrUnknownPlatform = errors.New("platform: unknown platform")
)

// Resolver supplies content URLs for the overlay windows.
type Resolver interface {
	// ChatURL returns the chat content URL for the platform, styled for the
	// given theme. May block on the network.
	ChatURL(ctx context.Context, platformID string, dark bool) (string, error)
	// RecentEventsURL returns the recent-events feed URL.
	RecentEventsURL() string
}

// ConfigResolver reads platform URLs from the daemon configuration and
// optionally validates them with a HEAD request before handing them out.
type ConfigResolver struct {
	cfg    config.Config
	client *http.Client
}

func NewResolver(cfg config.Config) *ConfigResolver {
	return &ConfigResolver{cfg: cfg, client: &http.Client{}}
}

func (r *ConfigResolver) ChatURL(ctx context.Context, platformID string, dark bool) (string, error) {
	url := r.cfg.GetString("platform", platformID+"_chat_url", "")
	if url == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, platformID)
	}
	if platformID == "twitch" && dark {
		url += "?darkpopout"
	}

	if r.cfg.GetBool("platform", "validate_urls", false) {
		timeout := time.Duration(r.cfg.GetInt("platform", "validate_timeout_ms", 2000)) * time.Millisecond
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return "", err
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return "", fmt.Errorf("platform: validate %s: %w", url, err)
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			return "", fmt.Errorf("platform: validate %s: status %d", url, resp.StatusCode)
		}
	}
	return url, nil
}

func (r *ConfigResolver) RecentEventsURL() string {
	return r.cfg.GetString("platform", "recent_events_url", "")
}
