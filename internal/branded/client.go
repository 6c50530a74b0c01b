// Package branded implements the NoRiskClient branded API surface
// consumed by the Launch Orchestrator: the per-branch launch manifest
// (with its on-disk cache fallback, NRCCache) and the branded asset
// overlay index. The launch manifest is served from the same production/
// staging hosts as the Auth Chain's branded-token refresh endpoint
// (internal/auth) and uses the same Bearer-token convention; the overlay
// index comes from a separate assets host.
package branded

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/riftlabs/corelaunch/internal/corerr"
	"github.com/riftlabs/corelaunch/internal/httpclient"
	"github.com/riftlabs/corelaunch/internal/mods"
)

const (
	launcherAPIBaseURL        = "https://api.norisk.gg"
	launcherAPIStagingBaseURL = "https://api-staging.norisk.gg"
	launcherAPIVersion        = "launcherapi/v1"
)

// Client calls the launcherapi/v1 surface: the per-branch launch
// manifest and, in future, the featured-mods/featured-shaders/
// featured-resourcepacks/featured-datapacks/branches discovery
// endpoints that share its host and auth convention.
type Client struct {
	http         *retryablehttp.Client
	experimental bool
}

// NewClient builds a Client against the production or staging
// launcherapi host.
func NewClient(experimental bool) *Client {
	return &Client{http: httpclient.Default(), experimental: experimental}
}

func (c *Client) get(ctx context.Context, endpoint, noriskToken string, out interface{}) error {
	base := launcherAPIBaseURL
	if c.experimental {
		base = launcherAPIStagingBaseURL
	}
	url := fmt.Sprintf("%s/%s/%s", base, launcherAPIVersion, endpoint)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return corerr.New(corerr.KindHTTP, "building request for "+endpoint, err)
	}
	req.Header.Set("User-Agent", httpclient.UserAgent)
	req.Header.Set("Accept", "application/json")
	if noriskToken != "" {
		req.Header.Set("Authorization", "Bearer "+noriskToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return corerr.New(corerr.KindHTTP, "fetching "+endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return corerr.New(corerr.KindHTTP, fmt.Sprintf("unexpected status %d for %s", resp.StatusCode, endpoint), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return corerr.New(corerr.KindJSON, "decoding "+endpoint, err)
	}
	return nil
}

// LaunchManifest fetches branch's pinned build/mods/repositories
// manifest from `version/launch/{branch}`.
func (c *Client) LaunchManifest(ctx context.Context, branch, noriskToken string) (*mods.NoRiskLaunchManifest, error) {
	var m mods.NoRiskLaunchManifest
	if err := c.get(ctx, "version/launch/"+branch, noriskToken, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
