package branded

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/riftlabs/corelaunch/internal/assets"
	"github.com/riftlabs/corelaunch/internal/corerr"
	"github.com/riftlabs/corelaunch/internal/httpclient"
)

// assetsAPIBaseURL is a distinct host from launcherAPIBaseURL: the
// branded CDN that serves the asset overlay index and its objects.
const assetsAPIBaseURL = "https://assets.norisk.gg/api/v1/assets"

// AssetsClient fetches the Branded Asset Overlay's (C6) per-branch
// index and resolves object download URLs.
type AssetsClient struct {
	http *retryablehttp.Client
}

// NewAssetsClient builds an AssetsClient. Unlike the launcherapi host,
// the branded CDN does not vary between production and experimental.
func NewAssetsClient() *AssetsClient {
	return &AssetsClient{http: httpclient.Default()}
}

// OverlayIndex fetches branch's asset map from `branch/{branch}`.
func (c *AssetsClient) OverlayIndex(ctx context.Context, branch, noriskToken string) (assets.OverlayIndex, error) {
	url := fmt.Sprintf("%s/branch/%s", assetsAPIBaseURL, branch)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, corerr.New(corerr.KindHTTP, "building branded asset index request", err)
	}
	req.Header.Set("User-Agent", httpclient.UserAgent)
	req.Header.Set("Accept", "application/json")
	if noriskToken != "" {
		req.Header.Set("Authorization", "Bearer "+noriskToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, corerr.New(corerr.KindHTTP, "fetching branded asset index", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, corerr.New(corerr.KindHTTP, fmt.Sprintf("unexpected status %d for branded asset index", resp.StatusCode), nil)
	}

	var wrapper struct {
		Objects assets.OverlayIndex `json:"objects"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return nil, corerr.New(corerr.KindJSON, "decoding branded asset index", err)
	}
	return wrapper.Objects, nil
}

// ObjectURL resolves a branded asset's content-addressed download URL,
// mirroring the vanilla asset layout (objects/<hash[0:2]>/<hash>) that
// internal/assets.Manager downloads with.
func (c *AssetsClient) ObjectURL(hash string) string {
	if len(hash) < 2 {
		return assetsAPIBaseURL + "/objects/" + hash
	}
	return assetsAPIBaseURL + "/objects/" + hash[:2] + "/" + hash
}
