package branded

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/riftlabs/corelaunch/internal/corerr"
	"github.com/riftlabs/corelaunch/internal/mods"
)

// NRCCache persists the most recently fetched branded launch manifest
// under dataDir/nrc_cache/launch_manifest.json, so a launch can proceed
// from the last-known-good manifest when the branded API is
// unreachable.
type NRCCache struct {
	dir    string
	client *Client
}

// NewNRCCache builds an NRCCache rooted at dataDir, fetching through
// client.
func NewNRCCache(dataDir string, client *Client) *NRCCache {
	return &NRCCache{dir: filepath.Join(dataDir, "nrc_cache"), client: client}
}

func (c *NRCCache) manifestPath() string {
	return filepath.Join(c.dir, "launch_manifest.json")
}

// Load reads the manifest last persisted by Store.
func (c *NRCCache) Load() (*mods.NoRiskLaunchManifest, error) {
	data, err := os.ReadFile(c.manifestPath())
	if err != nil {
		return nil, corerr.New(corerr.KindFilesystem, "reading cached launch manifest", err)
	}
	var m mods.NoRiskLaunchManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, corerr.New(corerr.KindJSON, "decoding cached launch manifest", err)
	}
	return &m, nil
}

// Store overwrites the on-disk cache with m.
func (c *NRCCache) Store(m *mods.NoRiskLaunchManifest) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return corerr.New(corerr.KindFilesystem, "creating nrc_cache directory", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return corerr.New(corerr.KindJSON, "encoding launch manifest", err)
	}
	if err := os.WriteFile(c.manifestPath(), data, 0o644); err != nil {
		return corerr.New(corerr.KindFilesystem, "writing cached launch manifest", err)
	}
	return nil
}

// FetchOrFallback fetches branch's launch manifest from the branded
// API; on success it overwrites the disk cache before returning. On
// fetch failure it falls back to the last cached manifest instead of
// failing the launch outright — the fetch error is only surfaced when
// no cached manifest exists either, per spec.md's "branded-manifest
// fetch failure => fall back to nrc_cache/launch_manifest.json;
// otherwise fatal" policy.
func (c *NRCCache) FetchOrFallback(ctx context.Context, branch, noriskToken string) (*mods.NoRiskLaunchManifest, error) {
	m, fetchErr := c.client.LaunchManifest(ctx, branch, noriskToken)
	if fetchErr == nil {
		if err := c.Store(m); err != nil {
			return nil, err
		}
		return m, nil
	}

	cached, loadErr := c.Load()
	if loadErr != nil {
		return nil, fetchErr
	}
	return cached, nil
}
