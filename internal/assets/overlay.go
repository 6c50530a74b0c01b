package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/riftlabs/corelaunch/internal/corerr"
	"github.com/riftlabs/corelaunch/internal/download"
	"github.com/riftlabs/corelaunch/internal/progress"
)

const cosmeticsPrefix = "nrc-cosmetics/"

// OverlayObject is one entry of the branded asset map: a logical path
// mapped to its content hash, matching the vanilla Object shape so the
// same content-addressed download machinery applies.
type OverlayObject struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// OverlayIndex is the branch-specific asset map fetched by
// internal/branded.AssetsClient.OverlayIndex from the branded assets
// host's `branch/{branch}` endpoint.
type OverlayIndex map[string]OverlayObject

// ObjectURLFunc resolves the download URL for an overlay object's hash;
// the branded CDN's layout is a deployment detail, so the base URL is
// configured rather than hardcoded.
type ObjectURLFunc func(hash string) string

// Overlay materialises the Branded Asset Overlay (C6) for one branch.
type Overlay struct {
	dl      *download.Manager
	gameDir string // gameDir/<branch>
	urlFor  ObjectURLFunc
	bus     *progress.Bus
}

// NewOverlay builds an Overlay rooted at gameDir (already the
// branch-specific directory, e.g. "<dataDir>/gameDir/main").
func NewOverlay(dl *download.Manager, gameDir string, urlFor ObjectURLFunc, bus *progress.Bus) *Overlay {
	return &Overlay{dl: dl, gameDir: gameDir, urlFor: urlFor, bus: bus}
}

// Apply downloads every object in idx into its destination (cosmetics
// pool or gameDir root) and then prunes orphaned cosmetic files. If any
// download fails it returns nil without pruning.
func (o *Overlay) Apply(ctx context.Context, idx OverlayIndex, concurrency int) error {
	if o.bus != nil {
		o.bus.SetMax(progress.StepDownloadBrandedAssets, uint64(len(idx)))
	}

	var items []download.Item
	var i uint64
	for logicalPath, obj := range idx {
		dest := o.destinationFor(logicalPath)

		if !strings.HasPrefix(logicalPath, cosmeticsPrefix) {
			// Non-cosmetic files are user-owned once materialised: never
			// re-download over an existing file
			if _, err := os.Stat(dest); err == nil {
				i++
				if o.bus != nil {
					o.bus.SetProgress(progress.StepDownloadBrandedAssets, i)
				}
				continue
			}
		}

		items = append(items, download.Item{
			URL:  o.urlFor(obj.Hash),
			Path: dest,
			SHA1: obj.Hash,
			Size: obj.Size,
		})
	}

	if len(items) > 0 {
		mgr := o.dl
		if mgr == nil {
			mgr = download.NewManager(concurrency)
		}
		result, err := mgr.Download(ctx, items, nil)
		if err != nil {
			return err
		}
		if result.Failed > 0 {
			// Branded-asset fetch failure is non-fatal; the launch
			// proceeds with whatever is cached.
			return nil
		}
	}

	if o.bus != nil {
		o.bus.SetProgress(progress.StepDownloadBrandedAssets, uint64(len(idx)))
		o.bus.SetMax(progress.StepVerifyBrandedAssets, 1)
	}

	if err := o.prune(idx); err != nil {
		return err
	}

	if o.bus != nil {
		o.bus.SetProgress(progress.StepVerifyBrandedAssets, 1)
	}
	return nil
}

func (o *Overlay) destinationFor(logicalPath string) string {
	if strings.HasPrefix(logicalPath, cosmeticsPrefix) {
		rest := strings.TrimPrefix(logicalPath, cosmeticsPrefix)
		return filepath.Join(o.gameDir, "NoRiskClient", "assets", rest)
	}
	return filepath.Join(o.gameDir, logicalPath)
}

// prune reads the top level of NoRiskClient/assets/ and deletes any file
// there whose basename is not in idx's current basename set (.DS_Store is
// kept). Subdirectories are not descended into, so files inside them are
// never pruned.
func (o *Overlay) prune(idx OverlayIndex) error {
	cosmeticsDir := filepath.Join(o.gameDir, "NoRiskClient", "assets")

	keep := make(map[string]struct{}, len(idx))
	for logicalPath := range idx {
		if !strings.HasPrefix(logicalPath, cosmeticsPrefix) {
			continue
		}
		keep[filepath.Base(logicalPath)] = struct{}{}
	}

	entries, err := os.ReadDir(cosmeticsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return corerr.New(corerr.KindFilesystem, "walking cosmetics directory", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == ".DS_Store" {
			continue
		}
		if _, ok := keep[name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(cosmeticsDir, name)); err != nil {
			return corerr.New(corerr.KindFilesystem, fmt.Sprintf("removing orphaned asset %s", name), err)
		}
	}
	return nil
}
