// Package assets implements the Asset Index (C5) — the vanilla asset
// index loader and per-object downloader keyed by the first two hex
// digits of the object hash — and the Branded Asset Overlay (C6), which
// layers branch-specific cosmetic and non-cosmetic files on top.
package assets

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/riftlabs/corelaunch/internal/corerr"
	"github.com/riftlabs/corelaunch/internal/download"
)

// Object is one entry of a vanilla AssetIndex: a content-addressed blob
// identified by its SHA-1 hash.
type Object struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// Index is a map from logical asset path (e.g. "minecraft/sounds/...")
// to its content-addressed Object.
type Index struct {
	Objects map[string]Object `json:"objects"`
}

// ObjectPath returns objects/<hash[0..2]>/<hash>, the fixed hash-prefix
// placement used for every content-addressed object on disk.
func ObjectPath(assetsDir, hash string) string {
	if len(hash) < 2 {
		return filepath.Join(assetsDir, "objects", hash)
	}
	return filepath.Join(assetsDir, "objects", hash[:2], hash)
}

// Manager loads and materialises the vanilla asset index.
type Manager struct {
	dl        *download.Manager
	assetsDir string
}

// NewManager builds an assets Manager rooted at assetsDir
// (data-dir/assets), using dl for all network fetches.
func NewManager(dl *download.Manager, assetsDir string) *Manager {
	return &Manager{dl: dl, assetsDir: assetsDir}
}

// LoadIndex fetches indexURL (unless indexes/<id>.json is already
// cached on disk) and returns the parsed Index.
func (m *Manager) LoadIndex(ctx context.Context, id, indexURL string) (*Index, error) {
	cachePath := filepath.Join(m.assetsDir, "indexes", id+".json")

	if data, err := os.ReadFile(cachePath); err == nil {
		var idx Index
		if err := json.Unmarshal(data, &idx); err == nil {
			return &idx, nil
		}
	}

	data, err := m.dl.FetchToBytes(ctx, indexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching asset index %s: %w", id, err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, corerr.New(corerr.KindJSON, "decoding asset index "+id, err)
	}

	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		return nil, corerr.New(corerr.KindFilesystem, "creating asset index cache dir", err)
	}
	_ = os.WriteFile(cachePath, data, 0644)

	return &idx, nil
}

// IsCurrent reports whether the object at ObjectPath(assetsDir, hash)
// exists and its size matches. This is a size-only check that skips
// re-hashing to amortise cost; see VerifyIntegrity for a full re-hash.
func (m *Manager) IsCurrent(hash string, size int64) bool {
	info, err := os.Stat(ObjectPath(m.assetsDir, hash))
	if err != nil {
		return false
	}
	return info.Size() == size
}

// VerifyIntegrity re-hashes the object on disk and compares it against
// hash, for callers that opt into an on-demand integrity pass.
func (m *Manager) VerifyIntegrity(hash string) error {
	f, err := os.Open(ObjectPath(m.assetsDir, hash))
	if err != nil {
		return corerr.New(corerr.KindFilesystem, "opening asset object", err)
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return corerr.New(corerr.KindFilesystem, "hashing asset object", err)
	}
	actual := hex.EncodeToString(h.Sum(nil))
	if actual != hash {
		return corerr.HashMismatch(hash, actual)
	}
	return nil
}

// DownloadObjects downloads every object in idx that is missing or
// whose size doesn't match, at up to concurrency in parallel.
func (m *Manager) DownloadObjects(ctx context.Context, idx *Index, concurrency int) error {
	var items []download.Item
	for _, obj := range idx.Objects {
		if m.IsCurrent(obj.Hash, obj.Size) {
			continue
		}
		items = append(items, download.Item{
			URL:  "https://resources.download.minecraft.net/" + obj.Hash[:2] + "/" + obj.Hash,
			Path: ObjectPath(m.assetsDir, obj.Hash),
			SHA1: obj.Hash,
			Size: obj.Size,
		})
	}
	if len(items) == 0 {
		return nil
	}

	mgr := download.NewManager(concurrency)
	result, err := mgr.Download(ctx, items, nil)
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return corerr.New(corerr.KindHTTP, fmt.Sprintf("%d asset objects failed to download", result.Failed), result.Errors[0])
	}
	return nil
}
