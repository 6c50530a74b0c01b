package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/riftlabs/corelaunch/internal/httpclient"
)

const vanillaManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

// Resolver fetches the vanilla manifest and resolves version profiles,
// including the inheritsFrom parent-merge chain, with a manifest TTL
// cache and an on-disk per-version cache to avoid refetching profiles
// that rarely change.
type Resolver struct {
	client       *retryablehttp.Client
	cacheDir     string
	manifest     *VersionManifest
	manifestAt   time.Time
	manifestTTL  time.Duration
	manifestURL  string
	fetchProfile func(ctx context.Context, url string) (*Details, error) // overridable for tests
}

// NewResolver builds a Resolver caching fetched version profiles under
// cacheDir/versions/<id>.json.
func NewResolver(cacheDir string) *Resolver {
	r := &Resolver{
		client:      httpclient.Default(),
		cacheDir:    filepath.Join(cacheDir, "versions"),
		manifestTTL: 5 * time.Minute,
		manifestURL: vanillaManifestURL,
	}
	r.fetchProfile = r.fetchProfileHTTP
	return r
}

// Manifest returns the vanilla version manifest, cached for manifestTTL.
func (r *Resolver) Manifest(ctx context.Context) (*VersionManifest, error) {
	if r.manifest != nil && time.Since(r.manifestAt) < r.manifestTTL {
		return r.manifest, nil
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, r.manifestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building manifest request: %w", err)
	}
	req.Header.Set("User-Agent", httpclient.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching version manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected manifest status: %d", resp.StatusCode)
	}

	var m VersionManifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding version manifest: %w", err)
	}

	r.manifest = &m
	r.manifestAt = time.Now()
	return &m, nil
}

// FindVersion looks up a version entry by id in the manifest.
func (r *Resolver) FindVersion(ctx context.Context, id string) (*Version, error) {
	m, err := r.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	for i := range m.Versions {
		if m.Versions[i].ID == id {
			return &m.Versions[i], nil
		}
	}
	return nil, fmt.Errorf("version not found: %s", id)
}

// Resolve loads the profile for versionID and, if it declares
// InheritsFrom, recursively loads and merges the parent chain: scalar
// fields take the child's override, and arguments.jvm/game and
// libraries concatenate parent-then-child in declared order, so child
// rule overrides are evaluated last.
func (r *Resolver) Resolve(ctx context.Context, versionID string) (*Details, error) {
	child, err := r.loadByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if child.InheritsFrom == "" {
		return child, nil
	}

	parent, err := r.Resolve(ctx, child.InheritsFrom)
	if err != nil {
		return nil, fmt.Errorf("resolving parent profile %q: %w", child.InheritsFrom, err)
	}

	return merge(parent, child), nil
}

// merge combines parent and child profile fields: scalar fields take
// the child's value when non-zero, libraries and argument lists
// concatenate parent-then-child.
func merge(parent, child *Details) *Details {
	out := *child
	out.InheritsFrom = ""

	if out.MainClass == "" {
		out.MainClass = parent.MainClass
	}
	if out.Assets == "" {
		out.Assets = parent.Assets
	}
	if out.AssetIndex.ID == "" {
		out.AssetIndex = parent.AssetIndex
	}
	if out.Downloads.Client == nil {
		out.Downloads.Client = parent.Downloads.Client
	}
	if out.JavaVersion.MajorVersion == 0 {
		out.JavaVersion = parent.JavaVersion
	}
	if out.MinecraftArguments == "" {
		out.MinecraftArguments = parent.MinecraftArguments
	}

	out.Libraries = append(append([]Library{}, parent.Libraries...), child.Libraries...)

	if parent.Arguments != nil || child.Arguments != nil {
		merged := &Arguments{}
		if parent.Arguments != nil {
			merged.Game = append(merged.Game, parent.Arguments.Game...)
			merged.JVM = append(merged.JVM, parent.Arguments.JVM...)
		}
		if child.Arguments != nil {
			merged.Game = append(merged.Game, child.Arguments.Game...)
			merged.JVM = append(merged.JVM, child.Arguments.JVM...)
		}
		out.Arguments = merged
	}

	return &out
}

func (r *Resolver) loadByID(ctx context.Context, versionID string) (*Details, error) {
	if cached, err := r.loadCached(versionID); err == nil {
		return cached, nil
	}

	v, err := r.FindVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	details, err := r.fetchProfile(ctx, v.URL)
	if err != nil {
		return nil, err
	}
	details.ID = versionID

	_ = r.saveCached(versionID, details)
	return details, nil
}

func (r *Resolver) fetchProfileHTTP(ctx context.Context, url string) (*Details, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building profile request: %w", err)
	}
	req.Header.Set("User-Agent", httpclient.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching version profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected profile status: %d", resp.StatusCode)
	}

	var d Details
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return nil, fmt.Errorf("decoding version profile: %w", err)
	}
	return &d, nil
}

func (r *Resolver) cachePath(versionID string) string {
	return filepath.Join(r.cacheDir, versionID+".json")
}

func (r *Resolver) loadCached(versionID string) (*Details, error) {
	data, err := os.ReadFile(r.cachePath(versionID))
	if err != nil {
		return nil, err
	}
	var d Details
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding cached profile: %w", err)
	}
	return &d, nil
}

func (r *Resolver) saveCached(versionID string, d *Details) error {
	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(r.cachePath(versionID), data, 0o644)
}

// RequiredJavaMajor resolves the minimum Java major version a profile
// needs, defaulting to 8 (legacy versions omit javaVersion entirely).
func RequiredJavaMajor(d *Details) int {
	if d.JavaVersion.MajorVersion > 0 {
		return d.JavaVersion.MajorVersion
	}
	return 8
}

// JavaVersionSatisfies reports whether detected (e.g. "17.0.9") meets or
// exceeds required (e.g. 17). Only the major component is compared, so
// "21.0.1" and "21" both satisfy 21; a legacy "1.8.0_391" string is read
// as major 8, and a string semver cannot parse does not satisfy.
// Detector.FindBest already filters on the coarse MajorVersion int it
// parsed from `java -version`; this is the recheck against the full
// version string before a detected installation is trusted for launch.
func JavaVersionSatisfies(detected string, required int) bool {
	v, err := semver.NewVersion(strings.Replace(detected, "_", "+", 1))
	if err != nil {
		return false
	}
	major := v.Major()
	if major == 1 {
		major = v.Minor() // legacy "1.x" numbering
	}
	return major >= int64(required)
}
