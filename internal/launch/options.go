// Package launch implements the Launch Orchestrator (C9): it composes
// the version profile, content cache, mod materialiser, and branded
// asset overlay into a fully-resolved argv, then hands that Plan to a
// Process Supervisor (C10) to spawn.
package launch

import (
	"github.com/riftlabs/corelaunch/internal/assets"
	"github.com/riftlabs/corelaunch/internal/auth"
	"github.com/riftlabs/corelaunch/internal/config"
	"github.com/riftlabs/corelaunch/internal/mods"
	"github.com/riftlabs/corelaunch/internal/profile"
	"github.com/riftlabs/corelaunch/internal/progress"
)

// Options configures a single launch.
type Options struct {
	// Profile is the resolved (inheritsFrom-merged) version profile.
	Profile *profile.Details

	// Credentials is the authenticated account launching the game, or
	// nil for an offline/cracked launch (PlayerName is used instead).
	Credentials *auth.Credentials
	PlayerName  string

	Config *config.Config

	// GameDir is this instance's branch-specific game directory
	// (gameDir/<branch>); natives/, mods/, saves/, etc. live under it.
	GameDir string

	// InstanceID identifies the RunnerInstance a Process Supervisor will
	// register after spawn.
	InstanceID string

	// JavaPathOverride, when set, skips every tier of Java resolution.
	JavaPathOverride string

	// KeepLocalAssets skips the branded asset overlay reconciliation
	// when true, leaving whatever is already on disk untouched.
	KeepLocalAssets bool
	Experimental    bool

	// Overlay and OverlayIndex drive the Branded Asset Overlay (C6).
	// Both nil/empty skips the overlay step entirely.
	Overlay      *assets.Overlay
	OverlayIndex assets.OverlayIndex

	// Materialiser and its inputs drive the Mod/Pack Materialiser (C7).
	// A nil Materialiser skips mod installation.
	Materialiser  *mods.Materialiser
	ManifestMods  []mods.LoaderMod
	UserMods      []mods.UserOverride
	Repositories  map[string]string
	Shaders       []mods.LoaderMod
	ResourcePacks []mods.LoaderMod
	Datapacks     map[string][]mods.LoaderMod // world name -> declared packs

	LauncherName    string
	LauncherVersion string

	// Bus receives progress updates for this launch. Nil is safe; no
	// progress is reported.
	Bus *progress.Bus
}

// Plan is the fully-resolved command a Process Supervisor spawns.
type Plan struct {
	JavaPath string
	Args     []string
	GameDir  string
}
