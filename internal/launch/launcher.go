package launch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/riftlabs/corelaunch/internal/assets"
	"github.com/riftlabs/corelaunch/internal/config"
	"github.com/riftlabs/corelaunch/internal/corerr"
	"github.com/riftlabs/corelaunch/internal/download"
	"github.com/riftlabs/corelaunch/internal/java"
	"github.com/riftlabs/corelaunch/internal/platform"
	"github.com/riftlabs/corelaunch/internal/profile"
	"github.com/riftlabs/corelaunch/internal/progress"
)

// Supervisor spawns a prepared Plan, owning process registration, I/O
// pumping, and liveness tracking (C10). It is the last step of the
// launch pipeline; Launcher depends only on this interface so C9 stays
// decoupled from the supervisor's process-table and persistence
// concerns.
type Supervisor interface {
	Spawn(ctx context.Context, instanceID string, plan Plan) error
}

// Launcher runs the Launch Orchestrator pipeline for one Options.
type Launcher struct {
	opts  *Options
	probe platform.Probe

	dl       *download.Manager
	assetsMg *assets.Manager

	detector   *java.Detector
	downloader *java.Downloader

	javaPath      string
	clientJarPath string
	nativesDir    string
	resolved      []resolvedLibrary
}

// NewLauncher builds a Launcher for opts. ctx is used only to resolve
// the platform probe (Rosetta detection shells out with a short
// timeout); it is not retained.
func NewLauncher(ctx context.Context, opts *Options) *Launcher {
	cfg := opts.Config
	concurrency := cfg.ConcurrentDownloads
	if concurrency <= 0 {
		concurrency = config.DefaultConcurrentDownloads
	}

	dl := download.NewManager(concurrency)
	return &Launcher{
		opts:       opts,
		probe:      platform.NewProbe(ctx),
		dl:         dl,
		assetsMg:   assets.NewManager(dl, cfg.AssetsDir),
		detector:   java.NewDetector(),
		downloader: java.NewDownloader(),
	}
}

// environment derives the profile rule-evaluation Environment for the
// current host.
func (l *Launcher) environment() profile.Environment {
	return profile.Environment{
		OSName: l.probe.OS.ClassifierName(),
		Arch:   string(l.probe.Arch),
	}
}

// Launch runs the full pipeline — Java, client jar, libraries/natives,
// assets, mods — then builds the argv and hands it to sup for spawning.
func (l *Launcher) Launch(ctx context.Context, sup Supervisor) error {
	steps := []func(context.Context) error{
		l.ensureJava,
		l.ensureClientJar,
		l.resolveLibrariesAndNatives,
		l.downloadAssets,
		l.installMods,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return corerr.New(corerr.KindCancelled, "launch cancelled", err)
		}
		if err := step(ctx); err != nil {
			return err
		}
	}

	args, err := l.buildArguments(ctx)
	if err != nil {
		return err
	}

	plan := Plan{
		JavaPath: l.javaPath,
		Args:     args,
		GameDir:  l.opts.GameDir,
	}
	return sup.Spawn(ctx, l.opts.InstanceID, plan)
}

// Prepare runs every step up to and including argument resolution
// without spawning, returning the Plan a caller can inspect or hand to
// a Supervisor itself.
func (l *Launcher) Prepare(ctx context.Context) (*Plan, error) {
	for _, step := range []func(context.Context) error{
		l.ensureJava,
		l.ensureClientJar,
		l.resolveLibrariesAndNatives,
		l.downloadAssets,
		l.installMods,
	} {
		if err := step(ctx); err != nil {
			return nil, err
		}
	}
	args, err := l.buildArguments(ctx)
	if err != nil {
		return nil, err
	}
	return &Plan{JavaPath: l.javaPath, Args: args, GameDir: l.opts.GameDir}, nil
}

// ensureJava resolves a Java executable through four tiers: an explicit
// override, the managed runtimes directory, system-wide detection, and
// finally downloading the required major version from Adoptium.
func (l *Launcher) ensureJava(ctx context.Context) error {
	if l.opts.JavaPathOverride != "" {
		l.javaPath = l.opts.JavaPathOverride
		return nil
	}
	if l.opts.Config.JavaPath != "" {
		if _, err := os.Stat(l.opts.Config.JavaPath); err == nil {
			l.javaPath = l.opts.Config.JavaPath
			return nil
		}
	}

	required := profile.RequiredJavaMajor(l.opts.Profile)
	runtimeDir := filepath.Join(l.opts.Config.RuntimesDir, fmt.Sprintf("%s-%d", l.probe.Arch, required))

	if exe, err := l.downloader.FindJavaExecutable(runtimeDir); err == nil {
		l.javaPath = exe
		l.emitLabel("java.managed", map[string]string{"version": fmt.Sprint(required)})
		return nil
	}

	if inst := l.detector.FindBest(required); inst != nil && profile.JavaVersionSatisfies(inst.Version, required) {
		l.javaPath = inst.Path
		l.emitLabel("java.detected", map[string]string{"version": java.FormatInstallation(inst)})
		return nil
	}

	l.bus().SetMax(progress.StepDownloadJRE, 1)
	exe, err := l.downloader.DownloadRuntime(ctx, required, runtimeDir, func(msg string) {
		l.emitLabel("java.downloading", map[string]string{"detail": msg})
	})
	if err != nil {
		return corerr.New(corerr.KindHTTP, fmt.Sprintf("downloading java %d", required), err)
	}
	l.bus().SetProgress(progress.StepDownloadJRE, 1)
	l.javaPath = exe
	return nil
}

// ensureClientJar verifies (or fetches) versions/<id>/<id>.jar.
func (l *Launcher) ensureClientJar(ctx context.Context) error {
	p := l.opts.Profile
	if p.Downloads.Client == nil {
		return nil
	}
	client := p.Downloads.Client
	destPath := filepath.Join(l.opts.Config.DataDir, "versions", p.ID, p.ID+".jar")

	l.bus().SetMax(progress.StepDownloadClientJar, 1)
	result, err := l.dl.Download(ctx, []download.Item{{
		URL:  client.URL,
		Path: destPath,
		SHA1: client.SHA1,
		Size: client.Size,
	}}, nil)
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return corerr.New(corerr.KindHTTP, "downloading client jar", result.Errors[0])
	}
	l.bus().SetProgress(progress.StepDownloadClientJar, 1)
	l.clientJarPath = destPath
	return nil
}

// resolveLibrariesAndNatives deletes and recreates natives/, downloads
// every allowed library (and, for libraries with a native classifier for
// this OS, their native archive), then extracts each native archive.
func (l *Launcher) resolveLibrariesAndNatives(ctx context.Context) error {
	p := l.opts.Profile
	env := l.environment()

	nativesDir := filepath.Join(l.opts.GameDir, "natives")
	if err := os.RemoveAll(nativesDir); err != nil {
		return corerr.New(corerr.KindFilesystem, "clearing natives directory", err)
	}
	if err := os.MkdirAll(nativesDir, 0755); err != nil {
		return corerr.New(corerr.KindFilesystem, "creating natives directory", err)
	}

	resolved, err := resolveLibraries(p.Libraries, l.opts.Config.LibrariesDir, env)
	if err != nil {
		return err
	}
	l.resolved = resolved

	var items []download.Item
	for _, r := range resolved {
		if r.ArtifactItem != nil {
			items = append(items, *r.ArtifactItem)
		}
		if r.NativeItem != nil {
			items = append(items, *r.NativeItem)
		}
	}

	l.bus().SetMax(progress.StepDownloadLibraries, uint64(len(items)))
	if len(items) > 0 {
		result, err := l.dl.Download(ctx, items, nil)
		if err != nil {
			return err
		}
		if result.Failed > 0 {
			return corerr.New(corerr.KindHTTP, fmt.Sprintf("%d libraries failed to download", result.Failed), result.Errors[0])
		}
	}
	l.bus().SetProgress(progress.StepDownloadLibraries, uint64(len(items)))

	for _, r := range resolved {
		if r.NativeItem == nil {
			continue
		}
		if err := download.ExtractNatives(r.NativeItem.Path, nativesDir); err != nil {
			return err
		}
	}

	l.nativesDir = nativesDir
	return nil
}

// downloadAssets fetches the vanilla asset index/objects, then applies
// the branded overlay unless the caller opted to keep local assets.
func (l *Launcher) downloadAssets(ctx context.Context) error {
	p := l.opts.Profile

	idx, err := l.assetsMg.LoadIndex(ctx, p.AssetIndex.ID, p.AssetIndex.URL)
	if err != nil {
		return err
	}

	l.bus().SetMax(progress.StepDownloadAssets, uint64(len(idx.Objects)))
	if err := l.assetsMg.DownloadObjects(ctx, idx, l.opts.Config.ConcurrentDownloads); err != nil {
		return err
	}
	l.bus().SetProgress(progress.StepDownloadAssets, uint64(len(idx.Objects)))

	if l.opts.KeepLocalAssets || l.opts.Overlay == nil || len(l.opts.OverlayIndex) == 0 {
		return nil
	}
	return l.opts.Overlay.Apply(ctx, l.opts.OverlayIndex, l.opts.Config.ConcurrentDownloads)
}

// installMods materialises declared mods, shaders, resourcepacks, and
// datapacks into the instance's game directory.
func (l *Launcher) installMods(ctx context.Context) error {
	if l.opts.Materialiser == nil {
		return nil
	}
	l.bus().SetMax(progress.StepDownloadBrandedMods, 1)
	if err := l.opts.Materialiser.InstallMods(ctx, l.opts.ManifestMods, l.opts.UserMods, l.opts.Repositories); err != nil {
		return err
	}
	l.bus().SetProgress(progress.StepDownloadBrandedMods, 1)

	if len(l.opts.Shaders) > 0 {
		l.bus().SetMax(progress.StepDownloadShader, uint64(len(l.opts.Shaders)))
		if err := l.opts.Materialiser.InstallShaders(ctx, l.opts.Shaders); err != nil {
			return err
		}
		l.bus().SetProgress(progress.StepDownloadShader, uint64(len(l.opts.Shaders)))
	}
	if len(l.opts.ResourcePacks) > 0 {
		l.bus().SetMax(progress.StepDownloadResourcePack, uint64(len(l.opts.ResourcePacks)))
		if err := l.opts.Materialiser.InstallResourcePacks(ctx, l.opts.ResourcePacks); err != nil {
			return err
		}
		l.bus().SetProgress(progress.StepDownloadResourcePack, uint64(len(l.opts.ResourcePacks)))
	}
	for world, packs := range l.opts.Datapacks {
		if err := l.opts.Materialiser.InstallDatapacks(ctx, world, packs); err != nil {
			return err
		}
	}
	return nil
}

func (l *Launcher) bus() *progress.Bus {
	if l.opts.Bus != nil {
		return l.opts.Bus
	}
	return discardBus
}

// discardBus absorbs progress updates for callers that don't supply one;
// its channel is never drained, but Bus.emit is non-blocking so this is
// safe to share across launches.
var discardBus = progress.New(1)

func (l *Launcher) emitLabel(key string, params map[string]string) {
	l.bus().SetLabel(key, params)
}
