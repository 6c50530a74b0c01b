package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/riftlabs/corelaunch/internal/assets"
	"github.com/riftlabs/corelaunch/internal/auth"
	"github.com/riftlabs/corelaunch/internal/branded"
	"github.com/riftlabs/corelaunch/internal/config"
	"github.com/riftlabs/corelaunch/internal/download"
	"github.com/riftlabs/corelaunch/internal/launch"
	"github.com/riftlabs/corelaunch/internal/mods"
	"github.com/riftlabs/corelaunch/internal/profile"
	"github.com/riftlabs/corelaunch/internal/progress"
	"github.com/riftlabs/corelaunch/internal/supervisor"
	"github.com/spf13/cobra"
)

type launchFlags struct {
	version      string
	branch       string
	account      string
	playerName   string
	offline      bool
	experimental bool
	keepAssets   bool
}

func launchCmd() *cobra.Command {
	var f launchFlags
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Resolve, materialise, and spawn a Minecraft instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd, &f)
		},
	}
	cmd.Flags().StringVar(&f.version, "version", "", "vanilla version id to launch (required)")
	cmd.Flags().StringVar(&f.branch, "branch", "default", "branch name; names the instance's game directory")
	cmd.Flags().StringVar(&f.account, "account", "", "account uuid to launch with (default: the active account)")
	cmd.Flags().StringVar(&f.playerName, "player", "Player", "offline player name, used when no account is available")
	cmd.Flags().BoolVar(&f.offline, "offline", false, "skip authentication and launch with --player instead")
	cmd.Flags().BoolVar(&f.experimental, "experimental", false, "use the experimental branded token instead of production")
	cmd.Flags().BoolVar(&f.keepAssets, "keep-local-assets", false, "skip branded asset overlay reconciliation")
	cmd.MarkFlagRequired("version")
	return cmd
}

func runLaunch(cmd *cobra.Command, f *launchFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var creds *auth.Credentials
	var noriskToken string
	if !f.offline {
		store := auth.NewStore(cfg.DataDir)
		if err := store.Load(); err != nil {
			return fmt.Errorf("loading account store: %w", err)
		}
		creds, err = resolveAccount(ctx, store, f.account)
		if err != nil {
			return err
		}

		refreshed, err := store.RefreshBrandedTokenIfNecessary(ctx, creds.ID, f.experimental, false)
		if err != nil {
			return fmt.Errorf("refreshing branded token: %w", err)
		}
		creds = &refreshed
		noriskToken, _ = refreshed.BrandedTokens.Token(f.experimental)

		if err := store.Save(); err != nil {
			return fmt.Errorf("saving account store: %w", err)
		}
	}

	resolver := profile.NewResolver(cfg.DataDir)
	details, err := resolver.Resolve(ctx, f.version)
	if err != nil {
		return fmt.Errorf("resolving version profile %s: %w", f.version, err)
	}

	gameDir := filepath.Join(cfg.GameDir, f.branch)
	bus := progress.New(64)
	stopPrinter := printProgress(cmd.OutOrStdout(), bus)
	defer func() {
		bus.Close()
		stopPrinter()
	}()

	instanceID := instanceIDFor(f.branch)

	opts := &launch.Options{
		Profile:         details,
		Credentials:     creds,
		PlayerName:      f.playerName,
		Config:          cfg,
		GameDir:         gameDir,
		InstanceID:      instanceID,
		Experimental:    f.experimental,
		KeepLocalAssets: f.keepAssets,
		LauncherName:    "corelaunch",
		LauncherVersion: "1.0",
		Bus:             bus,
	}

	if !f.offline {
		dl := download.NewManager(cfg.ConcurrentDownloads)
		if err := populateBrandedContent(ctx, f, cfg, dl, gameDir, noriskToken, bus, opts); err != nil {
			return fmt.Errorf("fetching branded manifest for branch %s: %w", f.branch, err)
		}
	}

	registry := supervisor.NewRegistry(cfg.DataDir)
	if err := registry.LoadAndReconcile(); err != nil {
		return fmt.Errorf("reconciling running instances: %w", err)
	}

	sup := supervisor.New(registry, func(id string, stream supervisor.OutputStream, chunk []byte) {
		fmt.Fprint(cmd.OutOrStdout(), string(chunk))
	})

	launcher := launch.NewLauncher(ctx, opts)
	if err := launcher.Launch(ctx, sup); err != nil {
		return fmt.Errorf("launching %s: %w", f.version, err)
	}
	return nil
}

// resolveAccount returns the account to launch with, refreshing its
// token if it has expired. accountID selects a specific account;
// empty selects the store's active account.
func resolveAccount(ctx context.Context, store *auth.Store, accountID string) (*auth.Credentials, error) {
	var existing auth.Credentials
	if accountID == "" {
		active, ok := store.Active()
		if !ok {
			return nil, fmt.Errorf("no active account; run \"corelaunchd login\" or pass --offline")
		}
		existing = active
	} else {
		found, ok := store.Users[accountID]
		if !ok {
			return nil, fmt.Errorf("no stored account %q", accountID)
		}
		existing = found
	}

	if !existing.IsExpired() {
		return &existing, nil
	}

	creds, err := store.Refresh(ctx, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("refreshing account %s: %w", existing.ID, err)
	}
	return &creds, nil
}

// instanceIDFor derives a stable RunnerInstance id for a branch so a
// restart can recognise and reconcile an already-running launch.
func instanceIDFor(branch string) string {
	return "branch:" + branch
}

// populateBrandedContent fetches the branch's branded launch manifest
// (falling back to the on-disk NRCCache when the branded API is
// unreachable) and asset overlay index, wiring both into opts so the
// Launch Orchestrator installs manifest-declared mods and reconciles
// the branded asset overlay. Errors from the asset overlay fetch are
// non-fatal: f.keepAssets already lets a user skip overlay
// reconciliation entirely, so a best-effort empty index just falls
// back to the same behavior.
func populateBrandedContent(ctx context.Context, f *launchFlags, cfg *config.Config, dl *download.Manager, gameDir, noriskToken string, bus *progress.Bus, opts *launch.Options) error {
	client := branded.NewClient(f.experimental)
	cache := branded.NewNRCCache(cfg.DataDir, client)

	manifest, err := cache.FetchOrFallback(ctx, f.branch, noriskToken)
	if err != nil {
		return err
	}

	modCacheDir := filepath.Join(cfg.DataDir, "mod_cache")
	opts.Materialiser = mods.NewMaterialiser(dl, gameDir, modCacheDir)
	opts.ManifestMods = manifest.Mods
	opts.Repositories = manifest.Repositories

	if f.keepAssets {
		return nil
	}

	assetsClient := branded.NewAssetsClient()
	idx, err := assetsClient.OverlayIndex(ctx, f.branch, noriskToken)
	if err != nil {
		// The branded CDN being unreachable shouldn't fail the whole
		// launch; proceed with whatever overlay content is already on
		// disk.
		return nil
	}
	opts.Overlay = assets.NewOverlay(dl, gameDir, assetsClient.ObjectURL, bus)
	opts.OverlayIndex = idx
	return nil
}
