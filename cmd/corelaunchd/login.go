package main

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/riftlabs/corelaunch/internal/auth"
	"github.com/riftlabs/corelaunch/internal/config"
	"github.com/spf13/cobra"
)

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate a Microsoft account through the Xbox/Sisu chain",
		RunE:  runLogin,
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := auth.NewStore(cfg.DataDir)
	if err := store.Load(); err != nil {
		return fmt.Errorf("loading account store: %w", err)
	}

	flow, err := store.LoginBegin(ctx)
	if err != nil {
		return fmt.Errorf("starting login: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Open this URL in a browser and sign in:")
	fmt.Fprintln(cmd.OutOrStdout(), flow.RedirectURI)
	fmt.Fprintln(cmd.OutOrStdout(), "Paste the \"code\" query parameter from the redirect it lands on:")

	code, err := readLine(cmd)
	if err != nil {
		return fmt.Errorf("reading authorization code: %w", err)
	}

	creds, err := store.LoginFinish(ctx, flow, code)
	if err != nil {
		return fmt.Errorf("completing login: %w", err)
	}

	if err := store.SetActive(creds.ID); err != nil {
		return fmt.Errorf("selecting active account: %w", err)
	}
	if err := store.Save(); err != nil {
		return fmt.Errorf("saving account store: %w", err)
	}

	logger.Info("login complete", "account", creds.Username, "uuid", creds.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", creds.Username, creds.ID)
	return nil
}

func readLine(cmd *cobra.Command) (string, error) {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("no input provided")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
		cfg.InstancesDir = filepath.Join(dataDir, "instances")
		cfg.AssetsDir = filepath.Join(dataDir, "assets")
		cfg.LibrariesDir = filepath.Join(dataDir, "libraries")
		cfg.RuntimesDir = filepath.Join(dataDir, "runtimes")
		cfg.GameDir = filepath.Join(dataDir, "gameDir")
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("preparing data directories: %w", err)
	}
	return cfg, nil
}
