package main

import (
	"fmt"

	"github.com/riftlabs/corelaunch/internal/auth"
	"github.com/spf13/cobra"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List accounts known to this install",
		RunE:  runAccounts,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <uuid>",
		Short: "Forget a stored account",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountsRemove,
	})
	return cmd
}

func runAccounts(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := auth.NewStore(cfg.DataDir)
	if err := store.Load(); err != nil {
		return fmt.Errorf("loading account store: %w", err)
	}

	if len(store.Users) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no accounts registered; run \"corelaunchd login\"")
		return nil
	}
	for id, creds := range store.Users {
		marker := " "
		if id == store.DefaultUser {
			marker = "*"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", marker, creds.Username, id)
	}
	return nil
}

func runAccountsRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := auth.NewStore(cfg.DataDir)
	if err := store.Load(); err != nil {
		return fmt.Errorf("loading account store: %w", err)
	}

	store.Remove(args[0])
	if err := store.Save(); err != nil {
		return fmt.Errorf("saving account store: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
	return nil
}
