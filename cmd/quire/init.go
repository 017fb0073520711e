package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/quire"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a quire vault",
	Long: `Initialize creates the vault directory (or database) named by --vault.
With --versioning an fs vault also gets a git repository.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := append(repoOptions(), quire.WithAutoInit(true))
		repo, err := quire.Init(cmd.Context(), cfg.Vault, opts...)
		if err != nil {
			return fmt.Errorf("initialize %s: %w", cfg.Vault, err)
		}
		defer quire.Close(repo)
		fmt.Fprintln(cmd.OutOrStdout(), "Initialized empty quire vault in", cfg.Vault)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
