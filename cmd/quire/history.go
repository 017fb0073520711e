package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/quire/pkg/adapters/fs"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "Show the saved versions of a note",
	Long:  `History lists the git commits that touched a note. It needs a versioned fs vault.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		repo, ok := svc.Repository().(*fs.Repository)
		if !ok {
			return errors.New("history is only available for the fs adapter")
		}
		commits, err := repo.History(cmd.Context(), args[0], historyLimit)
		if err != nil {
			return err
		}
		for _, c := range commits {
			fmt.Fprintf(cmd.OutOrStdout(), "%.8s  %s  %s\n", c.Hash, c.Time.Local().Format(time.DateTime), c.Subject)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of versions (0 for all)")
}
