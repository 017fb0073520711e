package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:     "rm [id...]",
	Aliases: []string{"delete"},
	Short:   "Delete notes",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := svc.DeleteNote(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			logger.Info("deleted", "id", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
