package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/quire/pkg/document"
)

var wordcountCmd = &cobra.Command{
	Use:   "wordcount [id]",
	Short: "Count the words of a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		n, err := svc.GetNote(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), document.WordCount(n))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(wordcountCmd)
}
