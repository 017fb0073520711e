package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/quire/pkg/markdown"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export [id]",
	Short: "Export a note as markdown",
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
		out := markdown.Export(n)
		if exportOut != "" {
			return os.WriteFile(exportOut, out, 0644)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Write to a file instead of stdout")
}
