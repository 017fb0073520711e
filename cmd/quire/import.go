package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aretw0/quire/pkg/markdown"
)

var importFolder string

var importCmd = &cobra.Command{
	Use:   "import [file.md...]",
	Short: "Import markdown files as notes",
	Long: `Import parses each markdown file into blocks and saves it as a new note.
A leading level 1 heading becomes the title; otherwise the file name is used.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := openService(ctx)
		if err != nil {
			return err
		}

		for _, path := range args {
			src, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			n := markdown.ImportNote(uuid.NewString(), src)
			if n.Title == "" {
				n.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				n.Content.Title = n.Title
			}
			if importFolder != "" {
				folder := strings.Trim(importFolder, "/")
				n.Folder = &folder
			}
			if err := svc.SaveNote(ctx, n); err != nil {
				return fmt.Errorf("import %s: %w", path, err)
			}
			logger.Debug("imported", "path", path, "id", n.ID, "blocks", len(n.Content.Blocks))
			fmt.Fprintln(cmd.OutOrStdout(), n.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importFolder, "folder", "", "Folder to file the notes under")
}
