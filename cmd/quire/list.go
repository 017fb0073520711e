package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/aretw0/quire/pkg/adapters/fs"
	"github.com/aretw0/quire/pkg/core"
)

var (
	listJSON   bool
	listFolder string
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List notes",
	Long:    `List prints every note, oldest first, with its folder and block count.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		sums, err := summaries(cmd.Context(), svc)
		if err != nil {
			return err
		}
		if listFolder != "" {
			kept := sums[:0]
			for _, s := range sums {
				if s.Folder != nil && *s.Folder == listFolder {
					kept = append(kept, s)
				}
			}
			sums = kept
		}

		if listJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(sums)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tFOLDER\tBLOCKS\tCREATED")
		for _, s := range sums {
			title := s.Title
			if title == "" {
				title = "Untitled"
			}
			folder := "-"
			if s.Folder != nil {
				folder = *s.Folder
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				s.ID,
				runewidth.Truncate(title, 40, "…"),
				folder,
				s.Blocks,
				s.Created.Local().Format(time.DateTime),
			)
		}
		return w.Flush()
	},
}

// summaries uses the fs index when available and falls back to full notes.
func summaries(ctx context.Context, svc *core.Service) ([]fs.Summary, error) {
	if repo, ok := svc.Repository().(*fs.Repository); ok {
		return repo.Summaries(ctx)
	}
	notes, err := svc.ListNotes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]fs.Summary, 0, len(notes))
	for _, n := range notes {
		out = append(out, fs.Summary{
			ID:      n.ID,
			Title:   n.Title,
			Folder:  n.Folder,
			Created: n.Created,
			Blocks:  len(n.Content.Blocks),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out, nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVar(&listFolder, "folder", "", "Only list notes filed under this folder")
}
