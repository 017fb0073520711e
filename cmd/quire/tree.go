package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/aretw0/quire/pkg/sidebar"
)

var (
	folderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	noteStyle   = lipgloss.NewStyle()
	idStyle     = lipgloss.NewStyle().Faint(true)
)

var treeIDs bool

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the sidebar tree",
	Long:  `Tree prints folders and notes in sidebar order.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		for _, row := range ws.Tree().Rows() {
			fmt.Fprintln(cmd.OutOrStdout(), renderRow(row, cfg.Columns))
		}
		return nil
	},
}

func renderRow(row sidebar.Row, width int) string {
	indent := strings.Repeat("  ", row.Depth)
	if row.Kind == sidebar.KindFolder {
		marker := "▾ "
		if row.Collapsed {
			marker = "▸ "
		}
		return indent + folderStyle.Render(marker+row.Title+"/")
	}

	title := row.Title
	if title == "" {
		title = "Untitled"
	}
	room := width - runewidth.StringWidth(indent) - 2
	if treeIDs {
		room -= len(row.ID) + 1
	}
	if room > 0 {
		title = runewidth.Truncate(title, room, "…")
	}
	line := indent + "• " + noteStyle.Render(title)
	if treeIDs {
		line += " " + idStyle.Render(row.ID)
	}
	return line
}

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().BoolVar(&treeIDs, "ids", false, "Show note ids")
}
