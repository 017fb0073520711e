package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/aretw0/quire/pkg/markdown"
)

var (
	pasteBlock    string
	pasteHTML     bool
	pasteMarkdown bool
)

var pasteCmd = &cobra.Command{
	Use:   "paste [id]",
	Short: "Paste the clipboard into a note",
	Long: `Paste reads the system clipboard and inserts it into a note, at the end
of --block or of the last block. With --html the clipboard is read as an HTML
fragment; otherwise it is parsed as markdown and inserted as whole blocks.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := clipboard.ReadAll()
		if err != nil {
			return fmt.Errorf("read clipboard: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			return errors.New("clipboard is empty")
		}

		ws, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithCancel(cmd.Context())
		if err := ws.Start(ctx); err != nil {
			cancel()
			return err
		}

		id := args[0]
		err = ws.Do(ctx, func() error {
			s, err := ws.Open(ctx, id)
			if err != nil {
				return err
			}
			target := pasteBlock
			if target == "" {
				blocks := ws.Store().Blocks(id)
				if len(blocks) == 0 {
					return fmt.Errorf("note %s has no blocks", id)
				}
				target = blocks[len(blocks)-1].ID
			}
			if !s.Bridge.PlaceCaretAtEnd(target) {
				return fmt.Errorf("cannot place the caret in block %s", target)
			}

			var ok bool
			if pasteHTML && !pasteMarkdown {
				ok = s.Editor.Paste(text)
			} else {
				ok = s.Editor.PasteBlocks(markdown.Import([]byte(text)).Blocks)
			}
			if !ok {
				return errors.New("nothing was pasted")
			}
			return nil
		})

		// Stopping the workspace flushes the pending save.
		cancel()
		ws.Wait()
		if err != nil {
			return err
		}
		if err := ws.Syncer().Err(); err != nil {
			return fmt.Errorf("save %s: %w", id, err)
		}
		logger.Debug("pasted", "id", id, "bytes", len(text))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pasteCmd)
	pasteCmd.Flags().StringVar(&pasteBlock, "block", "", "Block to paste after (default: last block)")
	pasteCmd.Flags().BoolVar(&pasteHTML, "html", false, "Treat the clipboard as an HTML fragment")
	pasteCmd.Flags().BoolVar(&pasteMarkdown, "markdown", false, "Treat the clipboard as markdown (default)")
	pasteCmd.MarkFlagsMutuallyExclusive("html", "markdown")
}
