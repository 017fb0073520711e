package markdown

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/quire/pkg/core"
)

// Export writes a note as markdown: the title as a level 1 heading, then
// one markdown block per note block. Consecutive list items of the same
// type form one list.
func Export(n core.Note) []byte {
	var b strings.Builder
	if n.Title != "" {
		b.WriteString("# " + n.Title + "\n")
	}

	var prev core.BlockType
	number := 0
	for i, blk := range n.Content.Blocks {
		sameList := i > 0 && blk.Type.IsList() && blk.Type == prev
		if b.Len() > 0 && !sameList {
			b.WriteString("\n")
		}
		if blk.Type == core.BlockNumbered {
			if !sameList {
				number = 0
			}
			number++
		}
		b.WriteString(exportBlock(blk, number))
		b.WriteString("\n")
		prev = blk.Type
	}
	return []byte(b.String())
}

func exportBlock(blk core.Block, number int) string {
	switch blk.Type {
	case core.BlockHeading:
		level := blk.Level
		if level < 1 {
			level = 1
		}
		return strings.Repeat("#", level) + " " + oneLine(blk.Text)
	case core.BlockBullet:
		return "- " + continued(blk.Text, "  ")
	case core.BlockNumbered:
		marker := strconv.Itoa(number) + ". "
		return marker + continued(blk.Text, strings.Repeat(" ", len(marker)))
	case core.BlockChecklist:
		box := "- [ ] "
		if blk.IsChecked() {
			box = "- [x] "
		}
		return box + continued(blk.Text, "  ")
	case core.BlockDivider:
		return "---"
	case core.BlockImage:
		return "![" + blk.Alt + "](" + blk.Src + ")"
	}
	if blk.Text == "" {
		return "<br>"
	}
	return escapeLead(continued(blk.Text, ""))
}

var leadRe = regexp.MustCompile(`^(#{1,6}(\s|$)|[-+*>](\s|$)|\d+[.)](\s|$)|([-*_]\s*){3,}$)`)

// escapeLead keeps a paragraph from being read back as another block.
func escapeLead(s string) string {
	if leadRe.MatchString(s) {
		return "\\" + s
	}
	return s
}

// continued turns line breaks inside a block into hard breaks, indenting
// continuation lines so they stay inside a list item.
func continued(s, indent string) string {
	return strings.ReplaceAll(s, "\n", "\\\n"+indent)
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
