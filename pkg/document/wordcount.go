package document

import (
	"strings"

	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/inline"
)

// WordCount counts the words of a note's blocks: inline tokens are
// stripped and the remaining text is split on whitespace.
func WordCount(n core.Note) int {
	total := 0
	for _, b := range n.Content.Blocks {
		if !b.Type.HoldsText() || b.Text == "" {
			continue
		}
		total += len(strings.Fields(inline.PlainText(b.Text)))
	}
	return total
}

// WordCount counts the words of an open note; 0 when it is not open.
func (s *Store) WordCount(noteID string) int {
	n, ok := s.Note(noteID)
	if !ok {
		return 0
	}
	return WordCount(n)
}
