package surface

import (
	"strconv"

	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/inline"
)

// BlockTag is the element a block type renders as.
func BlockTag(b core.Block) string {
	switch b.Type {
	case core.BlockHeading:
		return "h" + strconv.Itoa(b.Level)
	case core.BlockBullet, core.BlockNumbered, core.BlockChecklist:
		return "li"
	case core.BlockDivider:
		return "hr"
	case core.BlockImage:
		return "img"
	}
	return "p"
}

// NewBlock renders one block. content is the encoded inline tree of a text
// block; src is the resolved image source of an image block.
func NewBlock(b core.Block, content *inline.Node, src string) *Node {
	n := &Node{
		Kind:    KindBlock,
		Tag:     BlockTag(b),
		BlockID: b.ID,
		Attrs:   map[string]string{"data-type": string(b.Type)},
	}
	switch b.Type {
	case core.BlockChecklist:
		n.Attrs["data-checked"] = strconv.FormatBool(b.IsChecked())
	case core.BlockImage:
		n.Attrs["src"] = src
		n.Attrs["alt"] = b.Alt
		return n
	case core.BlockDivider:
		return n
	}
	if content != nil {
		for _, c := range content.Children {
			n.Append(FromInline(c))
		}
	}
	return n
}

// FromInline converts a span tree node into surface nodes.
func FromInline(in *inline.Node) *Node {
	if in.IsText() {
		return NewText(in.Text)
	}
	el := &Node{Kind: KindElement, Tag: in.Tag}
	if len(in.Attrs) > 0 {
		el.Attrs = make(map[string]string, len(in.Attrs))
		for k, v := range in.Attrs {
			el.Attrs[k] = v
		}
	}
	for _, c := range in.Children {
		el.Append(FromInline(c))
	}
	return el
}

// ToInline reads a rendered block (possibly edited natively) back into an
// unsanitized span tree.
func ToInline(block *Node) *inline.Node {
	root := inline.Fragment()
	if block == nil {
		return root
	}
	for _, c := range block.Children {
		if in := toInline(c); in != nil {
			root.Children = append(root.Children, in)
		}
	}
	return root
}

func toInline(n *Node) *inline.Node {
	switch n.Kind {
	case KindText:
		if n.Text == "" {
			return nil
		}
		return inline.Text(n.Text)
	case KindElement, KindBlock:
		el := &inline.Node{Tag: n.Tag}
		if len(n.Attrs) > 0 {
			el.Attrs = make(map[string]string, len(n.Attrs))
			for k, v := range n.Attrs {
				el.Attrs[k] = v
			}
		}
		for _, c := range n.Children {
			if in := toInline(c); in != nil {
				el.Children = append(el.Children, in)
			}
		}
		return el
	}
	return nil
}
