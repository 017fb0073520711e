package surface

// Point is a location in viewport coordinates.
type Point struct {
	X, Y float64
}

// Rect is a box in viewport coordinates.
type Rect struct {
	X, Y, W, H float64
}

// Bottom is the lower edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// CenterY is the vertical midpoint.
func (r Rect) CenterY() float64 { return r.Y + r.H/2 }

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Bottom()
}

// Surface is the editable region: block nodes under one root, a native
// selection, a title field and layout geometry.
type Surface interface {
	Root() *Node
	// SetBlocks makes nodes the block children of the root, in order.
	SetBlocks(nodes []*Node)
	// BlockNode returns the rendered node of a block, or nil.
	BlockNode(id string) *Node

	Selection() (Selection, bool)
	SetSelection(sel Selection)
	ClearSelection()

	// Focus gives keyboard focus to the block region.
	Focus()
	Focused() bool
	// FocusTitle moves focus to the title field with the caret at offset.
	FocusTitle(offset int)
	TitleFocused() bool

	Rect(n *Node) Rect
	CaretRect() (Rect, bool)
	LineHeight() float64
}

// Decorator shows transient drag feedback.
type Decorator interface {
	AddClass(id, class string)
	RemoveClass(id, class string)
	HasClass(id, class string) bool
	ShowProxy(ids []string, at Point)
	MoveProxy(at Point)
	HideProxy()
}

// Scroller scrolls the region that contains the blocks.
type Scroller interface {
	ScrollBy(dy float64)
	Viewport() Rect
}
