package sidebar

import (
	"context"
	"io"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/aretw0/quire/pkg/clock"
	"github.com/aretw0/quire/pkg/gesture"
	"github.com/aretw0/quire/pkg/surface"
)

const (
	// AutoExpandDelay is how long a collapsed folder's middle third must be
	// hovered before it opens.
	AutoExpandDelay = 500 * time.Millisecond
	// DefaultRowHeight is the height of one sidebar row in px.
	DefaultRowHeight = 28.0
)

// Decoration classes.
const (
	DraggingClass  = "sidebar-dragging"
	DropAboveClass = "drop-above"
	DropIntoClass  = "drop-into"
	DropBelowClass = "drop-below"
)

// Zone is the part of a row the pointer is over.
type Zone int

const (
	ZoneNone Zone = iota
	ZoneAbove
	ZoneInto
	ZoneBelow
)

func (z Zone) String() string {
	switch z {
	case ZoneAbove:
		return "above"
	case ZoneInto:
		return "into"
	case ZoneBelow:
		return "below"
	}
	return "none"
}

func (z Zone) class() string {
	switch z {
	case ZoneAbove:
		return DropAboveClass
	case ZoneInto:
		return DropIntoClass
	case ZoneBelow:
		return DropBelowClass
	}
	return ""
}

// Target is a drop position relative to a row.
type Target struct {
	Item Item
	Zone Zone
}

// Session is the state of one sidebar drag.
type Session struct {
	Item    Item
	Pointer surface.Point
	Target  Target
	Valid   bool

	// OriginalFolder is the folder a dragged note started in; Tentative is
	// set while the note sits in a hovered folder before the drop.
	OriginalFolder string
	Tentative      bool

	Expanding string
}

// Engine drags notes and folders around the tree.
type Engine struct {
	tree   *Tree
	sched  clock.Scheduler
	deco   surface.Decorator
	logger *slog.Logger

	tracker     *gesture.Tracker
	scroll      *gesture.AutoScroller
	view        *viewport
	rowHeight   float64
	expandDelay time.Duration
	settle      time.Duration

	rows    []Row
	session *Session
	expand  clock.Timer
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	logger      *slog.Logger
	tracker     []gesture.Option
	rowHeight   float64
	viewHeight  float64
	expandDelay time.Duration
	settle      time.Duration
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *engineConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRowHeight sets the row height used for hit testing.
func WithRowHeight(px float64) Option {
	return func(c *engineConfig) {
		if px > 0 {
			c.rowHeight = px
		}
	}
}

// WithViewportHeight makes the rows scroll inside a window of the given
// height. Pointer positions are then relative to the window's top, and a
// drag near either edge scrolls the rows.
func WithViewportHeight(px float64) Option {
	return func(c *engineConfig) {
		if px > 0 {
			c.viewHeight = px
		}
	}
}

// WithHoldDelay overrides gesture.HoldDelay.
func WithHoldDelay(d time.Duration) Option {
	return func(c *engineConfig) { c.tracker = append(c.tracker, gesture.WithHoldDelay(d)) }
}

// WithAutoExpandDelay overrides AutoExpandDelay.
func WithAutoExpandDelay(d time.Duration) Option {
	return func(c *engineConfig) {
		if d > 0 {
			c.expandDelay = d
		}
	}
}

// WithSettleDuration overrides gesture.SettleDuration.
func WithSettleDuration(d time.Duration) Option {
	return func(c *engineConfig) {
		if d > 0 {
			c.settle = d
		}
	}
}

// New creates a sidebar drag engine. Rows are laid out top to bottom at a
// fixed height starting at y = 0.
func New(tree *Tree, sched clock.Scheduler, deco surface.Decorator, opts ...Option) *Engine {
	cfg := engineConfig{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		rowHeight:   DefaultRowHeight,
		expandDelay: AutoExpandDelay,
		settle:      gesture.SettleDuration,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	e := &Engine{
		tree:        tree,
		sched:       sched,
		deco:        deco,
		logger:      cfg.logger,
		tracker:     gesture.NewTracker(sched, cfg.tracker...),
		rowHeight:   cfg.rowHeight,
		expandDelay: cfg.expandDelay,
		settle:      cfg.settle,
	}
	var scroller surface.Scroller
	if cfg.viewHeight > 0 {
		e.view = &viewport{engine: e, height: cfg.viewHeight}
		scroller = e.view
	}
	e.scroll = gesture.NewAutoScroller(sched, scroller, e.retarget)
	return e
}

// viewport is the scrolling window over the rows.
type viewport struct {
	engine *Engine
	height float64
	top    float64
}

func (v *viewport) Viewport() surface.Rect {
	return surface.Rect{W: 1, H: v.height}
}

func (v *viewport) ScrollBy(dy float64) {
	limit := math.Max(float64(len(v.engine.Rows()))*v.engine.rowHeight-v.height, 0)
	v.top = math.Min(math.Max(v.top+dy, 0), limit)
}

// ScrollTop is how far the rows are scrolled; always 0 without a viewport.
func (e *Engine) ScrollTop() float64 {
	if e.view == nil {
		return 0
	}
	return e.view.top
}

// Phase is the phase of the current drag.
func (e *Engine) Phase() gesture.Phase { return e.tracker.Phase() }

// Session returns a copy of the current drag, if any.
func (e *Engine) Session() (Session, bool) {
	if e.session == nil {
		return Session{}, false
	}
	return *e.session, true
}

// Idle reports whether no drag is in progress and no timer is pending.
func (e *Engine) Idle() bool {
	return e.session == nil && e.expand == nil && !e.tracker.Pending() && !e.scroll.Running()
}

// Rows is the layout hit testing runs against: frozen while dragging so the
// rows do not jump under the pointer, live otherwise.
func (e *Engine) Rows() []Row {
	if e.rows != nil {
		return slices.Clone(e.rows)
	}
	return e.tree.Rows()
}

// RowRect is the box of the row showing item.
func (e *Engine) RowRect(item Item) (surface.Rect, bool) {
	for i, r := range e.Rows() {
		if r.Item == item {
			return surface.Rect{Y: float64(i)*e.rowHeight - e.ScrollTop(), W: 1, H: e.rowHeight}, true
		}
	}
	return surface.Rect{}, false
}

// HitTest maps a pointer position to a row and zone. Folder rows split into
// thirds, note rows into halves.
func (e *Engine) HitTest(at surface.Point) Target {
	rows := e.Rows()
	if at.Y < 0 || len(rows) == 0 {
		return Target{}
	}
	at.Y += e.ScrollTop()
	i := int(math.Floor(at.Y / e.rowHeight))
	if i >= len(rows) {
		return Target{}
	}
	row := rows[i]
	rel := (at.Y - float64(i)*e.rowHeight) / e.rowHeight
	t := Target{Item: row.Item}
	switch {
	case row.Kind == KindNote && rel < 0.5:
		t.Zone = ZoneAbove
	case row.Kind == KindNote:
		t.Zone = ZoneBelow
	case rel < 1.0/3:
		t.Zone = ZoneAbove
	case rel >= 2.0/3:
		t.Zone = ZoneBelow
	default:
		t.Zone = ZoneInto
	}
	return t
}

// Valid reports whether item may be dropped at t. Nothing drops onto
// itself, and a folder never lands inside itself or a descendant.
func (e *Engine) Valid(item Item, t Target) bool {
	if t.Zone == ZoneNone || t.Item == item {
		return false
	}
	if t.Zone == ZoneInto && t.Item.Kind != KindFolder {
		return false
	}
	if item.Kind != KindFolder {
		return true
	}
	if t.Item.Kind == KindFolder && Within(t.Item.ID, item.ID) {
		return false
	}
	if t.Item.Kind == KindNote && Within(e.tree.ParentOf(t.Item), item.ID) {
		return false
	}
	dest := e.destination(t)
	if dest != ParentPath(item.ID) && e.tree.HasFolder(join(dest, BaseName(item.ID))) {
		return false
	}
	return true
}

// destination is the folder an item dropped at t ends up in.
func (e *Engine) destination(t Target) string {
	if t.Zone == ZoneInto {
		return t.Item.ID
	}
	return e.tree.ParentOf(t.Item)
}

// Press starts a press on a row.
func (e *Engine) Press(item Item, at surface.Point) bool {
	if e.session != nil || !e.tree.Contains(item) {
		return false
	}
	e.session = &Session{Item: item, Pointer: at}
	if !e.tracker.Press(at, e.begin) {
		e.session = nil
		return false
	}
	return true
}

func (e *Engine) begin() {
	s := e.session
	e.rows = e.tree.Rows()
	if s.Item.Kind == KindNote {
		s.OriginalFolder = e.tree.ParentOf(s.Item)
	}
	e.deco.AddClass(s.Item.Key(), DraggingClass)
	e.deco.ShowProxy([]string{s.Item.Key()}, s.Pointer)
	e.logger.Debug("sidebar drag started", "item", s.Item.Key())
	e.scroll.Start(s.Pointer)
	e.retarget()
}

// Move reports the pointer position.
func (e *Engine) Move(at surface.Point) {
	s := e.session
	if s == nil {
		return
	}
	s.Pointer = at
	switch e.tracker.Phase() {
	case gesture.Armed:
		if !e.tracker.Move(at) {
			e.session = nil
		}
	case gesture.Dragging:
		e.deco.MoveProxy(at)
		e.scroll.Update(at)
		e.retarget()
	}
}

func (e *Engine) retarget() {
	s := e.session
	if s == nil {
		return
	}
	t := e.HitTest(s.Pointer)
	valid := e.Valid(s.Item, t)
	if !valid {
		t = Target{}
	}
	if t == s.Target {
		return
	}
	e.undecorate(s.Target)
	s.Target, s.Valid = t, valid
	if valid {
		e.deco.AddClass(t.Item.Key(), t.Zone.class())
	}

	into := ""
	if t.Zone == ZoneInto {
		into = t.Item.ID
	}
	e.tentative(into)
	e.scheduleExpand(into)
}

// tentative files a dragged note into the hovered folder, or puts it back
// when the pointer leaves the folder.
func (e *Engine) tentative(folder string) {
	s := e.session
	if s.Item.Kind != KindNote {
		return
	}
	store := e.tree.Store()
	switch {
	case folder != "":
		store.SetFolder(s.Item.ID, &folder)
		s.Tentative = folder != s.OriginalFolder
	case s.Tentative:
		e.restoreFolder()
	}
}

func (e *Engine) restoreFolder() {
	s := e.session
	orig := s.OriginalFolder
	e.tree.Store().SetFolder(s.Item.ID, &orig)
	s.Tentative = false
}

func (e *Engine) scheduleExpand(folder string) {
	s := e.session
	if folder == s.Expanding {
		return
	}
	e.stopExpand()
	if folder == "" || !e.tree.Collapsed(folder) {
		return
	}
	s.Expanding = folder
	e.expand = e.sched.AfterFunc(e.expandDelay, func() {
		e.expand = nil
		if e.session == nil || e.session.Expanding != folder {
			return
		}
		e.session.Expanding = ""
		e.tree.SetCollapsed(folder, false)
		e.rows = e.tree.Rows()
		e.logger.Debug("folder auto-expanded", "path", folder)
	})
}

func (e *Engine) stopExpand() {
	if e.expand != nil {
		e.expand.Stop()
		e.expand = nil
	}
	if e.session != nil {
		e.session.Expanding = ""
	}
}

// Release drops the dragged row on the current target.
func (e *Engine) Release() {
	s := e.session
	if s == nil {
		return
	}
	switch e.tracker.Release() {
	case gesture.Armed, gesture.Idle:
		e.session = nil
		return
	case gesture.Settling:
		return
	}
	e.scroll.Stop()
	e.stopExpand()
	landed := s.Item
	if s.Valid {
		landed = e.drop(s)
	} else if s.Tentative {
		e.restoreFolder()
	}
	e.rows = nil
	if r, ok := e.RowRect(landed); ok {
		e.deco.MoveProxy(surface.Point{X: r.X, Y: r.Y})
	}
	e.tracker.Settle(e.settle, e.finish)
}

// drop applies the move and returns the item as it is now known.
func (e *Engine) drop(s *Session) Item {
	item := s.Item
	dest := e.destination(s.Target)
	from := e.tree.ParentOf(item)
	if item.Kind == KindNote {
		from = s.OriginalFolder
	}

	switch item.Kind {
	case KindNote:
		e.tree.Store().SetFolder(item.ID, &dest)
	case KindFolder:
		if dest != from {
			to, ok := e.tree.MoveFolder(item.ID, dest)
			if !ok {
				return item
			}
			item = FolderItem(to)
		}
	}
	s.Tentative = false

	keys := slices.DeleteFunc(e.tree.Keys(dest), func(k string) bool { return k == item.Key() })
	at := len(keys)
	if s.Target.Zone != ZoneInto {
		at = slices.Index(keys, s.Target.Item.Key())
		if s.Target.Zone == ZoneBelow {
			at++
		}
	}
	keys = slices.Insert(keys, at, item.Key())

	ctx := context.Background()
	if err := e.tree.SetOrder(ctx, dest, keys); err != nil {
		e.logger.Error("sidebar order not saved", "parent", dest, "error", err)
	}
	if from != dest {
		if err := e.tree.SetOrder(ctx, from, e.tree.Keys(from)); err != nil {
			e.logger.Error("sidebar order not saved", "parent", from, "error", err)
		}
	}
	e.logger.Debug("sidebar drop", "item", item.Key(), "parent", dest, "index", at)
	return item
}

func (e *Engine) finish() {
	e.strip()
	e.session = nil
	e.rows = nil
}

// Cancel abandons the drag and puts a tentatively filed note back.
func (e *Engine) Cancel() {
	s := e.session
	if s == nil {
		return
	}
	switch e.tracker.Phase() {
	case gesture.Armed, gesture.Idle:
		e.tracker.Reset()
		e.session = nil
		return
	case gesture.Settling:
		e.tracker.Reset()
		e.finish()
		return
	}
	e.tracker.Reset()
	e.scroll.Stop()
	e.stopExpand()
	if s.Tentative {
		e.restoreFolder()
	}
	e.finish()
	e.logger.Debug("sidebar drag cancelled", "item", s.Item.Key())
}

// Escape cancels the drag.
func (e *Engine) Escape() { e.Cancel() }

// Blur cancels the drag when the window loses focus.
func (e *Engine) Blur() { e.Cancel() }

func (e *Engine) undecorate(t Target) {
	if t.Zone != ZoneNone {
		e.deco.RemoveClass(t.Item.Key(), t.Zone.class())
	}
}

func (e *Engine) strip() {
	s := e.session
	e.undecorate(s.Target)
	e.deco.RemoveClass(s.Item.Key(), DraggingClass)
	e.deco.HideProxy()
}
