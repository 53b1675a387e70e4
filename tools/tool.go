package tools

import "github.com/anlyetim/TeamPad-sub001/core"

// ToolName identifies one editing mode. The set doubles as the state space of
// the dispatch state machine: exactly one tool is active at any time.
type ToolName string

const (
	ToolSelect ToolName = "select"
	ToolBrush  ToolName = "brush"
	ToolEraser ToolName = "eraser"
	ToolShape  ToolName = "shape"
	ToolText   ToolName = "text"
	ToolNote   ToolName = "note"
	ToolImage  ToolName = "image"
)

type (
	// Modifiers carries the modifier-key state of an input event.
	Modifiers struct {
		Shift bool
		Alt   bool
		Ctrl  bool
	}

	// PointerEvent is one pointer sample in canvas coordinates.
	PointerEvent struct {
		Point     core.Point
		Modifiers Modifiers
	}

	// KeyEvent is one keyboard event. Key uses the DOM key naming
	// convention ("Escape", "Delete", "z", ...).
	KeyEvent struct {
		Key       string
		Modifiers Modifiers
	}

	// Rect is an axis-aligned rectangle in canvas coordinates.
	Rect struct {
		X, Y, W, H float64
	}
)

// Normalize returns the rect with non-negative width and height.
func (r Rect) Normalize() Rect {
	if r.W < 0 {
		r.X += r.W
		r.W = -r.W
	}
	if r.H < 0 {
		r.Y += r.H
		r.H = -r.H
	}
	return r
}

// CursorShape is the pointer cursor a tool wants shown.
type CursorShape string

const (
	CursorDefault   CursorShape = "default"
	CursorCrosshair CursorShape = "crosshair"
	CursorMove      CursorShape = "move"
	CursorText      CursorShape = "text"
	CursorGrab      CursorShape = "grab"
)

// OverlaySurface is the minimal drawing contract the rendering collaborator
// hands to RenderOverlay for transient tool feedback (marquees, in-progress
// strokes). Nothing drawn here touches the document.
type OverlaySurface interface {
	StrokeRect(r Rect)
	StrokePolyline(points []core.Point)
}

// Tool is a polymorphic input handler. While active it owns exclusive
// interpretation of the pointer/keyboard stream; OnDeactivate must leave no
// dangling in-progress gesture (commit or discard).
type Tool interface {
	Name() ToolName

	OnActivate(ctx *Context)
	OnDeactivate(ctx *Context)

	OnMouseDown(ctx *Context, ev PointerEvent)
	OnMouseMove(ctx *Context, ev PointerEvent)
	OnMouseUp(ctx *Context, ev PointerEvent)
	OnDoubleClick(ctx *Context, ev PointerEvent)

	OnKeyDown(ctx *Context, ev KeyEvent)
	OnKeyUp(ctx *Context, ev KeyEvent)

	Cursor(ctx *Context, p core.Point) CursorShape
	RenderOverlay(ctx *Context, surface OverlaySurface)
}

// BaseTool provides no-op defaults so tools only implement the events they
// care about.
type BaseTool struct{}

func (BaseTool) OnActivate(*Context)                  {}
func (BaseTool) OnDeactivate(*Context)                {}
func (BaseTool) OnMouseDown(*Context, PointerEvent)   {}
func (BaseTool) OnMouseMove(*Context, PointerEvent)   {}
func (BaseTool) OnMouseUp(*Context, PointerEvent)     {}
func (BaseTool) OnDoubleClick(*Context, PointerEvent) {}
func (BaseTool) OnKeyDown(*Context, KeyEvent)         {}
func (BaseTool) OnKeyUp(*Context, KeyEvent)           {}
func (BaseTool) Cursor(*Context, core.Point) CursorShape {
	return CursorDefault
}
func (BaseTool) RenderOverlay(*Context, OverlaySurface) {}
