package tools

import (
	"github.com/anlyetim/TeamPad-sub001/core"
	"github.com/anlyetim/TeamPad-sub001/document"
)

// HandleKind names a transform handle on the selection frame. Handles take
// priority over object bodies at equal screen position.
type HandleKind string

const (
	HandleNone    HandleKind = ""
	HandleScaleNW HandleKind = "scale-nw"
	HandleScaleNE HandleKind = "scale-ne"
	HandleScaleSW HandleKind = "scale-sw"
	HandleScaleSE HandleKind = "scale-se"
	HandleRotate  HandleKind = "rotate"
)

// ModalRequest is the handoff contract to the external modal editor: the
// tool passes the object id and anchor out, edited content comes back
// through the store's update path.
type ModalRequest struct {
	Kind     ToolName
	ObjectID string
	Anchor   core.Point
}

// Context is the single mutable environment the registry shares with the
// active tool. The rendering collaborator populates the viewport fields and
// callbacks; the registry refreshes the whole thing via SetContext whenever
// dependent state changes.
type Context struct {
	Store *document.Store

	Zoom          float64
	PanX, PanY    float64
	ActiveLayerID string

	// HitTest returns the topmost object id at a canvas point, or "".
	HitTest func(p core.Point) string
	// HitTestHandle returns the transform handle at a canvas point, if any.
	HitTestHandle func(p core.Point) HandleKind
	// ObjectsInRect returns the ids intersecting a marquee rect.
	ObjectsInRect func(r Rect) []string

	SelectedIDs  func() []string
	SetSelection func(ids []string)

	OpenModal  func(req ModalRequest)
	CloseModal func()

	// RequestToolSwitch is wired by the registry; tools use it to hand
	// control back (e.g. to select) after placing an object.
	RequestToolSwitch func(name ToolName)
}

// EffectiveZoom guards against an unset viewport.
func (c *Context) EffectiveZoom() float64 {
	if c.Zoom <= 0 {
		return 1
	}
	return c.Zoom
}

// ScreenToCanvas converts a screen-space point into canvas coordinates.
func (c *Context) ScreenToCanvas(p core.Point) core.Point {
	z := c.EffectiveZoom()
	return core.Point{X: (p.X - c.PanX) / z, Y: (p.Y - c.PanY) / z}
}

// CanvasToScreen converts a canvas-space point into screen coordinates.
func (c *Context) CanvasToScreen(p core.Point) core.Point {
	z := c.EffectiveZoom()
	return core.Point{X: p.X*z + c.PanX, Y: p.Y*z + c.PanY}
}

func (c *Context) selection() []string {
	if c.SelectedIDs == nil {
		return nil
	}
	return c.SelectedIDs()
}

func (c *Context) setSelection(ids []string) {
	if c.SetSelection != nil {
		c.SetSelection(ids)
	}
}

func (c *Context) switchTool(name ToolName) {
	if c.RequestToolSwitch != nil {
		c.RequestToolSwitch(name)
	}
}

func (c *Context) openModal(req ModalRequest) {
	if c.OpenModal != nil {
		c.OpenModal(req)
	}
}

func documentTransformPatch(t *core.Transform) document.ObjectPatch {
	return document.ObjectPatch{Transform: t}
}
