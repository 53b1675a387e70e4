package tools

import (
	"github.com/anlyetim/TeamPad-sub001/core"

	"github.com/oklog/ulid/v2"
)

const (
	defaultShapeSize = 100.0
	// Drags shorter than this (in canvas units at zoom 1) count as clicks.
	clickSlop = 4.0
)

// ShapeTool places geometric primitives: click for a default-sized shape,
// drag for an exact area. The new object is selected immediately.
type ShapeTool struct {
	BaseTool

	Kind   core.ShapeKind
	Fill   string
	Stroke core.StrokeStyle

	placing bool
	start   core.Point
	current core.Point
}

func NewShapeTool() *ShapeTool {
	return &ShapeTool{
		Kind:   core.ShapeRectangle,
		Fill:   "#d9e8ff",
		Stroke: core.StrokeStyle{Color: "#1a1a1a", Width: 1, Opacity: 1},
	}
}

func (t *ShapeTool) Name() ToolName { return ToolShape }

func (t *ShapeTool) OnMouseDown(ctx *Context, ev PointerEvent) {
	t.placing = true
	t.start = ev.Point
	t.current = ev.Point
}

func (t *ShapeTool) OnMouseMove(ctx *Context, ev PointerEvent) {
	if t.placing {
		t.current = ev.Point
	}
}

func (t *ShapeTool) OnMouseUp(ctx *Context, ev PointerEvent) {
	if !t.placing {
		return
	}
	t.placing = false

	rect := rectBetween(t.start, ev.Point)
	slop := clickSlop / ctx.EffectiveZoom()
	if rect.W < slop && rect.H < slop {
		// Click: default size centered on the click point.
		rect = Rect{
			X: ev.Point.X - defaultShapeSize/2,
			Y: ev.Point.Y - defaultShapeSize/2,
			W: defaultShapeSize,
			H: defaultShapeSize,
		}
	}

	id := ulid.Make().String()
	transform := core.IdentityTransform()
	transform.X = rect.X
	transform.Y = rect.Y
	ctx.Store.AddObject(&core.CanvasObject{
		ID:        id,
		Type:      core.ObjectShape,
		LayerID:   ctx.ActiveLayerID,
		Transform: transform,
		Data: &core.ShapeData{
			Kind:   t.Kind,
			Width:  rect.W,
			Height: rect.H,
			Fill:   t.Fill,
			Stroke: t.Stroke,
		},
	})
	ctx.setSelection([]string{id})
}

// OnDeactivate drops an unfinished placement; nothing reached the store yet.
func (t *ShapeTool) OnDeactivate(*Context) {
	t.placing = false
}

func (t *ShapeTool) Cursor(*Context, core.Point) CursorShape {
	return CursorCrosshair
}

func (t *ShapeTool) RenderOverlay(ctx *Context, surface OverlaySurface) {
	if t.placing {
		surface.StrokeRect(rectBetween(t.start, t.current))
	}
}
