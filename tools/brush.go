package tools

import (
	"github.com/anlyetim/TeamPad-sub001/core"

	"github.com/oklog/ulid/v2"
)

// minPointDistance is the decimation threshold in canvas units at zoom 1.
// Dividing by the current zoom gives denser sampling when zoomed in.
const minPointDistance = 2.0

// BrushTool accumulates pointer samples while the button is down and commits
// a single immutable path object on release. Nothing touches the store until
// the commit.
type BrushTool struct {
	BaseTool

	Style core.StrokeStyle

	drawing bool
	points  []core.Point
}

func NewBrushTool() *BrushTool {
	return &BrushTool{
		Style: core.StrokeStyle{Color: "#1a1a1a", Width: 2, Opacity: 1},
	}
}

func (t *BrushTool) Name() ToolName { return ToolBrush }

func (t *BrushTool) OnMouseDown(ctx *Context, ev PointerEvent) {
	t.drawing = true
	t.points = []core.Point{ev.Point}
}

func (t *BrushTool) OnMouseMove(ctx *Context, ev PointerEvent) {
	if !t.drawing {
		return
	}
	threshold := minPointDistance / ctx.EffectiveZoom()
	last := t.points[len(t.points)-1]
	if distance(last, ev.Point) >= threshold {
		t.points = append(t.points, ev.Point)
	}
}

func (t *BrushTool) OnMouseUp(ctx *Context, ev PointerEvent) {
	if !t.drawing {
		return
	}
	if last := t.points[len(t.points)-1]; last != ev.Point {
		t.points = append(t.points, ev.Point)
	}
	t.commit(ctx)
}

// OnDeactivate commits a stroke with enough points to be visible and
// discards the rest, so a mid-stroke tool switch never leaves a dangling
// gesture.
func (t *BrushTool) OnDeactivate(ctx *Context) {
	t.commit(ctx)
}

func (t *BrushTool) commit(ctx *Context) {
	defer func() {
		t.drawing = false
		t.points = nil
	}()
	if !t.drawing || len(t.points) < 2 {
		return
	}
	ctx.Store.AddObject(&core.CanvasObject{
		ID:        ulid.Make().String(),
		Type:      core.ObjectPath,
		LayerID:   ctx.ActiveLayerID,
		Transform: core.IdentityTransform(),
		Data: &core.PathData{
			Points: append([]core.Point(nil), t.points...),
			Stroke: t.Style,
		},
	})
}

func (t *BrushTool) Cursor(*Context, core.Point) CursorShape {
	return CursorCrosshair
}

func (t *BrushTool) RenderOverlay(ctx *Context, surface OverlaySurface) {
	if t.drawing && len(t.points) > 1 {
		surface.StrokePolyline(t.points)
	}
}
