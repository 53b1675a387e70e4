package tools

import (
	"github.com/anlyetim/TeamPad-sub001/core"

	"github.com/oklog/ulid/v2"
)

// EraserMode picks one of the eraser's two mutually exclusive behaviors.
type EraserMode int

const (
	// EraseObjects deletes whole objects whose bounds the pointer hits.
	EraseObjects EraserMode = iota
	// ErasePartial appends an erase path that the renderer composites as a
	// punch-out; the original strokes are never mutated.
	ErasePartial
)

// EraserTool removes content. In object mode it deletes on hit while the
// pointer is down; in partial mode it behaves like the brush but commits an
// erase path instead of ink.
type EraserTool struct {
	BaseTool

	Mode  EraserMode
	Width float64

	erasing bool
	points  []core.Point
}

func NewEraserTool() *EraserTool {
	return &EraserTool{Width: 16}
}

func (t *EraserTool) Name() ToolName { return ToolEraser }

func (t *EraserTool) OnMouseDown(ctx *Context, ev PointerEvent) {
	t.erasing = true
	switch t.Mode {
	case EraseObjects:
		t.eraseAt(ctx, ev.Point)
	case ErasePartial:
		t.points = []core.Point{ev.Point}
	}
}

func (t *EraserTool) OnMouseMove(ctx *Context, ev PointerEvent) {
	if !t.erasing {
		return
	}
	switch t.Mode {
	case EraseObjects:
		t.eraseAt(ctx, ev.Point)
	case ErasePartial:
		threshold := minPointDistance / ctx.EffectiveZoom()
		if distance(t.points[len(t.points)-1], ev.Point) >= threshold {
			t.points = append(t.points, ev.Point)
		}
	}
}

func (t *EraserTool) OnMouseUp(ctx *Context, ev PointerEvent) {
	if !t.erasing {
		return
	}
	if t.Mode == ErasePartial && t.points[len(t.points)-1] != ev.Point {
		t.points = append(t.points, ev.Point)
	}
	t.commit(ctx)
}

func (t *EraserTool) OnDeactivate(ctx *Context) {
	t.commit(ctx)
}

func (t *EraserTool) eraseAt(ctx *Context, p core.Point) {
	if ctx.HitTest == nil {
		return
	}
	if id := ctx.HitTest(p); id != "" {
		ctx.Store.DeleteObject(id)
	}
}

func (t *EraserTool) commit(ctx *Context) {
	defer func() {
		t.erasing = false
		t.points = nil
	}()
	if !t.erasing || t.Mode != ErasePartial || len(t.points) < 2 {
		return
	}
	ctx.Store.AddObject(&core.CanvasObject{
		ID:        ulid.Make().String(),
		Type:      core.ObjectPath,
		LayerID:   ctx.ActiveLayerID,
		Transform: core.IdentityTransform(),
		Data: &core.PathData{
			Points: append([]core.Point(nil), t.points...),
			Stroke: core.StrokeStyle{Width: t.Width, Opacity: 1},
			Erase:  true,
		},
	})
}

func (t *EraserTool) Cursor(*Context, core.Point) CursorShape {
	return CursorCrosshair
}

func (t *EraserTool) RenderOverlay(ctx *Context, surface OverlaySurface) {
	if t.erasing && t.Mode == ErasePartial && len(t.points) > 1 {
		surface.StrokePolyline(t.points)
	}
}
