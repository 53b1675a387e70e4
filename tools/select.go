package tools

import (
	"math"

	"github.com/anlyetim/TeamPad-sub001/core"
)

type selectGesture int

const (
	gestureNone selectGesture = iota
	gestureMarquee
	gestureMove
	gestureHandle
)

// SelectTool is the default mode: marquee selection, moving, and
// handle-driven scale/rotate. A transform gesture records every selected
// object's initial transform once at gesture start; every intermediate
// transform is a pure function of that snapshot, the gesture start point,
// the current point, and the modifier keys, so the result is independent of
// frame rate, and a cancel can always restore the exact pre-gesture state.
type SelectTool struct {
	BaseTool

	gesture  selectGesture
	handle   HandleKind
	start    core.Point
	current  core.Point
	additive bool

	initial map[string]core.Transform
}

func NewSelectTool() *SelectTool {
	return &SelectTool{}
}

func (t *SelectTool) Name() ToolName { return ToolSelect }

func (t *SelectTool) OnMouseDown(ctx *Context, ev PointerEvent) {
	t.start = ev.Point
	t.current = ev.Point

	// Handles win over object bodies at the same position.
	if ctx.HitTestHandle != nil {
		if h := ctx.HitTestHandle(ev.Point); h != HandleNone && len(ctx.selection()) > 0 {
			t.gesture = gestureHandle
			t.handle = h
			t.recordInitial(ctx)
			return
		}
	}

	if ctx.HitTest != nil {
		if id := ctx.HitTest(ev.Point); id != "" {
			sel := ctx.selection()
			if !contains(sel, id) {
				if ev.Modifiers.Shift {
					sel = append(append([]string(nil), sel...), id)
				} else {
					sel = []string{id}
				}
				ctx.setSelection(sel)
			}
			t.gesture = gestureMove
			t.recordInitial(ctx)
			return
		}
	}

	t.gesture = gestureMarquee
	t.additive = ev.Modifiers.Shift
}

func (t *SelectTool) OnMouseMove(ctx *Context, ev PointerEvent) {
	if t.gesture == gestureNone {
		return
	}
	t.current = ev.Point
	switch t.gesture {
	case gestureMove, gestureHandle:
		for id, tr := range t.transformsAt(ev.Point, ev.Modifiers) {
			transform := tr
			ctx.Store.UpdateObjectTransient(id, documentTransformPatch(&transform))
		}
	}
}

func (t *SelectTool) OnMouseUp(ctx *Context, ev PointerEvent) {
	switch t.gesture {
	case gestureMove, gestureHandle:
		label := "Move"
		if t.gesture == gestureHandle {
			label = "Transform"
		}
		ctx.Store.ApplyTransforms(t.transformsAt(ev.Point, ev.Modifiers), label)
	case gestureMarquee:
		rect := rectBetween(t.start, ev.Point)
		var hits []string
		if ctx.ObjectsInRect != nil {
			hits = ctx.ObjectsInRect(rect)
		}
		if t.additive {
			hits = union(ctx.selection(), hits)
		}
		ctx.setSelection(hits)
	}
	t.reset()
}

// OnDoubleClick hands text-bearing objects off to the modal editor.
func (t *SelectTool) OnDoubleClick(ctx *Context, ev PointerEvent) {
	if ctx.HitTest == nil {
		return
	}
	id := ctx.HitTest(ev.Point)
	if id == "" {
		return
	}
	obj := ctx.Store.Object(id)
	if obj == nil {
		return
	}
	switch obj.Type {
	case core.ObjectText:
		ctx.openModal(ModalRequest{Kind: ToolText, ObjectID: id, Anchor: ev.Point})
	case core.ObjectNote:
		ctx.openModal(ModalRequest{Kind: ToolNote, ObjectID: id, Anchor: ev.Point})
	}
}

func (t *SelectTool) OnKeyDown(ctx *Context, ev KeyEvent) {
	switch ev.Key {
	case "Escape":
		t.cancel(ctx)
	case "Delete", "Backspace":
		if t.gesture != gestureNone {
			return
		}
		for _, id := range ctx.selection() {
			ctx.Store.DeleteObject(id)
		}
		ctx.setSelection(nil)
	}
}

// OnDeactivate commits an in-flight transform gesture at its last pointer
// position and drops any marquee, so no gesture dangles across a tool
// switch.
func (t *SelectTool) OnDeactivate(ctx *Context) {
	switch t.gesture {
	case gestureMove, gestureHandle:
		ctx.Store.ApplyTransforms(t.transformsAt(t.current, Modifiers{}), "Move")
	}
	t.reset()
}

func (t *SelectTool) Cursor(ctx *Context, p core.Point) CursorShape {
	if t.gesture == gestureMove || t.gesture == gestureHandle {
		return CursorMove
	}
	if ctx.HitTestHandle != nil && ctx.HitTestHandle(p) != HandleNone {
		return CursorGrab
	}
	if ctx.HitTest != nil && ctx.HitTest(p) != "" {
		return CursorMove
	}
	return CursorDefault
}

func (t *SelectTool) RenderOverlay(ctx *Context, surface OverlaySurface) {
	if t.gesture == gestureMarquee {
		surface.StrokeRect(rectBetween(t.start, t.current))
	}
}

// cancel restores every affected object's pre-gesture transform from the
// recorded snapshot and abandons the gesture without a history step. The
// restore must not ride the throttled live path: a dropped restore would
// leave peers holding the aborted drag position with no commit to follow.
func (t *SelectTool) cancel(ctx *Context) {
	if t.gesture != gestureMove && t.gesture != gestureHandle {
		t.reset()
		return
	}
	ctx.Store.RevertTransforms(t.initial)
	t.reset()
}

func (t *SelectTool) recordInitial(ctx *Context) {
	t.initial = make(map[string]core.Transform)
	for _, id := range ctx.selection() {
		if obj := ctx.Store.Object(id); obj != nil {
			t.initial[id] = obj.Transform
		}
	}
}

// transformsAt evaluates the gesture's pure transform function for every
// recorded object at the given pointer position.
func (t *SelectTool) transformsAt(p core.Point, mods Modifiers) map[string]core.Transform {
	out := make(map[string]core.Transform, len(t.initial))
	for id, initial := range t.initial {
		if t.gesture == gestureMove {
			out[id] = translated(initial, p.X-t.start.X, p.Y-t.start.Y)
		} else {
			out[id] = handleTransform(initial, t.handle, t.start, p, mods)
		}
	}
	return out
}

func (t *SelectTool) reset() {
	t.gesture = gestureNone
	t.handle = HandleNone
	t.initial = nil
	t.additive = false
}

// ---- pure transform math ----------------------------------------------------

func translated(initial core.Transform, dx, dy float64) core.Transform {
	initial.X += dx
	initial.Y += dy
	return initial
}

// handleTransform maps (initial transform, gesture start, current point,
// modifiers) to a new transform. Scaling uses the ratio of pivot distances,
// rotation the angle swept around the pivot; both depend only on the two
// endpoints, never on the path between them.
func handleTransform(initial core.Transform, handle HandleKind, start, current core.Point, mods Modifiers) core.Transform {
	pivot := core.Point{X: initial.X + initial.Anchor.X, Y: initial.Y + initial.Anchor.Y}

	if handle == HandleRotate {
		a0 := math.Atan2(start.Y-pivot.Y, start.X-pivot.X)
		a1 := math.Atan2(current.Y-pivot.Y, current.X-pivot.X)
		rot := initial.Rotation + (a1 - a0)
		if mods.Shift {
			snap := math.Pi / 12 // 15 degrees
			rot = math.Round(rot/snap) * snap
		}
		initial.Rotation = rot
		return initial
	}

	d0 := distance(start, pivot)
	d1 := distance(current, pivot)
	if d0 == 0 {
		return initial
	}
	factor := d1 / d0

	sx, sy := initial.ScaleX*factor, initial.ScaleY*factor
	if !mods.Shift {
		// Corner handles scale per-axis unless shift forces uniform.
		switch handle {
		case HandleScaleNE, HandleScaleSE, HandleScaleNW, HandleScaleSW:
			fx, fy := axisFactors(start, current, pivot)
			sx = initial.ScaleX * fx
			sy = initial.ScaleY * fy
		}
	}
	initial.ScaleX = sx
	initial.ScaleY = sy
	return initial
}

func axisFactors(start, current, pivot core.Point) (fx, fy float64) {
	fx, fy = 1, 1
	if dx := start.X - pivot.X; dx != 0 {
		fx = (current.X - pivot.X) / dx
	}
	if dy := start.Y - pivot.Y; dy != 0 {
		fy = (current.Y - pivot.Y) / dy
	}
	return fx, fy
}

func distance(a, b core.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func rectBetween(a, b core.Point) Rect {
	return Rect{X: a.X, Y: a.Y, W: b.X - a.X, H: b.Y - a.Y}.Normalize()
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func union(a, b []string) []string {
	out := append([]string(nil), a...)
	for _, id := range b {
		if !contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
