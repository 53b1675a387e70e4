package tools

import (
	"math"
	"testing"

	"github.com/anlyetim/TeamPad-sub001/core"
	"github.com/anlyetim/TeamPad-sub001/document"
)

// selectFixture wires a select tool to a store with one rectangle and simple
// hit-test plumbing.
type selectFixture struct {
	store *document.Store
	ctx   *Context
	tool  *SelectTool
	sel   []string
}

func newSelectFixture(t *testing.T) *selectFixture {
	t.Helper()
	store, ctx := newToolContext()
	f := &selectFixture{store: store, ctx: ctx, tool: NewSelectTool()}

	ctx.SelectedIDs = func() []string { return f.sel }
	ctx.SetSelection = func(ids []string) { f.sel = ids }

	store.AddObject(&core.CanvasObject{
		ID:        "rect",
		Type:      core.ObjectShape,
		LayerID:   ctx.ActiveLayerID,
		Transform: core.Transform{X: 100, Y: 100, ScaleX: 1, ScaleY: 1},
		Data:      &core.ShapeData{Kind: core.ShapeRectangle, Width: 50, Height: 50},
	})

	ctx.HitTest = func(p core.Point) string {
		if p.X >= 100 && p.X <= 150 && p.Y >= 100 && p.Y <= 150 {
			return "rect"
		}
		return ""
	}
	return f
}

func TestSelectTool_MoveCommitsOneHistoryStep(t *testing.T) {
	f := newSelectFixture(t)
	before := f.store.HistoryLen()

	f.tool.OnMouseDown(f.ctx, PointerEvent{Point: core.Point{X: 110, Y: 110}})
	f.tool.OnMouseMove(f.ctx, PointerEvent{Point: core.Point{X: 120, Y: 110}})
	f.tool.OnMouseMove(f.ctx, PointerEvent{Point: core.Point{X: 140, Y: 130}})
	f.tool.OnMouseUp(f.ctx, PointerEvent{Point: core.Point{X: 160, Y: 140}})

	obj := f.store.Object("rect")
	if obj.Transform.X != 150 || obj.Transform.Y != 130 {
		t.Errorf("Move result mismatch: got (%v, %v), want (150, 130)", obj.Transform.X, obj.Transform.Y)
	}
	if got := f.store.HistoryLen(); got != before+1 {
		t.Errorf("Move gesture grew history by %d steps, want 1", got-before)
	}
}

func TestSelectTool_MoveIsFrameRateIndependent(t *testing.T) {
	// Same endpoints, different sample counts, identical result.
	few := newSelectFixture(t)
	few.tool.OnMouseDown(few.ctx, PointerEvent{Point: core.Point{X: 110, Y: 110}})
	few.tool.OnMouseUp(few.ctx, PointerEvent{Point: core.Point{X: 200, Y: 180}})

	many := newSelectFixture(t)
	many.tool.OnMouseDown(many.ctx, PointerEvent{Point: core.Point{X: 110, Y: 110}})
	for x := 111.0; x < 200; x += 0.5 {
		many.tool.OnMouseMove(many.ctx, PointerEvent{Point: core.Point{X: x, Y: 110}})
	}
	many.tool.OnMouseUp(many.ctx, PointerEvent{Point: core.Point{X: 200, Y: 180}})

	a := few.store.Object("rect").Transform
	b := many.store.Object("rect").Transform
	if a.X != b.X || a.Y != b.Y {
		t.Errorf("Transforms diverged with sample rate: (%v,%v) vs (%v,%v)", a.X, a.Y, b.X, b.Y)
	}
}

func TestSelectTool_EscapeCancelRestoresTransform(t *testing.T) {
	f := newSelectFixture(t)
	before := f.store.HistoryLen()

	f.tool.OnMouseDown(f.ctx, PointerEvent{Point: core.Point{X: 110, Y: 110}})
	f.tool.OnMouseMove(f.ctx, PointerEvent{Point: core.Point{X: 300, Y: 300}})
	f.tool.OnKeyDown(f.ctx, KeyEvent{Key: "Escape"})

	obj := f.store.Object("rect")
	if obj.Transform.X != 100 || obj.Transform.Y != 100 {
		t.Errorf("Cancel did not restore transform: got (%v, %v), want (100, 100)", obj.Transform.X, obj.Transform.Y)
	}
	if f.store.HistoryLen() != before {
		t.Errorf("Cancelled gesture grew history: got %d, want %d", f.store.HistoryLen(), before)
	}

	// The gesture is over; further moves are ignored.
	f.tool.OnMouseMove(f.ctx, PointerEvent{Point: core.Point{X: 500, Y: 500}})
	if f.store.Object("rect").Transform.X != 100 {
		t.Error("Cancelled gesture kept consuming pointer moves")
	}
}

// broadcastRecorder captures which outbound path each store notification
// takes.
type broadcastRecorder struct {
	committed []*core.CanvasObject
	live      []*core.CanvasObject
}

func (r *broadcastRecorder) BroadcastObject(obj *core.CanvasObject) {
	r.committed = append(r.committed, obj)
}

func (r *broadcastRecorder) BroadcastObjectLive(obj *core.CanvasObject) {
	r.live = append(r.live, obj)
}

func (r *broadcastRecorder) BroadcastDelete(string)                         {}
func (r *broadcastRecorder) BroadcastLayer(*core.Layer)                     {}
func (r *broadcastRecorder) BroadcastLayerDelete(string)                    {}
func (r *broadcastRecorder) BroadcastHistory(*core.HistoryStep)             {}
func (r *broadcastRecorder) BroadcastHistoryNavigation(core.NavAction, int) {}

func TestSelectTool_EscapeCancelBroadcastsUnthrottled(t *testing.T) {
	f := newSelectFixture(t)
	rec := &broadcastRecorder{}
	f.store.SetBroadcaster(rec)

	f.tool.OnMouseDown(f.ctx, PointerEvent{Point: core.Point{X: 110, Y: 110}})
	f.tool.OnMouseMove(f.ctx, PointerEvent{Point: core.Point{X: 500, Y: 110}})
	f.tool.OnKeyDown(f.ctx, KeyEvent{Key: "Escape"})

	// Drag previews ride the throttled live path and may be dropped; the
	// cancel restore has no commit behind it, so it must go out on the
	// committed path.
	if len(rec.committed) != 1 {
		t.Fatalf("Cancel sent %d committed updates, want 1", len(rec.committed))
	}
	if got := rec.committed[0].Transform.X; got != 100 {
		t.Errorf("Committed restore transform mismatch: got X=%v, want 100", got)
	}
}

func TestSelectTool_DeactivateCommitsInFlightMove(t *testing.T) {
	f := newSelectFixture(t)

	f.tool.OnMouseDown(f.ctx, PointerEvent{Point: core.Point{X: 110, Y: 110}})
	f.tool.OnMouseMove(f.ctx, PointerEvent{Point: core.Point{X: 130, Y: 110}})
	f.tool.OnDeactivate(f.ctx)

	obj := f.store.Object("rect")
	if obj.Transform.X != 120 {
		t.Errorf("Deactivate did not commit at last pointer position: got X=%v, want 120", obj.Transform.X)
	}
}

func TestSelectTool_MarqueeSelection(t *testing.T) {
	f := newSelectFixture(t)
	f.ctx.ObjectsInRect = func(r Rect) []string {
		if r.X <= 100 && r.X+r.W >= 150 {
			return []string{"rect"}
		}
		return nil
	}

	// Drag from bottom-right to top-left; the rect must be normalized.
	f.tool.OnMouseDown(f.ctx, PointerEvent{Point: core.Point{X: 200, Y: 200}})
	f.tool.OnMouseUp(f.ctx, PointerEvent{Point: core.Point{X: 50, Y: 50}})

	if len(f.sel) != 1 || f.sel[0] != "rect" {
		t.Errorf("Marquee selection mismatch: got %v, want [rect]", f.sel)
	}
}

func TestSelectTool_AdditiveMarqueeUnions(t *testing.T) {
	f := newSelectFixture(t)
	f.sel = []string{"already"}
	f.ctx.ObjectsInRect = func(Rect) []string { return []string{"rect", "already"} }

	f.tool.OnMouseDown(f.ctx, PointerEvent{Point: core.Point{X: 0, Y: 0}, Modifiers: Modifiers{Shift: true}})
	f.tool.OnMouseUp(f.ctx, PointerEvent{Point: core.Point{X: 300, Y: 300}})

	if len(f.sel) != 2 {
		t.Errorf("Additive marquee union mismatch: got %v", f.sel)
	}
}

func TestSelectTool_DeleteKeyDeletesSelection(t *testing.T) {
	f := newSelectFixture(t)
	f.sel = []string{"rect"}

	f.tool.OnKeyDown(f.ctx, KeyEvent{Key: "Delete"})

	if f.store.Object("rect") != nil {
		t.Error("Delete key did not remove the selected object")
	}
	if len(f.sel) != 0 {
		t.Errorf("Selection not cleared after delete: got %v", f.sel)
	}
}

func TestSelectTool_DoubleClickOpensModalForText(t *testing.T) {
	f := newSelectFixture(t)
	f.store.AddObject(&core.CanvasObject{
		ID:        "label",
		Type:      core.ObjectText,
		LayerID:   f.ctx.ActiveLayerID,
		Transform: core.Transform{X: 400, Y: 400, ScaleX: 1, ScaleY: 1},
		Data:      &core.TextData{Content: "hi", FontSize: 16},
	})
	f.ctx.HitTest = func(p core.Point) string {
		if p.X > 390 {
			return "label"
		}
		return "rect"
	}

	var opened *ModalRequest
	f.ctx.OpenModal = func(req ModalRequest) { opened = &req }

	// Double-clicking the shape opens nothing.
	f.tool.OnDoubleClick(f.ctx, PointerEvent{Point: core.Point{X: 110, Y: 110}})
	if opened != nil {
		t.Fatal("Double-click on a shape opened a modal")
	}

	f.tool.OnDoubleClick(f.ctx, PointerEvent{Point: core.Point{X: 400, Y: 400}})
	if opened == nil {
		t.Fatal("Double-click on text did not open a modal")
	}
	if opened.Kind != ToolText || opened.ObjectID != "label" {
		t.Errorf("Modal request mismatch: got %+v", opened)
	}
}

// ---- pure transform math -----------------------------------------------------

func TestHandleTransform_RotationSweepsAroundPivot(t *testing.T) {
	initial := core.Transform{X: 0, Y: 0, ScaleX: 1, ScaleY: 1, Anchor: core.Point{X: 0, Y: 0}}

	// Quarter turn: start east of the pivot, end north of it.
	got := handleTransform(initial, HandleRotate,
		core.Point{X: 10, Y: 0}, core.Point{X: 0, Y: -10}, Modifiers{})

	want := -math.Pi / 2
	if math.Abs(got.Rotation-want) > 1e-9 {
		t.Errorf("Rotation mismatch: got %v, want %v", got.Rotation, want)
	}
}

func TestHandleTransform_ShiftSnapsRotation(t *testing.T) {
	initial := core.Transform{ScaleX: 1, ScaleY: 1}

	// 40 degrees of sweep snaps to the nearest 15-degree stop (45).
	sweep := 40 * math.Pi / 180
	current := core.Point{X: 10 * math.Cos(sweep), Y: 10 * math.Sin(sweep)}
	got := handleTransform(initial, HandleRotate,
		core.Point{X: 10, Y: 0}, current, Modifiers{Shift: true})

	want := 45 * math.Pi / 180
	if math.Abs(got.Rotation-want) > 1e-9 {
		t.Errorf("Snapped rotation mismatch: got %v deg, want 45", got.Rotation*180/math.Pi)
	}
}

func TestHandleTransform_UniformScaleWithShift(t *testing.T) {
	initial := core.Transform{ScaleX: 2, ScaleY: 1}

	// Doubling the pivot distance doubles both axes when shift is held.
	got := handleTransform(initial, HandleScaleSE,
		core.Point{X: 10, Y: 10}, core.Point{X: 20, Y: 20}, Modifiers{Shift: true})

	if math.Abs(got.ScaleX-4) > 1e-9 || math.Abs(got.ScaleY-2) > 1e-9 {
		t.Errorf("Uniform scale mismatch: got (%v, %v), want (4, 2)", got.ScaleX, got.ScaleY)
	}
}

func TestHandleTransform_CornerScalesPerAxis(t *testing.T) {
	initial := core.Transform{ScaleX: 1, ScaleY: 1}

	// Stretch x by 3, y by 2.
	got := handleTransform(initial, HandleScaleSE,
		core.Point{X: 10, Y: 10}, core.Point{X: 30, Y: 20}, Modifiers{})

	if math.Abs(got.ScaleX-3) > 1e-9 || math.Abs(got.ScaleY-2) > 1e-9 {
		t.Errorf("Per-axis scale mismatch: got (%v, %v), want (3, 2)", got.ScaleX, got.ScaleY)
	}
}

func TestHandleTransform_DegenerateStartAtPivot(t *testing.T) {
	initial := core.Transform{ScaleX: 1, ScaleY: 1}

	// Gesture starting exactly on the pivot cannot scale; the transform is
	// returned unchanged instead of dividing by zero.
	got := handleTransform(initial, HandleScaleSE,
		core.Point{X: 0, Y: 0}, core.Point{X: 50, Y: 50}, Modifiers{})

	if got != initial {
		t.Errorf("Degenerate gesture changed the transform: got %+v", got)
	}
}

func TestRectBetween_Normalizes(t *testing.T) {
	r := rectBetween(core.Point{X: 10, Y: 20}, core.Point{X: 4, Y: 6})
	if r.X != 4 || r.Y != 6 || r.W != 6 || r.H != 14 {
		t.Errorf("Normalized rect mismatch: got %+v", r)
	}
}
