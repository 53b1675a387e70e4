package tools

import (
	"testing"

	"github.com/anlyetim/TeamPad-sub001/core"
)

// placementFixture wires a context with selection and modal capture, the way
// the rendering collaborator would.
type placementFixture struct {
	ctx      *Context
	selected []string
	modals   []ModalRequest
	switches []ToolName
}

func newPlacementFixture() *placementFixture {
	_, ctx := newToolContext()
	f := &placementFixture{ctx: ctx}
	ctx.SelectedIDs = func() []string { return f.selected }
	ctx.SetSelection = func(ids []string) { f.selected = ids }
	ctx.OpenModal = func(req ModalRequest) { f.modals = append(f.modals, req) }
	ctx.RequestToolSwitch = func(name ToolName) { f.switches = append(f.switches, name) }
	return f
}

func (f *placementFixture) singleObject(t *testing.T) *core.CanvasObject {
	t.Helper()
	objs := f.ctx.Store.Objects()
	if len(objs) != 1 {
		t.Fatalf("Object count mismatch: got %d, want 1", len(objs))
	}
	for _, o := range objs {
		return o
	}
	return nil
}

func TestShapeTool_ClickPlacesDefaultSize(t *testing.T) {
	f := newPlacementFixture()
	tool := NewShapeTool()

	tool.OnMouseDown(f.ctx, PointerEvent{Point: core.Point{X: 200, Y: 300}})
	tool.OnMouseUp(f.ctx, PointerEvent{Point: core.Point{X: 201, Y: 301}})

	obj := f.singleObject(t)
	if obj.Type != core.ObjectShape {
		t.Fatalf("Object type mismatch: got %q", obj.Type)
	}
	shape := obj.Data.(*core.ShapeData)
	if shape.Width != defaultShapeSize || shape.Height != defaultShapeSize {
		t.Errorf("Default size mismatch: got %gx%g", shape.Width, shape.Height)
	}
	// Centered on the release point.
	if obj.Transform.X != 201-defaultShapeSize/2 || obj.Transform.Y != 301-defaultShapeSize/2 {
		t.Errorf("Placement mismatch: got (%g, %g)", obj.Transform.X, obj.Transform.Y)
	}
	if len(f.selected) != 1 || f.selected[0] != obj.ID {
		t.Errorf("New shape not selected: %v", f.selected)
	}
}

func TestShapeTool_DragDefinesExactArea(t *testing.T) {
	f := newPlacementFixture()
	tool := NewShapeTool()
	tool.Kind = core.ShapeEllipse

	// A reverse drag still yields a normalized rect.
	tool.OnMouseDown(f.ctx, PointerEvent{Point: core.Point{X: 160, Y: 90}})
	tool.OnMouseMove(f.ctx, PointerEvent{Point: core.Point{X: 120, Y: 70}})
	tool.OnMouseUp(f.ctx, PointerEvent{Point: core.Point{X: 100, Y: 50}})

	obj := f.singleObject(t)
	shape := obj.Data.(*core.ShapeData)
	if shape.Kind != core.ShapeEllipse {
		t.Errorf("Shape kind mismatch: got %q", shape.Kind)
	}
	if obj.Transform.X != 100 || obj.Transform.Y != 50 {
		t.Errorf("Origin mismatch: got (%g, %g)", obj.Transform.X, obj.Transform.Y)
	}
	if shape.Width != 60 || shape.Height != 40 {
		t.Errorf("Area mismatch: got %gx%g", shape.Width, shape.Height)
	}
}

func TestShapeTool_DeactivateDropsUnfinishedPlacement(t *testing.T) {
	f := newPlacementFixture()
	tool := NewShapeTool()

	tool.OnMouseDown(f.ctx, PointerEvent{Point: core.Point{X: 10, Y: 10}})
	tool.OnDeactivate(f.ctx)
	tool.OnMouseUp(f.ctx, PointerEvent{Point: core.Point{X: 50, Y: 50}})

	if len(f.ctx.Store.Objects()) != 0 {
		t.Error("Cancelled placement still created an object")
	}
}

func TestTextTool_ClickOpensModalAndHandsOff(t *testing.T) {
	f := newPlacementFixture()
	tool := NewTextTool()

	tool.OnMouseDown(f.ctx, PointerEvent{Point: core.Point{X: 40, Y: 60}})
	tool.OnMouseUp(f.ctx, PointerEvent{Point: core.Point{X: 40, Y: 60}})

	obj := f.singleObject(t)
	if obj.Type != core.ObjectText {
		t.Fatalf("Object type mismatch: got %q", obj.Type)
	}
	text := obj.Data.(*core.TextData)
	if text.Width != 0 {
		t.Errorf("Click placement set a wrap width: %g", text.Width)
	}
	if len(f.modals) != 1 || f.modals[0].ObjectID != obj.ID || f.modals[0].Kind != ToolText {
		t.Fatalf("Modal handoff mismatch: %+v", f.modals)
	}
	if len(f.switches) != 1 || f.switches[0] != ToolSelect {
		t.Errorf("Tool did not hand back to select: %v", f.switches)
	}
}

func TestTextTool_DragSetsWrapWidth(t *testing.T) {
	f := newPlacementFixture()
	tool := NewTextTool()

	tool.OnMouseDown(f.ctx, PointerEvent{Point: core.Point{X: 40, Y: 60}})
	tool.OnMouseUp(f.ctx, PointerEvent{Point: core.Point{X: 240, Y: 60}})

	obj := f.singleObject(t)
	text := obj.Data.(*core.TextData)
	if text.Width != 200 {
		t.Errorf("Wrap width mismatch: got %g, want 200", text.Width)
	}
	if obj.Transform.X != 40 || obj.Transform.Y != 60 {
		t.Errorf("Anchor mismatch: got (%g, %g)", obj.Transform.X, obj.Transform.Y)
	}
}

func TestNoteTool_PlacesStickyAndOpensModal(t *testing.T) {
	f := newPlacementFixture()
	tool := NewNoteTool()

	tool.OnMouseDown(f.ctx, PointerEvent{Point: core.Point{X: 15, Y: 25}})

	obj := f.singleObject(t)
	if obj.Type != core.ObjectNote {
		t.Fatalf("Object type mismatch: got %q", obj.Type)
	}
	note := obj.Data.(*core.NoteData)
	if note.Width != 160 || note.Height != 160 || note.Background != "#fff7b2" {
		t.Errorf("Note defaults mismatch: %+v", note)
	}
	if len(f.modals) != 1 || f.modals[0].Kind != ToolNote {
		t.Errorf("Modal handoff mismatch: %+v", f.modals)
	}
	if len(f.switches) != 1 || f.switches[0] != ToolSelect {
		t.Errorf("Tool did not hand back to select: %v", f.switches)
	}
}
