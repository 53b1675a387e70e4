package tools

import (
	"testing"

	"github.com/anlyetim/TeamPad-sub001/core"
	"github.com/anlyetim/TeamPad-sub001/document"
)

// recordingTool counts which events reach it.
type recordingTool struct {
	BaseTool
	name        ToolName
	activated   int
	deactivated int
	downs       int
	moves       int
	keys        int
}

func (t *recordingTool) Name() ToolName                    { return t.name }
func (t *recordingTool) OnActivate(*Context)               { t.activated++ }
func (t *recordingTool) OnDeactivate(*Context)             { t.deactivated++ }
func (t *recordingTool) OnMouseDown(*Context, PointerEvent) { t.downs++ }
func (t *recordingTool) OnMouseMove(*Context, PointerEvent) { t.moves++ }
func (t *recordingTool) OnKeyDown(*Context, KeyEvent)       { t.keys++ }

func newToolContext() (*document.Store, *Context) {
	store := document.NewStore(document.Options{})
	ctx := &Context{
		Store:         store,
		Zoom:          1,
		ActiveLayerID: store.Layers()[0].ID,
	}
	return store, ctx
}

func TestRegistry_RoutesEventsToActiveToolOnly(t *testing.T) {
	_, ctx := newToolContext()
	r := NewRegistry(ctx)

	a := &recordingTool{name: ToolSelect}
	b := &recordingTool{name: ToolBrush}
	r.Register(a)
	r.Register(b)

	if err := r.SwitchTool(ToolSelect); err != nil {
		t.Fatalf("SwitchTool() failed: %v", err)
	}

	r.PointerDown(PointerEvent{})
	r.PointerMove(PointerEvent{})
	r.KeyDown(KeyEvent{Key: "a"})

	if a.downs != 1 || a.moves != 1 || a.keys != 1 {
		t.Errorf("Active tool missed events: downs=%d moves=%d keys=%d", a.downs, a.moves, a.keys)
	}
	if b.downs != 0 || b.moves != 0 || b.keys != 0 {
		t.Errorf("Inactive tool received events: downs=%d moves=%d keys=%d", b.downs, b.moves, b.keys)
	}
}

func TestRegistry_SwitchDeactivatesPrevious(t *testing.T) {
	_, ctx := newToolContext()
	r := NewRegistry(ctx)

	a := &recordingTool{name: ToolSelect}
	b := &recordingTool{name: ToolBrush}
	r.Register(a)
	r.Register(b)

	r.SwitchTool(ToolSelect)
	r.SwitchTool(ToolBrush)

	if a.deactivated != 1 {
		t.Errorf("Previous tool deactivation count mismatch: got %d, want 1", a.deactivated)
	}
	if b.activated != 1 {
		t.Errorf("Next tool activation count mismatch: got %d, want 1", b.activated)
	}
	if got := r.ActiveTool(); got != ToolBrush {
		t.Errorf("ActiveTool mismatch: got %q, want %q", got, ToolBrush)
	}
}

func TestRegistry_SwitchToSameToolIsNoOp(t *testing.T) {
	_, ctx := newToolContext()
	r := NewRegistry(ctx)
	a := &recordingTool{name: ToolSelect}
	r.Register(a)

	r.SwitchTool(ToolSelect)
	r.SwitchTool(ToolSelect)

	if a.activated != 1 {
		t.Errorf("Re-activating the active tool: got %d activations, want 1", a.activated)
	}
	if a.deactivated != 0 {
		t.Errorf("Re-activating the active tool deactivated it %d times", a.deactivated)
	}
}

func TestRegistry_UnknownToolIsError(t *testing.T) {
	_, ctx := newToolContext()
	r := NewRegistry(ctx)
	a := &recordingTool{name: ToolSelect}
	r.Register(a)
	r.SwitchTool(ToolSelect)

	if err := r.SwitchTool("laser"); err == nil {
		t.Fatal("SwitchTool() accepted an unknown tool")
	}
	// The active tool is untouched by the failed switch.
	if got := r.ActiveTool(); got != ToolSelect {
		t.Errorf("Failed switch changed the active tool: got %q", got)
	}
	if a.deactivated != 0 {
		t.Error("Failed switch deactivated the active tool")
	}
}

func TestRegistry_EventsBeforeFirstSwitchAreDropped(t *testing.T) {
	_, ctx := newToolContext()
	r := NewRegistry(ctx)
	a := &recordingTool{name: ToolSelect}
	r.Register(a)

	r.PointerDown(PointerEvent{})
	r.KeyDown(KeyEvent{Key: "x"})

	if a.downs != 0 || a.keys != 0 {
		t.Error("Events reached a tool before any switch")
	}
	if got := r.Cursor(core.Point{}); got != CursorDefault {
		t.Errorf("Cursor without active tool: got %q, want %q", got, CursorDefault)
	}
}

func TestRegistry_ResetDeactivatesActive(t *testing.T) {
	_, ctx := newToolContext()
	r := NewRegistry(ctx)
	a := &recordingTool{name: ToolSelect}
	r.Register(a)
	r.SwitchTool(ToolSelect)

	r.Reset()

	if a.deactivated != 1 {
		t.Errorf("Reset deactivation count mismatch: got %d, want 1", a.deactivated)
	}
	if got := r.ActiveTool(); got != "" {
		t.Errorf("ActiveTool after reset: got %q, want empty", got)
	}
	// Tools stay registered across a reset.
	if err := r.SwitchTool(ToolSelect); err != nil {
		t.Errorf("SwitchTool() after reset failed: %v", err)
	}
}

func TestRegistry_ContextSwitchRequestRoutesThroughRegistry(t *testing.T) {
	_, ctx := newToolContext()
	r := NewRegistry(ctx)
	a := &recordingTool{name: ToolSelect}
	b := &recordingTool{name: ToolBrush}
	r.Register(a)
	r.Register(b)
	r.SwitchTool(ToolBrush)

	// Tools hand control back through the context callback.
	ctx.RequestToolSwitch(ToolSelect)

	if got := r.ActiveTool(); got != ToolSelect {
		t.Errorf("Context-requested switch failed: active %q, want %q", got, ToolSelect)
	}
	if b.deactivated != 1 {
		t.Error("Context-requested switch did not deactivate the previous tool")
	}
}

func TestRegistry_SwitchMidGestureCommits(t *testing.T) {
	store, ctx := newToolContext()
	r := NewRegistry(ctx)
	brush := NewBrushTool()
	r.Register(brush)
	r.Register(NewSelectTool())
	r.SwitchTool(ToolBrush)

	r.PointerDown(PointerEvent{Point: core.Point{X: 0, Y: 0}})
	r.PointerMove(PointerEvent{Point: core.Point{X: 50, Y: 0}})

	// Switching away forces the brush to commit its in-progress stroke.
	r.SwitchTool(ToolSelect)

	if store.ObjectCount() != 1 {
		t.Fatalf("Mid-gesture switch did not commit the stroke: %d objects", store.ObjectCount())
	}
	for _, obj := range store.Objects() {
		if obj.Type != core.ObjectPath {
			t.Errorf("Committed object type mismatch: got %q, want %q", obj.Type, core.ObjectPath)
		}
	}
}
