package tools

import (
	"fmt"
	"sync"

	"github.com/anlyetim/TeamPad-sub001/core"

	"github.com/sirupsen/logrus"
)

// Registry is the tool dispatch state machine. It routes every raw input
// event to the one active tool and nowhere else, which is what guarantees
// two tools can never interpret the same pointer-down. The machine has no
// terminal state; it lives for the editing session and Reset tears it down
// wholesale.
type Registry struct {
	mu     sync.Mutex
	tools  map[ToolName]Tool
	active Tool
	ctx    *Context
}

// NewRegistry creates an empty registry around the shared tool context.
func NewRegistry(ctx *Context) *Registry {
	r := &Registry{
		tools: make(map[ToolName]Tool),
		ctx:   ctx,
	}
	r.wireContext(ctx)
	return r
}

func (r *Registry) wireContext(ctx *Context) {
	if ctx == nil {
		return
	}
	ctx.RequestToolSwitch = func(name ToolName) {
		if err := r.SwitchTool(name); err != nil {
			logrus.WithError(err).Warn("Tool switch request ignored")
		}
	}
}

// Register adds a tool. Registering the same name twice replaces the old
// handler, which is only sensible before the session starts.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// SetContext swaps the shared context wholesale. Called whenever zoom, pan,
// selection plumbing, or any other dependent state changes shape.
func (r *Registry) SetContext(ctx *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx = ctx
	r.wireContext(ctx)
}

// SwitchTool deactivates the current tool (forcing it to commit or discard
// any in-progress gesture) and activates the named one. Switching to the
// already-active tool is a no-op.
func (r *Registry) SwitchTool(name ToolName) error {
	r.mu.Lock()
	next, ok := r.tools[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("unknown tool %q", name)
	}
	if r.active == next {
		r.mu.Unlock()
		return nil
	}
	prev := r.active
	r.active = next
	ctx := r.ctx
	r.mu.Unlock()

	if prev != nil {
		prev.OnDeactivate(ctx)
	}
	next.OnActivate(ctx)
	logrus.WithField("tool", name).Debug("Tool activated")
	return nil
}

// ActiveTool returns the name of the active tool, or "" before the first
// switch.
func (r *Registry) ActiveTool() ToolName {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return ""
	}
	return r.active.Name()
}

// Reset deactivates whatever is active and returns the machine to its
// pre-session state. Registered tools stay registered.
func (r *Registry) Reset() {
	r.mu.Lock()
	prev := r.active
	ctx := r.ctx
	r.active = nil
	r.mu.Unlock()

	if prev != nil {
		prev.OnDeactivate(ctx)
	}
}

func (r *Registry) snapshot() (Tool, *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.ctx
}

// ---- event routing: active tool only ---------------------------------------

func (r *Registry) PointerDown(ev PointerEvent) {
	if t, ctx := r.snapshot(); t != nil {
		t.OnMouseDown(ctx, ev)
	}
}

func (r *Registry) PointerMove(ev PointerEvent) {
	if t, ctx := r.snapshot(); t != nil {
		t.OnMouseMove(ctx, ev)
	}
}

func (r *Registry) PointerUp(ev PointerEvent) {
	if t, ctx := r.snapshot(); t != nil {
		t.OnMouseUp(ctx, ev)
	}
}

func (r *Registry) DoubleClick(ev PointerEvent) {
	if t, ctx := r.snapshot(); t != nil {
		t.OnDoubleClick(ctx, ev)
	}
}

func (r *Registry) KeyDown(ev KeyEvent) {
	if t, ctx := r.snapshot(); t != nil {
		t.OnKeyDown(ctx, ev)
	}
}

func (r *Registry) KeyUp(ev KeyEvent) {
	if t, ctx := r.snapshot(); t != nil {
		t.OnKeyUp(ctx, ev)
	}
}

func (r *Registry) Cursor(p core.Point) CursorShape {
	if t, ctx := r.snapshot(); t != nil {
		return t.Cursor(ctx, p)
	}
	return CursorDefault
}

func (r *Registry) RenderOverlay(surface OverlaySurface) {
	if t, ctx := r.snapshot(); t != nil {
		t.RenderOverlay(ctx, surface)
	}
}
