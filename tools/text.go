package tools

import (
	"github.com/anlyetim/TeamPad-sub001/core"

	"github.com/oklog/ulid/v2"
)

// TextTool creates a text object on click (or area text on drag), selects
// it, and hands off to the external modal editor. The tool owns only the
// creation and the handoff: edited content flows back through the store's
// update path, never through the tool.
type TextTool struct {
	BaseTool

	FontFamily string
	FontSize   float64
	Color      string

	placing bool
	start   core.Point
}

func NewTextTool() *TextTool {
	return &TextTool{FontFamily: "sans-serif", FontSize: 16, Color: "#1a1a1a"}
}

func (t *TextTool) Name() ToolName { return ToolText }

func (t *TextTool) OnMouseDown(ctx *Context, ev PointerEvent) {
	t.placing = true
	t.start = ev.Point
}

func (t *TextTool) OnMouseUp(ctx *Context, ev PointerEvent) {
	if !t.placing {
		return
	}
	t.placing = false

	data := &core.TextData{
		FontFamily: t.FontFamily,
		FontSize:   t.FontSize,
		Align:      "left",
		Color:      t.Color,
	}
	// A drag defines area text wrapping at the dragged width.
	if w := rectBetween(t.start, ev.Point).W; w >= clickSlop/ctx.EffectiveZoom() {
		data.Width = w
	}

	id := ulid.Make().String()
	transform := core.IdentityTransform()
	transform.X = t.start.X
	transform.Y = t.start.Y
	ctx.Store.AddObject(&core.CanvasObject{
		ID:        id,
		Type:      core.ObjectText,
		LayerID:   ctx.ActiveLayerID,
		Transform: transform,
		Data:      data,
	})
	ctx.setSelection([]string{id})
	ctx.openModal(ModalRequest{Kind: ToolText, ObjectID: id, Anchor: t.start})
	ctx.switchTool(ToolSelect)
}

func (t *TextTool) OnDeactivate(*Context) {
	t.placing = false
}

func (t *TextTool) Cursor(*Context, core.Point) CursorShape {
	return CursorText
}
