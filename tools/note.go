package tools

import (
	"github.com/anlyetim/TeamPad-sub001/core"

	"github.com/oklog/ulid/v2"
)

// NoteTool drops a sticky note at the click point, selects it, and opens the
// modal editor for its content.
type NoteTool struct {
	BaseTool

	Background string
	Width      float64
	Height     float64
}

func NewNoteTool() *NoteTool {
	return &NoteTool{Background: "#fff7b2", Width: 160, Height: 160}
}

func (t *NoteTool) Name() ToolName { return ToolNote }

func (t *NoteTool) OnMouseDown(ctx *Context, ev PointerEvent) {
	id := ulid.Make().String()
	transform := core.IdentityTransform()
	transform.X = ev.Point.X
	transform.Y = ev.Point.Y
	ctx.Store.AddObject(&core.CanvasObject{
		ID:        id,
		Type:      core.ObjectNote,
		LayerID:   ctx.ActiveLayerID,
		Transform: transform,
		Data: &core.NoteData{
			Background: t.Background,
			Width:      t.Width,
			Height:     t.Height,
		},
	})
	ctx.setSelection([]string{id})
	ctx.openModal(ModalRequest{Kind: ToolNote, ObjectID: id, Anchor: ev.Point})
	ctx.switchTool(ToolSelect)
}

func (t *NoteTool) Cursor(*Context, core.Point) CursorShape {
	return CursorCrosshair
}
