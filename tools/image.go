package tools

import (
	"github.com/anlyetim/TeamPad-sub001/core"

	"github.com/oklog/ulid/v2"
)

// ImageTool places an image placeholder and opens the source-picker modal;
// the picked reference comes back through the store's update path.
type ImageTool struct {
	BaseTool

	Width  float64
	Height float64
}

func NewImageTool() *ImageTool {
	return &ImageTool{Width: 320, Height: 240}
}

func (t *ImageTool) Name() ToolName { return ToolImage }

func (t *ImageTool) OnMouseDown(ctx *Context, ev PointerEvent) {
	id := ulid.Make().String()
	transform := core.IdentityTransform()
	transform.X = ev.Point.X
	transform.Y = ev.Point.Y
	ctx.Store.AddObject(&core.CanvasObject{
		ID:        id,
		Type:      core.ObjectImage,
		LayerID:   ctx.ActiveLayerID,
		Transform: transform,
		Data: &core.ImageData{
			Width:  t.Width,
			Height: t.Height,
		},
	})
	ctx.setSelection([]string{id})
	ctx.openModal(ModalRequest{Kind: ToolImage, ObjectID: id, Anchor: ev.Point})
	ctx.switchTool(ToolSelect)
}

func (t *ImageTool) Cursor(*Context, core.Point) CursorShape {
	return CursorCrosshair
}
