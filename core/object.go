package core

import (
	"encoding/json"
	"fmt"
)

// Point is a position in canvas coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Transform places an object on the canvas. Anchor is the point (in object
// space) that rotation and scaling pivot around.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
	Anchor   Point   `json:"anchor"`
}

// IdentityTransform returns a transform that leaves an object unmoved and
// unscaled.
func IdentityTransform() Transform {
	return Transform{ScaleX: 1, ScaleY: 1}
}

// ObjectType discriminates the closed set of editable object kinds.
type ObjectType string

const (
	ObjectPath  ObjectType = "path"
	ObjectText  ObjectType = "text"
	ObjectShape ObjectType = "shape"
	ObjectNote  ObjectType = "note"
	ObjectImage ObjectType = "image"
)

// ObjectData is the per-type payload of a CanvasObject. The set of
// implementations is closed; consumers switch exhaustively on the concrete
// type (or on CanvasObject.Type, which must agree with it).
type ObjectData interface {
	// DataKind reports the ObjectType this payload belongs to.
	DataKind() ObjectType
	// CloneData returns a deep copy of the payload.
	CloneData() ObjectData
}

type (
	// StrokeStyle describes how a path or outline is painted.
	StrokeStyle struct {
		Color   string  `json:"color"`
		Width   float64 `json:"width"`
		Opacity float64 `json:"opacity"`
	}

	// PathData is an ink stroke. When Erase is set the renderer composites
	// the path as a punch-out over whatever lies beneath it instead of
	// painting it.
	PathData struct {
		Points []Point     `json:"points"`
		Stroke StrokeStyle `json:"stroke"`
		Erase  bool        `json:"erase,omitempty"`
	}

	// TextData is a free-standing text block. Width > 0 marks area text
	// that wraps at the given width.
	TextData struct {
		Content    string  `json:"content"`
		FontFamily string  `json:"fontFamily"`
		FontSize   float64 `json:"fontSize"`
		Align      string  `json:"align"`
		Color      string  `json:"color"`
		Width      float64 `json:"width,omitempty"`
	}

	// ShapeData is a geometric primitive.
	ShapeData struct {
		Kind   ShapeKind   `json:"kind"`
		Width  float64     `json:"width"`
		Height float64     `json:"height"`
		Fill   string      `json:"fill"`
		Stroke StrokeStyle `json:"stroke"`
	}

	// NoteData is a sticky note.
	NoteData struct {
		Content    string  `json:"content"`
		Background string  `json:"background"`
		Width      float64 `json:"width"`
		Height     float64 `json:"height"`
	}

	// ImageData references an externally stored bitmap. Ref is resolved by
	// the rendering collaborator, this core never dereferences it.
	ImageData struct {
		Ref       string  `json:"ref"`
		Width     float64 `json:"width"`
		Height    float64 `json:"height"`
		BlendMode string  `json:"blendMode,omitempty"`
	}
)

// ShapeKind enumerates the geometric primitives the shape tool can place.
type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeEllipse   ShapeKind = "ellipse"
	ShapeLine      ShapeKind = "line"
	ShapeArrow     ShapeKind = "arrow"
)

func (*PathData) DataKind() ObjectType  { return ObjectPath }
func (*TextData) DataKind() ObjectType  { return ObjectText }
func (*ShapeData) DataKind() ObjectType { return ObjectShape }
func (*NoteData) DataKind() ObjectType  { return ObjectNote }
func (*ImageData) DataKind() ObjectType { return ObjectImage }

func (d *PathData) CloneData() ObjectData {
	cp := *d
	cp.Points = append([]Point(nil), d.Points...)
	return &cp
}

func (d *TextData) CloneData() ObjectData {
	cp := *d
	return &cp
}

func (d *ShapeData) CloneData() ObjectData {
	cp := *d
	return &cp
}

func (d *NoteData) CloneData() ObjectData {
	cp := *d
	return &cp
}

func (d *ImageData) CloneData() ObjectData {
	cp := *d
	return &cp
}

// CanvasObject is the unit of editable content on the board. ID is assigned
// once and never changes; everything else is mutable through the document
// store. An object always belongs to exactly one layer; an object without an
// owning layer is considered deleted.
type CanvasObject struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      ObjectType `json:"type"`
	LayerID   string     `json:"layerId"`
	Transform Transform  `json:"transform"`
	Data      ObjectData `json:"data"`
}

// Clone returns a deep copy of the object.
func (o *CanvasObject) Clone() *CanvasObject {
	if o == nil {
		return nil
	}
	cp := *o
	if o.Data != nil {
		cp.Data = o.Data.CloneData()
	}
	return &cp
}

// canvasObjectJSON mirrors CanvasObject with the payload left raw so it can
// be decoded once the type tag is known.
type canvasObjectJSON struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      ObjectType      `json:"type"`
	LayerID   string          `json:"layerId"`
	Transform Transform       `json:"transform"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func (o *CanvasObject) MarshalJSON() ([]byte, error) {
	var raw json.RawMessage
	if o.Data != nil {
		b, err := json.Marshal(o.Data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(canvasObjectJSON{
		ID:        o.ID,
		Name:      o.Name,
		Type:      o.Type,
		LayerID:   o.LayerID,
		Transform: o.Transform,
		Data:      raw,
	})
}

func (o *CanvasObject) UnmarshalJSON(b []byte) error {
	var aux canvasObjectJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	o.ID = aux.ID
	o.Name = aux.Name
	o.Type = aux.Type
	o.LayerID = aux.LayerID
	o.Transform = aux.Transform
	o.Data = nil

	data, err := decodeObjectData(aux.Type, aux.Data)
	if err != nil {
		return err
	}
	o.Data = data
	return nil
}

func decodeObjectData(typ ObjectType, raw json.RawMessage) (ObjectData, error) {
	var data ObjectData
	switch typ {
	case ObjectPath:
		data = &PathData{}
	case ObjectText:
		data = &TextData{}
	case ObjectShape:
		data = &ShapeData{}
	case ObjectNote:
		data = &NoteData{}
	case ObjectImage:
		data = &ImageData{}
	default:
		return nil, fmt.Errorf("unknown object type %q", typ)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return data, nil
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, err
	}
	return data, nil
}
